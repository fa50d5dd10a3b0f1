package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 16
)

// MessageHandler consumes frames received from a client. Returning an error
// closes the connection.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID uuid.UUID, data []byte) error
}

// Conn is the part of a websocket connection a client uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one websocket connection of a user.
type Client struct {
	hub      *Hub
	conn     Conn
	audience Audience
	userID   uuid.UUID
	handler  MessageHandler

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

func NewClient(hub *Hub, conn Conn, audience Audience, userID uuid.UUID, handler MessageHandler) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		audience: audience,
		userID:   userID,
		handler:  handler,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Register adds the client to the hub so it can receive before Serve runs.
func (c *Client) Register() {
	c.hub.register(c)
}

// Serve pumps the connection until it closes and reports whether it was the
// user's last connection.
func (c *Client) Serve(ctx context.Context) bool {
	go c.writePump()
	c.readPump(ctx)
	c.close()
	return c.hub.unregister(c)
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		logger.Warn("Client send buffer full",
			zap.String("audience", string(c.audience)),
			zap.String("user_id", c.userID.String()),
		)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.conn.Close()
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Websocket closed unexpectedly", zap.String("user_id", c.userID.String()), zap.Error(err))
			}
			return
		}
		if c.handler == nil {
			continue
		}
		if err := c.handler.HandleMessage(ctx, c.userID, data); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warn("Closing websocket after failed message",
					zap.String("user_id", c.userID.String()),
					zap.ByteString("payload", data),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
