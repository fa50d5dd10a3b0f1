package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
)

// Audience separates driver clients from web notification listeners.
type Audience string

const (
	AudienceDrivers Audience = "drivers"
	AudienceWeb     Audience = "web"
)

// Hub tracks live connections per audience and user.
type Hub struct {
	mu      sync.RWMutex
	clients map[Audience]map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: map[Audience]map[uuid.UUID]map[*Client]struct{}{
			AudienceDrivers: {},
			AudienceWeb:     {},
		},
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.clients[c.audience]
	if users[c.userID] == nil {
		users[c.userID] = make(map[*Client]struct{})
	}
	users[c.userID][c] = struct{}{}
	metrics.ConnectedClients.WithLabelValues(string(c.audience)).Inc()
}

// unregister reports whether the user has no connections left.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.clients[c.audience]
	conns, ok := users[c.userID]
	if !ok {
		return true
	}
	if _, ok := conns[c]; ok {
		delete(conns, c)
		metrics.ConnectedClients.WithLabelValues(string(c.audience)).Dec()
	}
	if len(conns) == 0 {
		delete(users, c.userID)
		return true
	}
	return false
}

// SendToUser queues payload on every connection of the user. It reports
// whether at least one connection accepted it.
func (h *Hub) SendToUser(audience Audience, userID uuid.UUID, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	accepted := false
	for c := range h.clients[audience][userID] {
		if c.enqueue(payload) {
			accepted = true
		}
	}
	return accepted
}

func (h *Hub) IsOnline(audience Audience, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[audience][userID]) > 0
}

// Count returns the number of live connections of an audience.
func (h *Hub) Count(audience Audience) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients[audience] {
		n += len(conns)
	}
	return n
}

// CloseAll drops every connection; used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Client
	for _, users := range h.clients {
		for _, conns := range users {
			for c := range conns {
				all = append(all, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.close()
	}
}

// UnreadChanged pushes the unread notification counter to web listeners.
func (h *Hub) UnreadChanged(userID uuid.UUID, unread int64) {
	payload, err := json.Marshal(map[string]int64{"unread_notifications_count": unread})
	if err != nil {
		return
	}
	if !h.SendToUser(AudienceWeb, userID, payload) {
		logger.Debug("No web listener for unread counter", zap.String("user_id", userID.String()))
	}
}

// Drivers exposes the driver audience as a route delivery channel.
func (h *Hub) Drivers() *DriverChannel {
	return &DriverChannel{hub: h}
}

// DriverChannel delivers route commands to connected drivers.
type DriverChannel struct {
	hub *Hub
}

func (d *DriverChannel) Send(driverID uuid.UUID, payload []byte) bool {
	return d.hub.SendToUser(AudienceDrivers, driverID, payload)
}

func (d *DriverChannel) IsOnline(driverID uuid.UUID) bool {
	return d.hub.IsOnline(AudienceDrivers, driverID)
}
