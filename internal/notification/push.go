package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/logger"
)

// PushMessage is delivered to every registered device of a user.
type PushMessage struct {
	Title string
	Body  string
	Link  string
	Data  map[string]string
}

// PushSender delivers a push message to a user.
type PushSender interface {
	Push(ctx context.Context, userID uuid.UUID, msg PushMessage) error
}

// TokenSource resolves the push tokens registered by users.
type TokenSource interface {
	PushTokens(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error)
}

// PushClient posts messages to an FCM-compatible HTTP endpoint.
type PushClient struct {
	endpoint  string
	serverKey string
	tokens    TokenSource
	client    *http.Client
}

func NewPushClient(endpoint, serverKey string, tokens TokenSource) *PushClient {
	return &PushClient{
		endpoint:  endpoint,
		serverKey: serverKey,
		tokens:    tokens,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type pushRequest struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushNotification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ClickAction string `json:"click_action,omitempty"`
}

// Push sends msg to each token of the user. Users without tokens are skipped.
func (c *PushClient) Push(ctx context.Context, userID uuid.UUID, msg PushMessage) error {
	if c.endpoint == "" {
		logger.Debug("Push endpoint is not configured, skipping", zap.String("user_id", userID.String()))
		return nil
	}

	tokens, err := c.tokens.PushTokens(ctx, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("failed to load push tokens: %w", err)
	}
	if len(tokens[userID]) == 0 {
		logger.Debug("User has no push tokens", zap.String("user_id", userID.String()))
		return nil
	}

	for _, token := range tokens[userID] {
		body, err := json.Marshal(pushRequest{
			To:       token,
			Priority: "high",
			Notification: pushNotification{
				Title:       msg.Title,
				Body:        msg.Body,
				ClickAction: msg.Link,
			},
			Data: msg.Data,
		})
		if err != nil {
			return err
		}
		if err := c.post(ctx, body); err != nil {
			return err
		}
	}
	return nil
}

func (c *PushClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected push status %s: %s", resp.Status, text)
	}
	return nil
}
