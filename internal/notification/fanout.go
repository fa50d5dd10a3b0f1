package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
)

// Fanout delivers undelivered notifications, one push and one email per
// recipient per page.
type Fanout struct {
	repo       notification.Repository
	recipients notification.RecipientRepository
	registry   *Registry
	push       PushSender
	mail       MailSender
	siteURL    string
	pageSize   int
}

func NewFanout(repo notification.Repository, recipients notification.RecipientRepository, registry *Registry,
	push PushSender, mail MailSender, siteURL string, pageSize int) *Fanout {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Fanout{
		repo:       repo,
		recipients: recipients,
		registry:   registry,
		push:       push,
		mail:       mail,
		siteURL:    strings.TrimRight(siteURL, "/"),
		pageSize:   pageSize,
	}
}

// Run drains the undelivered notifications and returns how many were
// handed out. Delivery failures are logged; the notifications are marked
// delivered either way so one bad address cannot block the queue.
func (f *Fanout) Run(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		page, err := f.repo.Undelivered(ctx, f.pageSize)
		if err != nil {
			return total, fmt.Errorf("failed to load undelivered notifications: %w", err)
		}
		if len(page) == 0 {
			break
		}

		n, err := f.deliverPage(ctx, page)
		total += n
		if err != nil {
			return total, err
		}
		if len(page) < f.pageSize {
			break
		}
	}

	if total > 0 {
		logger.Info("Notifications delivered", zap.Int("count", total), zap.String("event", "notifications_delivered"))
	}
	return total, nil
}

func (f *Fanout) deliverPage(ctx context.Context, page []*notification.Notification) (int, error) {
	groups := make(map[uuid.UUID][]*notification.Notification)
	var order []uuid.UUID
	for _, n := range page {
		if _, seen := groups[n.RecipientID]; !seen {
			order = append(order, n.RecipientID)
		}
		groups[n.RecipientID] = append(groups[n.RecipientID], n)
	}

	recipients, err := f.recipients.GetRecipients(ctx, order)
	if err != nil {
		return 0, fmt.Errorf("failed to load recipients: %w", err)
	}

	delivered := 0
	for _, userID := range order {
		items := groups[userID]
		f.deliver(ctx, recipients[userID], userID, items)

		ids := make([]uuid.UUID, len(items))
		for i, n := range items {
			ids[i] = n.ID
		}
		if err := f.repo.MarkDelivered(ctx, ids); err != nil {
			return delivered, fmt.Errorf("failed to mark notifications delivered: %w", err)
		}
		delivered += len(items)
		logger.Debug("Notifications sent to recipient", zap.String("user_id", userID.String()), zap.Int("count", len(items)))
	}
	return delivered, nil
}

func (f *Fanout) deliver(ctx context.Context, recipient notification.Recipient, userID uuid.UUID, items []*notification.Notification) {
	first, err := f.registry.Render(items[0])
	if err != nil {
		logger.Warn("Cannot render notification", zap.String("kind", string(items[0].Kind)), zap.Error(err))
		return
	}
	link := f.siteURL + first.Link

	err = f.push.Push(ctx, userID, PushMessage{Title: first.Subject, Body: first.Message, Link: link})
	observeDelivery("push", err)
	if err != nil {
		logger.Warn("Failed to push notifications", zap.String("user_id", userID.String()), zap.Error(err))
	}

	if recipient.Email == "" {
		return
	}
	lines := make([]string, 0, len(items))
	for _, n := range items {
		r, err := f.registry.Render(n)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Subject, r.Message))
	}
	body := strings.Join(lines, "\n") + "\n\n" + link + "\n" + f.siteURL + "/notifications\n"

	err = f.mail.Send(ctx, recipient.Email, first.Message, body)
	observeDelivery("email", err)
	if err != nil {
		logger.Warn("Failed to email notifications", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func observeDelivery(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.NotificationsDelivered.WithLabelValues(channel, outcome).Inc()
}
