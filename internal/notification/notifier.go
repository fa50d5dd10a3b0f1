package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
)

// Event is one occurrence to notify a company about.
type Event struct {
	CompanyID uuid.UUID
	TargetID  uuid.UUID
	Kind      notification.Kind
	Priority  notification.Priority
	Params    map[string]string
}

// UnreadListener is told the new unread count of a user after notifications
// were created for them.
type UnreadListener interface {
	UnreadChanged(userID uuid.UUID, unread int64)
}

// Notifier creates one notification per company recipient.
type Notifier struct {
	repo       notification.Repository
	recipients notification.RecipientRepository
	registry   *Registry
	listener   UnreadListener
}

func NewNotifier(repo notification.Repository, recipients notification.RecipientRepository, registry *Registry) *Notifier {
	return &Notifier{repo: repo, recipients: recipients, registry: registry}
}

// SetListener registers the realtime sink for unread counters.
func (n *Notifier) SetListener(l UnreadListener) {
	n.listener = l
}

// Notify returns the number of notifications created. A company without
// recipients is not an error.
func (n *Notifier) Notify(ctx context.Context, ev Event) (int, error) {
	if !n.registry.Has(ev.Kind) {
		return 0, fmt.Errorf("%w: %s", notification.ErrUnknownKind, ev.Kind)
	}

	recipients, err := n.recipients.CompanyRecipients(ctx, ev.CompanyID)
	if err != nil {
		return 0, fmt.Errorf("failed to load recipients: %w", err)
	}
	if len(recipients) == 0 {
		logger.Debug("There are no recipients for the notification",
			zap.String("company_id", ev.CompanyID.String()),
			zap.String("kind", string(ev.Kind)),
			zap.String("target_id", ev.TargetID.String()),
		)
		return 0, nil
	}

	now := time.Now().UTC()
	items := make([]*notification.Notification, len(recipients))
	for i, r := range recipients {
		items[i] = &notification.Notification{
			ID:          uuid.New(),
			RecipientID: r.UserID,
			CompanyID:   ev.CompanyID,
			Kind:        ev.Kind,
			Priority:    ev.Priority,
			TargetID:    ev.TargetID,
			Params:      ev.Params,
			CreatedAt:   now,
		}
	}
	if err := n.repo.CreateMany(ctx, items); err != nil {
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(strconv.Itoa(int(ev.Priority))).Add(float64(len(items)))

	if n.listener != nil {
		for _, r := range recipients {
			unread, err := n.repo.CountUnread(ctx, r.UserID)
			if err != nil {
				logger.Warn("Failed to count unread notifications", zap.String("user_id", r.UserID.String()), zap.Error(err))
				continue
			}
			n.listener.UnreadChanged(r.UserID, unread)
		}
	}

	logger.Info("Notifications created",
		zap.String("kind", string(ev.Kind)),
		zap.String("level", ev.Priority.Level()),
		zap.Int("recipients", len(recipients)),
		zap.String("event", "notifications_created"),
	)
	return len(items), nil
}
