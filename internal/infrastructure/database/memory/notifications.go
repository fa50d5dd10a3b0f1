package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/notification"
)

type NotificationRepository struct{ s *Store }

func (r *NotificationRepository) CreateMany(_ context.Context, items []*notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	for _, n := range items {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		c := *n
		r.s.notifications = append(r.s.notifications, &c)
	}
	return nil
}

func (r *NotificationRepository) Undelivered(_ context.Context, limit int) ([]*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.s.notifications {
		if !n.Pushed {
			c := *n
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecipientID != out[j].RecipientID {
			return out[i].RecipientID.String() < out[j].RecipientID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, 0, limit), nil
}

func (r *NotificationRepository) MarkDelivered(_ context.Context, ids []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, n := range r.s.notifications {
		if set[n.ID] {
			n.Pushed = true
			n.Emailed = true
		}
	}
	return nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, item := range r.s.notifications {
		if item.RecipientID == recipientID && !item.Read {
			n++
		}
	}
	return n, nil
}

// All returns every notification in creation order.
func (r *NotificationRepository) All() []*notification.Notification {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*notification.Notification, len(r.s.notifications))
	for i, n := range r.s.notifications {
		c := *n
		out[i] = &c
	}
	return out
}
