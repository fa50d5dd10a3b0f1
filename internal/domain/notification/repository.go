package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for notification persistence
type Repository interface {
	CreateMany(ctx context.Context, items []*Notification) error
	// Undelivered pages notifications not yet pushed, ordered by recipient then age.
	Undelivered(ctx context.Context, limit int) ([]*Notification, error)
	MarkDelivered(ctx context.Context, ids []uuid.UUID) error
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

// RecipientRepository resolves who receives company notifications.
type RecipientRepository interface {
	CompanyRecipients(ctx context.Context, companyID uuid.UUID) ([]Recipient, error)
	GetRecipients(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Recipient, error)
}
