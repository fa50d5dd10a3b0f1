package profile

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for settings profile persistence
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}
