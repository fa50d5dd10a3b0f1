package job

import (
	"context"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/device"
)

// Repository defines the interface for job persistence
type Repository interface {
	Create(ctx context.Context, j *Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	// UpdatePayloadIfPending returns false when the job left the pending state.
	UpdatePayloadIfPending(ctx context.Context, id uuid.UUID, payload string) (bool, error)
	// ListPending returns pending jobs of a device, newest first.
	ListPending(ctx context.Context, kind device.Kind, deviceID uuid.UUID, types ...Type) ([]*Job, error)
	// ListAllPending pages over every pending job of a device family, oldest first.
	ListAllPending(ctx context.Context, kind device.Kind, offset, limit int) ([]*Job, error)
	// Complete moves a pending job to a terminal status; false when it was not pending.
	Complete(ctx context.Context, id uuid.UUID, status Status, result string, at time.Time) (bool, error)
	// DevicesWithPending returns the subset of deviceIDs having a pending job of type t.
	DevicesWithPending(ctx context.Context, kind device.Kind, t Type, deviceIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}
