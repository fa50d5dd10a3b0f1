package route

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for route persistence
type Repository interface {
	CreateBatch(ctx context.Context, b *Batch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error)
	CreateRoute(ctx context.Context, r *Route) error
	GetRoute(ctx context.Context, id uuid.UUID) (*Route, error)
	UpdateRouteStatus(ctx context.Context, id uuid.UUID, status Status) error
	// UnfinishedRoutes returns the driver's routes without a terminal status.
	UnfinishedRoutes(ctx context.Context, driverID uuid.UUID) ([]*Route, error)

	// FinishAssignments finishes the driver's open assignments, optionally
	// only the one of routeID.
	FinishAssignments(ctx context.Context, driverID uuid.UUID, routeID *uuid.UUID, at time.Time) error
	// ClosePoints stamps status on the driver's untouched points.
	ClosePoints(ctx context.Context, driverID uuid.UUID, status PointStatus, routeID *uuid.UUID, at time.Time) error
	// OpenBatchesOfDriver returns unfinished batches holding a route of the driver.
	OpenBatchesOfDriver(ctx context.Context, driverID uuid.UUID) ([]uuid.UUID, error)
	// CountUnfinishedAssignments counts open assignments of other drivers in a batch.
	CountUnfinishedAssignments(ctx context.Context, batchID, exceptDriverID uuid.UUID) (int64, error)
	FinishBatch(ctx context.Context, batchID uuid.UUID, at time.Time) error

	// StartAssignment creates the driver's assignment or refreshes its start time.
	StartAssignment(ctx context.Context, r *Route, at time.Time) error
	UpdateTrack(ctx context.Context, routeID, driverID uuid.UUID, track int, full bool) error
	// CollectPoints updates the driver's points on routeID matching deviceID.
	CollectPoints(ctx context.Context, driverID, routeID, deviceID uuid.UUID, status PointStatus, comment string, fullness *int, at time.Time) ([]*Point, error)

	UpsertPushToken(ctx context.Context, token *PushToken) error
	PushTokens(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error)
}
