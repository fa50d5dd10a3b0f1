package route

import (
	"time"

	"github.com/google/uuid"
)

// Status of a driver route.
type Status string

const (
	StatusNew               Status = "new"
	StatusStarted           Status = "started"
	StatusMovingHome        Status = "moving_home"
	StatusCompleted         Status = "completed"
	StatusAbortedByOperator Status = "aborted_by_operator"
	StatusAbortedByDriver   Status = "aborted_by_driver"
)

// IsFinished reports a terminal route status.
func (s Status) IsFinished() bool {
	switch s {
	case StatusCompleted, StatusAbortedByOperator, StatusAbortedByDriver:
		return true
	}
	return false
}

// PointStatus of a collection point. Closing a route stamps its status on
// every point that was not visited.
type PointStatus string

const (
	PointNotCollected PointStatus = "not_collected"
	PointCollected    PointStatus = "collected"
	PointError        PointStatus = "error"
)

// ClosingPointStatus maps a closing route status onto its points.
func ClosingPointStatus(s Status) PointStatus {
	return PointStatus(s)
}

// Batch groups the routes one operator action dispatched together.
type Batch struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	StartTime  time.Time
	FinishTime *time.Time
}

func (b *Batch) IsClosed() bool {
	return b.FinishTime != nil
}

// Route is one driver's assignment.
type Route struct {
	ID        uuid.UUID
	BatchID   uuid.UUID
	CompanyID uuid.UUID
	DriverID  uuid.UUID
	Status    Status
	Points    []*Point
	CreatedAt time.Time
}

// Point references exactly one container or sensor.
type Point struct {
	ID           uuid.UUID
	RouteID      uuid.UUID
	BatchID      uuid.UUID
	DriverID     uuid.UUID
	ContainerID  *uuid.UUID
	SensorID     *uuid.UUID
	SerialNumber string
	Address      string
	Latitude     float64
	Longitude    float64
	Status       PointStatus
	Comment      string
	Fullness     *int
	Volume       int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// DeviceID returns whichever device the point references.
func (p *Point) DeviceID() uuid.UUID {
	if p.ContainerID != nil {
		return *p.ContainerID
	}
	if p.SensorID != nil {
		return *p.SensorID
	}
	return uuid.Nil
}

func (p *Point) Validate() error {
	if (p.ContainerID == nil) == (p.SensorID == nil) {
		return ErrPointTarget
	}
	return nil
}

// Assignment tracks a driver working a route of a batch.
type Assignment struct {
	ID         uuid.UUID
	BatchID    uuid.UUID
	RouteID    uuid.UUID
	DriverID   uuid.UUID
	CompanyID  uuid.UUID
	IsActive   bool
	StartTime  *time.Time
	FinishTime *time.Time
	Track      int
	TrackFull  int
}

// PushToken is a mobile device registration used for push delivery.
type PushToken struct {
	UserID    uuid.UUID
	Token     string
	UpdatedAt time.Time
}
