package device

import (
	"context"

	"github.com/google/uuid"
)

// SensorRepository defines the interface for sensor persistence. Lookups
// preload the profile and container type.
type SensorRepository interface {
	Create(ctx context.Context, s *Sensor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sensor, error)
	GetByHardwareIdentity(ctx context.Context, hwid string) (*Sensor, error)
	Save(ctx context.Context, s *Sensor) error
	DisableByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
	ListEnabled(ctx context.Context, offset, limit int) ([]*Sensor, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*Sensor, error)
	CountActiveByCompany(ctx context.Context) (map[uuid.UUID]int64, error)
}

// TrashbinRepository defines the interface for trashbin persistence.
type TrashbinRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Trashbin, error)
	GetBySerial(ctx context.Context, serial string) (*Trashbin, error)
	Satellites(ctx context.Context, masterID uuid.UUID) ([]*Trashbin, error)
	Save(ctx context.Context, t *Trashbin) error
	DisableByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// RecordRepository stores time series with the actual flag bookkeeping.
type RecordRepository interface {
	// Append flips the current actual record of the metric and inserts rec as actual.
	Append(ctx context.Context, rec *Record) error
	// Add inserts rec without touching other records.
	Add(ctx context.Context, rec *Record) error
	ResetActual(ctx context.Context, kind Kind, deviceID uuid.UUID, metric Metric) error
	LatestActual(ctx context.Context, kind Kind, deviceID uuid.UUID, metric Metric) (*Record, error)
	ActiveErrorCodes(ctx context.Context, kind Kind, deviceID uuid.UUID) ([]int, error)
	// LatestDryFullness returns the newest fullness value not flagged as moisture, or 0.
	LatestDryFullness(ctx context.Context, kind Kind, deviceID uuid.UUID) (float64, error)
}

type RawMessageRepository interface {
	Store(ctx context.Context, msg *RawMessage) error
}

type OnboardingRepository interface {
	// CreateIfAbsent returns true when a new request was created.
	CreateIfAbsent(ctx context.Context, hwid string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OnboardingRequest, error)
	MarkApproved(ctx context.Context, id, sensorID uuid.UUID) error
}
