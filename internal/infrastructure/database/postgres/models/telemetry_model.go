package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RecordModel is one time-series point of a device metric.
type RecordModel struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DeviceKind string            `gorm:"type:varchar(20);not null;index:idx_records_device"`
	DeviceID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_records_device"`
	Metric     string            `gorm:"type:varchar(30);not null;index:idx_records_device"`
	Value      float64           `gorm:"not null"`
	Latitude   *float64
	Longitude  *float64
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	Actual     bool              `gorm:"not null;default:false;index"`
	CreatedAt  time.Time         `gorm:"not null;index"`
}

func (RecordModel) TableName() string {
	return "telemetry_records"
}

type RawMessageModel struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DeviceKind string            `gorm:"type:varchar(20);not null"`
	DeviceID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Topic      string            `gorm:"type:varchar(255)"`
	Payload    string            `gorm:"type:text"`
	Data       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null"`
}

func (RawMessageModel) TableName() string {
	return "raw_messages"
}
