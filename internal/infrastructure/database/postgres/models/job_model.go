package models

import (
	"time"

	"github.com/google/uuid"
)

// JobModel is a command for a device. An empty status means pending.
type JobModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DeviceKind  string     `gorm:"type:varchar(20);not null;index:idx_jobs_device"`
	DeviceID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_jobs_device"`
	Type        string     `gorm:"type:varchar(30);not null"`
	Status      string     `gorm:"type:varchar(10);not null;default:'';index"`
	Payload     string     `gorm:"type:text"`
	Result      string     `gorm:"type:text"`
	CompletedAt *time.Time `gorm:"type:timestamp"`
	CreatedAt   time.Time  `gorm:"not null;index"`
}

func (JobModel) TableName() string {
	return "jobs"
}
