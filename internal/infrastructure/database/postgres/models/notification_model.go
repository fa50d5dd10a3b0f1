package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecipientID uuid.UUID         `gorm:"type:uuid;not null;index"`
	CompanyID   uuid.UUID         `gorm:"type:uuid;not null"`
	Kind        string            `gorm:"type:varchar(60);not null"`
	Priority    int               `gorm:"not null"`
	TargetID    uuid.UUID         `gorm:"type:uuid"`
	Params      datatypes.JSONMap `gorm:"type:jsonb"`
	Pushed      bool              `gorm:"not null;default:false;index"`
	Emailed     bool              `gorm:"not null;default:false"`
	Read        bool              `gorm:"not null;default:false"`
	CreatedAt   time.Time         `gorm:"not null;index"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}
