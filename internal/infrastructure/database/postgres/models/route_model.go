package models

import (
	"time"

	"github.com/google/uuid"
)

type BatchModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	StartTime  time.Time  `gorm:"not null"`
	FinishTime *time.Time `gorm:"type:timestamp"`
}

func (BatchModel) TableName() string {
	return "route_batches"
}

type RouteModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BatchID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	CompanyID uuid.UUID         `gorm:"type:uuid;not null"`
	DriverID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Status    string            `gorm:"type:varchar(30);not null;default:'new'"`
	Points    []RoutePointModel `gorm:"foreignKey:RouteID"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`
}

func (RouteModel) TableName() string {
	return "routes"
}

type RoutePointModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RouteID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	BatchID      uuid.UUID  `gorm:"type:uuid;not null"`
	DriverID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContainerID  *uuid.UUID `gorm:"type:uuid"`
	SensorID     *uuid.UUID `gorm:"type:uuid"`
	SerialNumber string     `gorm:"type:varchar(50)"`
	Address      string     `gorm:"type:text"`
	Latitude     float64
	Longitude    float64
	Status       string `gorm:"type:varchar(30);not null;default:'not_collected'"`
	Comment      string `gorm:"type:text"`
	Fullness     *int
	Volume       int        `gorm:"not null;default:120"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    *time.Time `gorm:"type:timestamp"`
}

func (RoutePointModel) TableName() string {
	return "route_points"
}

// AssignmentModel tracks a driver working a route.
type AssignmentModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BatchID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	RouteID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_route_driver"`
	DriverID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_route_driver"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null"`
	IsActive   bool       `gorm:"not null;default:true"`
	StartTime  *time.Time `gorm:"type:timestamp"`
	FinishTime *time.Time `gorm:"type:timestamp"`
	Track      int        `gorm:"not null;default:0"`
	TrackFull  int        `gorm:"not null;default:0"`
}

func (AssignmentModel) TableName() string {
	return "route_assignments"
}

type PushTokenModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primary_key"`
	Token     string    `gorm:"type:varchar(500);primary_key"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (PushTokenModel) TableName() string {
	return "push_tokens"
}
