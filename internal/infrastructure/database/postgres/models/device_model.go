package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ContainerTypeModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title              string    `gorm:"type:varchar(255);not null"`
	Volume             float64   `gorm:"not null;default:0"`
	HorizontalMaxRange float64   `gorm:"not null;default:0"`
	VerticalMaxRange   float64   `gorm:"not null;default:0"`
	DiagonalMaxRange   float64   `gorm:"not null;default:0"`
	VerticalMinRange   *float64
	MoistureThreshold  int `gorm:"not null;default:20"`
}

func (ContainerTypeModel) TableName() string {
	return "container_types"
}

// ProfileModel stores only the values that differ from the field defaults.
type ProfileModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID *uuid.UUID        `gorm:"type:uuid;index"`
	Name      string            `gorm:"type:varchar(255);not null"`
	Values    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`
}

func (ProfileModel) TableName() string {
	return "settings_profiles"
}

type SensorModel struct {
	ID               uuid.UUID           `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	SerialNumber     string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	HardwareIdentity string              `gorm:"type:varchar(255);not null;uniqueIndex"`
	ProfileID        *uuid.UUID          `gorm:"type:uuid;index"`
	Profile          *ProfileModel       `gorm:"foreignKey:ProfileID"`
	ContainerTypeID  uuid.UUID           `gorm:"type:uuid;not null"`
	ContainerType    *ContainerTypeModel `gorm:"foreignKey:ContainerTypeID"`
	MountType        string              `gorm:"type:varchar(20);not null;default:'VERTICAL'"`
	Fullness         int                 `gorm:"not null;default:0"`
	Battery          int                 `gorm:"not null;default:0"`
	Temperature      int                 `gorm:"not null;default:0"`
	SimNumber        string              `gorm:"type:varchar(20)"`
	SimBalance       *float64
	PhoneNumber      string `gorm:"type:varchar(15)"`
	Latitude         *float64
	Longitude        *float64
	Address          string    `gorm:"type:text"`
	Disabled         bool      `gorm:"not null;default:false;index"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (SensorModel) TableName() string {
	return "sensors"
}

type TrashbinModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	SerialNumber  string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	PasswordHash  string     `gorm:"type:varchar(255);not null"`
	IsMaster      bool       `gorm:"not null;default:true"`
	MasterID      *uuid.UUID `gorm:"type:uuid;index"`
	MaxVolume     int        `gorm:"not null;default:0"`
	Fullness      int        `gorm:"not null;default:0"`
	Battery       int        `gorm:"not null;default:0"`
	Temperature   int        `gorm:"not null;default:0"`
	Pressure      int        `gorm:"not null;default:0"`
	Humidity      int        `gorm:"not null;default:0"`
	AirQuality    int        `gorm:"not null;default:0"`
	Traffic       int        `gorm:"not null;default:0"`
	Latitude      *float64
	Longitude     *float64
	Address       string `gorm:"type:text"`
	Disabled      bool   `gorm:"not null;default:false;index"`
	DataUpdatedAt time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

func (TrashbinModel) TableName() string {
	return "trashbins"
}

type OnboardingRequestModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Number           int64      `gorm:"autoIncrement;uniqueIndex"`
	HardwareIdentity string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	ApprovedAt       *time.Time `gorm:"type:timestamp"`
	SensorID         *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time  `gorm:"not null"`
}

func (OnboardingRequestModel) TableName() string {
	return "onboarding_requests"
}
