package models

import (
	"time"

	"github.com/google/uuid"
)

type CompanyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CompanyModel) TableName() string {
	return "companies"
}

type LicenseModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Begin        time.Time `gorm:"type:date;not null"`
	End          time.Time `gorm:"type:date;not null;index"`
	UsageBalance int64     `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (LicenseModel) TableName() string {
	return "licenses"
}

// LicenseTransactionModel logs every usage balance change.
type LicenseTransactionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	LicenseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount    int64     `gorm:"not null"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (LicenseTransactionModel) TableName() string {
	return "license_transactions"
}
