package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleDriver   Role = "driver"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleDriver:
		return true
	}
	return false
}

// User is an operator, admin or driver belonging to a company.
type User struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	IsActive     bool
	// Notify opts the user into company status notifications.
	Notify    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
