package route

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	domainUser "waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
	appErrors "waste-fleet-monitor/pkg/errors"
)

func TestValidateDriver(t *testing.T) {
	store := memory.New()
	companyID := uuid.New()

	active := &domainUser.User{CompanyID: companyID, Role: domainUser.RoleDriver, IsActive: true}
	inactive := &domainUser.User{CompanyID: companyID, Role: domainUser.RoleDriver}
	operator := &domainUser.User{CompanyID: companyID, Role: domainUser.RoleOperator, IsActive: true}
	foreign := &domainUser.User{CompanyID: uuid.New(), Role: domainUser.RoleDriver, IsActive: true}
	for _, u := range []*domainUser.User{active, inactive, operator, foreign} {
		store.Users().Add(u)
	}

	tests := []struct {
		name     string
		driverID uuid.UUID
		wantErr  bool
	}{
		{"active driver", active.ID, false},
		{"inactive driver", inactive.ID, true},
		{"operator", operator.ID, true},
		{"other company", foreign.ID, true},
		{"unknown", uuid.New(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDriver(context.Background(), store.Users(), companyID, tt.driverID)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, "INVALID_DRIVER", appErrors.Code(err))
			assert.NotErrorIs(t, err, domainUser.ErrUserNotFound)
		})
	}
}
