package route

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainUser "waste-fleet-monitor/internal/domain/user"
	appErrors "waste-fleet-monitor/pkg/errors"
)

// ValidateDriver checks that driverID is an active driver of the company.
func ValidateDriver(ctx context.Context, users domainUser.Repository, companyID, driverID uuid.UUID) error {
	driver, err := users.GetByID(ctx, driverID)
	if errors.Is(err, domainUser.ErrUserNotFound) {
		return appErrors.NewAppError("INVALID_DRIVER", "Driver "+driverID.String()+" not found", nil)
	}
	if err != nil {
		return err
	}

	if driver.CompanyID != companyID {
		return appErrors.NewAppError("INVALID_DRIVER", "Driver "+driverID.String()+" not found", nil)
	}
	if driver.Role != domainUser.RoleDriver {
		return appErrors.NewAppError("INVALID_DRIVER", "User "+driverID.String()+" is not a driver", nil)
	}
	if !driver.IsActive {
		return appErrors.NewAppError("INVALID_DRIVER", "Driver "+driverID.String()+" is inactive", nil)
	}
	return nil
}
