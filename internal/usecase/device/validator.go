package device

import (
	"context"

	"github.com/google/uuid"

	domainDevice "waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/profile"
)

// ValidateSensorOwner loads a sensor and hides sensors of other companies.
func ValidateSensorOwner(ctx context.Context, sensors domainDevice.SensorRepository, companyID, sensorID uuid.UUID) (*domainDevice.Sensor, error) {
	sensor, err := sensors.GetByID(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	if sensor.CompanyID != companyID {
		return nil, domainDevice.ErrSensorNotFound
	}
	return sensor, nil
}

// ValidateProfileOwner loads a profile the company may edit. Shared
// profiles have no company and are read-only.
func ValidateProfileOwner(ctx context.Context, profiles profile.Repository, companyID, profileID uuid.UUID) (*profile.Profile, error) {
	p, err := profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == nil {
		return nil, profile.ErrProfileReadOnly
	}
	if *p.CompanyID != companyID {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}
