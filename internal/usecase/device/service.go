package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	domainDevice "waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/ingestion"
	"waste-fleet-monitor/internal/jobs"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/pkg/codec"
	appErrors "waste-fleet-monitor/pkg/errors"
	"waste-fleet-monitor/pkg/utils"
)

// Service implements the operator use cases for sensors and profiles.
type Service struct {
	tx         domain.Transactor
	sensors    domainDevice.SensorRepository
	profiles   profile.Repository
	commander  *jobs.Commander
	reconciler *jobs.Reconciler
	propagator *jobs.Propagator
	onboarding *ingestion.Onboarding
}

func NewService(tx domain.Transactor, sensors domainDevice.SensorRepository, profiles profile.Repository,
	commander *jobs.Commander, reconciler *jobs.Reconciler, propagator *jobs.Propagator, onboarding *ingestion.Onboarding) *Service {
	return &Service{
		tx:         tx,
		sensors:    sensors,
		profiles:   profiles,
		commander:  commander,
		reconciler: reconciler,
		propagator: propagator,
		onboarding: onboarding,
	}
}

// UpdateProfile applies new values to a profile and sends the changed
// fields to every sensor using it.
func (s *Service) UpdateProfile(ctx context.Context, companyID, profileID uuid.UUID, req *UpdateProfileRequest) (*ProfileResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	var updated *profile.Profile
	sensors := 0
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		before, err := ValidateProfileOwner(ctx, s.profiles, companyID, profileID)
		if err != nil {
			return err
		}

		after := before.Clone()
		if req.Name != nil {
			after.Name = utils.SanitizeString(*req.Name)
		}
		for field, value := range req.Values {
			if err := after.Set(codec.Field(field), value); err != nil {
				return appErrors.NewAppError("VALIDATION_ERROR", err.Error(), err)
			}
		}
		if err := after.Validate(); err != nil {
			return appErrors.NewAppError("VALIDATION_ERROR", err.Error(), err)
		}
		after.UpdatedAt = time.Now().UTC()

		if err := s.profiles.Update(ctx, after); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		if sensors, err = s.propagator.ProfileChanged(ctx, before, after); err != nil {
			return err
		}
		updated = after
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Settings profile updated",
		zap.String("profile_id", profileID.String()),
		zap.Int("sensors", sensors),
		zap.String("event", "profile_updated"),
	)
	return ToProfileResponse(updated, sensors), nil
}

// EnqueueJob queues an operator command for a company sensor.
func (s *Service) EnqueueJob(ctx context.Context, companyID, sensorID uuid.UUID, req *EnqueueJobRequest) (*JobResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	sensor, err := ValidateSensorOwner(ctx, s.sensors, companyID, sensorID)
	if err != nil {
		return nil, err
	}

	j, created, err := s.commander.Enqueue(ctx, sensor.ID, job.Type(req.Type), req.Payload)
	if err != nil {
		return nil, err
	}
	return ToJobResponse(j, created), nil
}

// FetchFields asks a company sensor to report its current settings.
func (s *Service) FetchFields(ctx context.Context, companyID, sensorID uuid.UUID, req *FetchFieldsRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	sensor, err := ValidateSensorOwner(ctx, s.sensors, companyID, sensorID)
	if err != nil {
		return err
	}

	fields := make([]codec.Field, len(req.Fields))
	for i, f := range req.Fields {
		fields[i] = codec.Field(f)
	}
	_, err = s.reconciler.FetchFields(ctx, sensor.ID, fields)
	return err
}

// ApproveOnboarding registers the sensor behind an onboarding request.
func (s *Service) ApproveOnboarding(ctx context.Context, requestID uuid.UUID, req *ApproveOnboardingRequest) (*SensorResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	sensor, err := s.onboarding.Approve(ctx, requestID,
		ingestion.InstallType(req.InstallType), ingestion.NetworkType(req.NetworkType), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return ToSensorResponse(sensor), nil
}
