package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

type OnboardingRepository struct {
	db *DB
}

func NewOnboardingRepository(db *DB) device.OnboardingRepository {
	return &OnboardingRepository{db: db}
}

func (r *OnboardingRepository) CreateIfAbsent(ctx context.Context, hwid string) (bool, error) {
	dbModel := &models.OnboardingRequestModel{
		ID:               uuid.New(),
		HardwareIdentity: hwid,
		CreatedAt:        time.Now().UTC(),
	}
	result := r.db.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "hardware_identity"}}, DoNothing: true}).
		Create(dbModel)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create onboarding request: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *OnboardingRepository) GetByID(ctx context.Context, id uuid.UUID) (*device.OnboardingRequest, error) {
	var dbModel models.OnboardingRequestModel
	err := r.db.conn(ctx).First(&dbModel, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, device.ErrOnboardingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding request: %w", err)
	}

	return &device.OnboardingRequest{
		ID:               dbModel.ID,
		Number:           dbModel.Number,
		HardwareIdentity: dbModel.HardwareIdentity,
		CreatedAt:        dbModel.CreatedAt,
		ApprovedAt:       dbModel.ApprovedAt,
		SensorID:         dbModel.SensorID,
	}, nil
}

func (r *OnboardingRepository) MarkApproved(ctx context.Context, id, sensorID uuid.UUID) error {
	result := r.db.conn(ctx).
		Model(&models.OnboardingRequestModel{}).
		Where("id = ? AND approved_at IS NULL", id).
		Updates(map[string]any{"approved_at": time.Now().UTC(), "sensor_id": sensorID})
	if result.Error != nil {
		return fmt.Errorf("failed to approve onboarding request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return device.ErrAlreadyApproved
	}
	return nil
}
