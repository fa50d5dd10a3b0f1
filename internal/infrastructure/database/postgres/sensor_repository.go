package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

type SensorRepository struct {
	db *DB
}

func NewSensorRepository(db *DB) device.SensorRepository {
	return &SensorRepository{db: db}
}

func (r *SensorRepository) Create(ctx context.Context, s *device.Sensor) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt

	if err := r.db.conn(ctx).Omit("Profile", "ContainerType").Create(toSensorModel(s)).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key") {
			return device.ErrSensorAlreadyExists
		}
		return fmt.Errorf("failed to create sensor: %w", err)
	}
	return nil
}

func (r *SensorRepository) GetByID(ctx context.Context, id uuid.UUID) (*device.Sensor, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *SensorRepository) GetByHardwareIdentity(ctx context.Context, hwid string) (*device.Sensor, error) {
	return r.first(ctx, "hardware_identity = ?", hwid)
}

func (r *SensorRepository) first(ctx context.Context, query string, arg any) (*device.Sensor, error) {
	var dbModel models.SensorModel
	err := r.db.conn(ctx).
		Preload("Profile").
		Preload("ContainerType").
		Where(query, arg).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, device.ErrSensorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}

	return toSensorEntity(&dbModel), nil
}

// Save writes the mutable device state in one statement.
func (r *SensorRepository) Save(ctx context.Context, s *device.Sensor) error {
	s.UpdatedAt = time.Now().UTC()
	m := toSensorModel(s)

	result := r.db.conn(ctx).
		Model(&models.SensorModel{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{
			"profile_id":   m.ProfileID,
			"mount_type":   m.MountType,
			"fullness":     m.Fullness,
			"battery":      m.Battery,
			"temperature":  m.Temperature,
			"sim_number":   m.SimNumber,
			"sim_balance":  m.SimBalance,
			"phone_number": m.PhoneNumber,
			"latitude":     m.Latitude,
			"longitude":    m.Longitude,
			"address":      m.Address,
			"disabled":     m.Disabled,
			"updated_at":   m.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save sensor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return device.ErrSensorNotFound
	}
	return nil
}

func (r *SensorRepository) DisableByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	result := r.db.conn(ctx).
		Model(&models.SensorModel{}).
		Where("company_id = ? AND disabled = ?", companyID, false).
		Updates(map[string]any{"disabled": true, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to disable company sensors: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *SensorRepository) ListEnabled(ctx context.Context, offset, limit int) ([]*device.Sensor, error) {
	return r.list(r.db.conn(ctx).Where("disabled = ?", false), offset, limit)
}

func (r *SensorRepository) ListByProfile(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*device.Sensor, error) {
	return r.list(r.db.conn(ctx).Where("profile_id = ?", profileID), offset, limit)
}

func (r *SensorRepository) list(query *gorm.DB, offset, limit int) ([]*device.Sensor, error) {
	var dbModels []models.SensorModel
	err := query.
		Preload("Profile").
		Preload("ContainerType").
		Order("created_at, id").
		Offset(offset).
		Limit(limit).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}

	sensors := make([]*device.Sensor, len(dbModels))
	for i := range dbModels {
		sensors[i] = toSensorEntity(&dbModels[i])
	}
	return sensors, nil
}

func (r *SensorRepository) CountActiveByCompany(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		CompanyID uuid.UUID
		Total     int64
	}
	err := r.db.conn(ctx).
		Model(&models.SensorModel{}).
		Select("company_id, COUNT(*) AS total").
		Where("disabled = ?", false).
		Group("company_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active sensors: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.CompanyID] = row.Total
	}
	return counts, nil
}

func toSensorModel(s *device.Sensor) *models.SensorModel {
	m := &models.SensorModel{
		ID:               s.ID,
		CompanyID:        s.CompanyID,
		SerialNumber:     s.SerialNumber,
		HardwareIdentity: s.HardwareIdentity,
		ProfileID:        s.ProfileID,
		ContainerTypeID:  s.ContainerTypeID,
		MountType:        string(s.MountType),
		Fullness:         s.Fullness,
		Battery:          s.Battery,
		Temperature:      s.Temperature,
		SimNumber:        s.SimNumber,
		SimBalance:       s.SimBalance,
		PhoneNumber:      s.PhoneNumber,
		Address:          s.Address,
		Disabled:         s.Disabled,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.Location != nil {
		m.Latitude = &s.Location.Latitude
		m.Longitude = &s.Location.Longitude
	}
	return m
}

func toSensorEntity(m *models.SensorModel) *device.Sensor {
	s := &device.Sensor{
		ID:               m.ID,
		CompanyID:        m.CompanyID,
		SerialNumber:     m.SerialNumber,
		HardwareIdentity: m.HardwareIdentity,
		ProfileID:        m.ProfileID,
		ContainerTypeID:  m.ContainerTypeID,
		MountType:        device.MountType(m.MountType),
		Fullness:         m.Fullness,
		Battery:          m.Battery,
		Temperature:      m.Temperature,
		SimNumber:        m.SimNumber,
		SimBalance:       m.SimBalance,
		PhoneNumber:      m.PhoneNumber,
		Address:          m.Address,
		Disabled:         m.Disabled,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.Latitude != nil && m.Longitude != nil {
		s.Location = &device.Location{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}
	if m.Profile != nil {
		s.Profile = toProfileEntity(m.Profile)
	}
	if m.ContainerType != nil {
		s.ContainerType = &device.ContainerType{
			ID:                 m.ContainerType.ID,
			Title:              m.ContainerType.Title,
			Volume:             m.ContainerType.Volume,
			HorizontalMaxRange: m.ContainerType.HorizontalMaxRange,
			VerticalMaxRange:   m.ContainerType.VerticalMaxRange,
			DiagonalMaxRange:   m.ContainerType.DiagonalMaxRange,
			VerticalMinRange:   m.ContainerType.VerticalMinRange,
			MoistureThreshold:  m.ContainerType.MoistureThreshold,
		}
	}
	return s
}
