package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

type TrashbinRepository struct {
	db *DB
}

func NewTrashbinRepository(db *DB) device.TrashbinRepository {
	return &TrashbinRepository{db: db}
}

func (r *TrashbinRepository) GetByID(ctx context.Context, id uuid.UUID) (*device.Trashbin, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *TrashbinRepository) GetBySerial(ctx context.Context, serial string) (*device.Trashbin, error) {
	return r.first(ctx, "serial_number = ?", serial)
}

func (r *TrashbinRepository) first(ctx context.Context, query string, arg any) (*device.Trashbin, error) {
	var dbModel models.TrashbinModel
	err := r.db.conn(ctx).Where(query, arg).First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, device.ErrTrashbinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trashbin: %w", err)
	}

	return toTrashbinEntity(&dbModel), nil
}

func (r *TrashbinRepository) Satellites(ctx context.Context, masterID uuid.UUID) ([]*device.Trashbin, error) {
	var dbModels []models.TrashbinModel
	err := r.db.conn(ctx).
		Where("master_id = ? AND is_master = ?", masterID, false).
		Order("serial_number").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list satellites: %w", err)
	}

	bins := make([]*device.Trashbin, len(dbModels))
	for i := range dbModels {
		bins[i] = toTrashbinEntity(&dbModels[i])
	}
	return bins, nil
}

func (r *TrashbinRepository) Save(ctx context.Context, t *device.Trashbin) error {
	m := toTrashbinModel(t)
	result := r.db.conn(ctx).
		Model(&models.TrashbinModel{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"fullness":        m.Fullness,
			"battery":         m.Battery,
			"temperature":     m.Temperature,
			"pressure":        m.Pressure,
			"humidity":        m.Humidity,
			"air_quality":     m.AirQuality,
			"traffic":         m.Traffic,
			"latitude":        m.Latitude,
			"longitude":       m.Longitude,
			"address":         m.Address,
			"disabled":        m.Disabled,
			"data_updated_at": m.DataUpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save trashbin: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return device.ErrTrashbinNotFound
	}
	return nil
}

func (r *TrashbinRepository) DisableByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	result := r.db.conn(ctx).
		Model(&models.TrashbinModel{}).
		Where("company_id = ? AND disabled = ?", companyID, false).
		Update("disabled", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to disable company trashbins: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func toTrashbinModel(t *device.Trashbin) *models.TrashbinModel {
	m := &models.TrashbinModel{
		ID:            t.ID,
		CompanyID:     t.CompanyID,
		SerialNumber:  t.SerialNumber,
		PasswordHash:  t.PasswordHash,
		IsMaster:      t.IsMaster,
		MasterID:      t.MasterID,
		MaxVolume:     t.MaxVolume,
		Fullness:      t.Fullness,
		Battery:       t.Battery,
		Temperature:   t.Temperature,
		Pressure:      t.Pressure,
		Humidity:      t.Humidity,
		AirQuality:    t.AirQuality,
		Traffic:       t.Traffic,
		Address:       t.Address,
		Disabled:      t.Disabled,
		DataUpdatedAt: t.DataUpdatedAt,
		CreatedAt:     t.CreatedAt,
	}
	if t.Location != nil {
		m.Latitude = &t.Location.Latitude
		m.Longitude = &t.Location.Longitude
	}
	return m
}

func toTrashbinEntity(m *models.TrashbinModel) *device.Trashbin {
	t := &device.Trashbin{
		ID:            m.ID,
		CompanyID:     m.CompanyID,
		SerialNumber:  m.SerialNumber,
		PasswordHash:  m.PasswordHash,
		IsMaster:      m.IsMaster,
		MasterID:      m.MasterID,
		MaxVolume:     m.MaxVolume,
		Fullness:      m.Fullness,
		Battery:       m.Battery,
		Temperature:   m.Temperature,
		Pressure:      m.Pressure,
		Humidity:      m.Humidity,
		AirQuality:    m.AirQuality,
		Traffic:       m.Traffic,
		Address:       m.Address,
		Disabled:      m.Disabled,
		DataUpdatedAt: m.DataUpdatedAt,
		CreatedAt:     m.CreatedAt,
	}
	if m.Latitude != nil && m.Longitude != nil {
		t.Location = &device.Location{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}
	return t
}
