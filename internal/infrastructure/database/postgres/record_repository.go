package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

// RecordRepository implements device.RecordRepository and device.RawMessageRepository.
type RecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

var (
	_ device.RecordRepository     = (*RecordRepository)(nil)
	_ device.RawMessageRepository = (*RecordRepository)(nil)
)

func (r *RecordRepository) Append(ctx context.Context, rec *device.Record) error {
	return r.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.ResetActual(ctx, rec.DeviceKind, rec.DeviceID, rec.Metric); err != nil {
			return err
		}
		rec.Actual = true
		return r.Add(ctx, rec)
	})
}

func (r *RecordRepository) Add(ctx context.Context, rec *device.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if err := r.db.conn(ctx).Create(toRecordModel(rec)).Error; err != nil {
		return fmt.Errorf("failed to add %s record: %w", rec.Metric, err)
	}
	return nil
}

func (r *RecordRepository) ResetActual(ctx context.Context, kind device.Kind, deviceID uuid.UUID, metric device.Metric) error {
	err := r.db.conn(ctx).
		Model(&models.RecordModel{}).
		Where("device_kind = ? AND device_id = ? AND metric = ? AND actual = ?", string(kind), deviceID, string(metric), true).
		Update("actual", false).Error
	if err != nil {
		return fmt.Errorf("failed to reset actual %s records: %w", metric, err)
	}
	return nil
}

func (r *RecordRepository) LatestActual(ctx context.Context, kind device.Kind, deviceID uuid.UUID, metric device.Metric) (*device.Record, error) {
	var dbModel models.RecordModel
	err := r.db.conn(ctx).
		Where("device_kind = ? AND device_id = ? AND metric = ? AND actual = ?", string(kind), deviceID, string(metric), true).
		Order("created_at DESC").
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, device.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get actual %s record: %w", metric, err)
	}
	return toRecordEntity(&dbModel), nil
}

func (r *RecordRepository) ActiveErrorCodes(ctx context.Context, kind device.Kind, deviceID uuid.UUID) ([]int, error) {
	var values []float64
	err := r.db.conn(ctx).
		Model(&models.RecordModel{}).
		Where("device_kind = ? AND device_id = ? AND metric = ? AND actual = ?", string(kind), deviceID, string(device.MetricError), true).
		Order("created_at").
		Pluck("value", &values).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active error codes: %w", err)
	}

	codes := make([]int, len(values))
	for i, v := range values {
		codes[i] = int(v)
	}
	return codes, nil
}

func (r *RecordRepository) LatestDryFullness(ctx context.Context, kind device.Kind, deviceID uuid.UUID) (float64, error) {
	var dbModel models.RecordModel
	err := r.db.conn(ctx).
		Where("device_kind = ? AND device_id = ? AND metric = ?", string(kind), deviceID, string(device.MetricFullness)).
		Not(datatypes.JSONQuery("metadata").HasKey(device.MetadataAnyMoisture)).
		Order("created_at DESC").
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest dry fullness: %w", err)
	}
	return dbModel.Value, nil
}

func (r *RecordRepository) Store(ctx context.Context, msg *device.RawMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	dbModel := &models.RawMessageModel{
		ID:         msg.ID,
		DeviceKind: string(msg.DeviceKind),
		DeviceID:   msg.DeviceID,
		Topic:      msg.Topic,
		Payload:    msg.Payload,
		Data:       datatypes.JSONMap(msg.Data),
		CreatedAt:  msg.CreatedAt,
	}
	if err := r.db.conn(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to store raw message: %w", err)
	}
	return nil
}

func toRecordModel(rec *device.Record) *models.RecordModel {
	return &models.RecordModel{
		ID:         rec.ID,
		DeviceKind: string(rec.DeviceKind),
		DeviceID:   rec.DeviceID,
		Metric:     string(rec.Metric),
		Value:      rec.Value,
		Latitude:   rec.Latitude,
		Longitude:  rec.Longitude,
		Metadata:   datatypes.JSONMap(rec.Metadata),
		Actual:     rec.Actual,
		CreatedAt:  rec.CreatedAt,
	}
}

func toRecordEntity(m *models.RecordModel) *device.Record {
	return &device.Record{
		ID:         m.ID,
		DeviceKind: device.Kind(m.DeviceKind),
		DeviceID:   m.DeviceID,
		Metric:     device.Metric(m.Metric),
		Value:      m.Value,
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		Metadata:   map[string]any(m.Metadata),
		Actual:     m.Actual,
		CreatedAt:  m.CreatedAt,
	}
}
