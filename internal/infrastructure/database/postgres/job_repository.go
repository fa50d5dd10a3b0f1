package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) job.Repository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}

	if err := r.db.conn(ctx).Create(toJobModel(j)).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	var dbModel models.JobModel
	err := r.db.conn(ctx).First(&dbModel, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, job.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return toJobEntity(&dbModel), nil
}

// UpdatePayloadIfPending is a conditional write: a job completed concurrently
// is left untouched and false is returned.
func (r *JobRepository) UpdatePayloadIfPending(ctx context.Context, id uuid.UUID, payload string) (bool, error) {
	result := r.db.conn(ctx).
		Model(&models.JobModel{}).
		Where("id = ? AND status = ?", id, string(job.StatusPending)).
		Update("payload", payload)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update job payload: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *JobRepository) ListPending(ctx context.Context, kind device.Kind, deviceID uuid.UUID, types ...job.Type) ([]*job.Job, error) {
	query := r.db.conn(ctx).
		Where("device_kind = ? AND device_id = ? AND status = ?", string(kind), deviceID, string(job.StatusPending))
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query = query.Where("type IN ?", names)
	}

	var dbModels []models.JobModel
	if err := query.Order("created_at DESC, id").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return toJobEntities(dbModels), nil
}

func (r *JobRepository) ListAllPending(ctx context.Context, kind device.Kind, offset, limit int) ([]*job.Job, error) {
	var dbModels []models.JobModel
	err := r.db.conn(ctx).
		Where("device_kind = ? AND status = ?", string(kind), string(job.StatusPending)).
		Order("created_at, id").
		Offset(offset).
		Limit(limit).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to page pending jobs: %w", err)
	}
	return toJobEntities(dbModels), nil
}

func (r *JobRepository) Complete(ctx context.Context, id uuid.UUID, status job.Status, result string, at time.Time) (bool, error) {
	if status == job.StatusPending {
		return false, job.ErrInvalidStatus
	}

	res := r.db.conn(ctx).
		Model(&models.JobModel{}).
		Where("id = ? AND status = ?", id, string(job.StatusPending)).
		Updates(map[string]any{"status": string(status), "result": result, "completed_at": at})
	if res.Error != nil {
		return false, fmt.Errorf("failed to complete job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *JobRepository) DevicesWithPending(ctx context.Context, kind device.Kind, t job.Type, deviceIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	found := make(map[uuid.UUID]bool)
	if len(deviceIDs) == 0 {
		return found, nil
	}

	var ids []uuid.UUID
	err := r.db.conn(ctx).
		Model(&models.JobModel{}).
		Distinct("device_id").
		Where("device_kind = ? AND type = ? AND status = ? AND device_id IN ?", string(kind), string(t), string(job.StatusPending), deviceIDs).
		Pluck("device_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find devices with pending jobs: %w", err)
	}
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}

func toJobModel(j *job.Job) *models.JobModel {
	return &models.JobModel{
		ID:          j.ID,
		DeviceKind:  string(j.DeviceKind),
		DeviceID:    j.DeviceID,
		Type:        string(j.Type),
		Status:      string(j.Status),
		Payload:     j.Payload,
		Result:      j.Result,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
	}
}

func toJobEntity(m *models.JobModel) *job.Job {
	return &job.Job{
		ID:          m.ID,
		DeviceKind:  device.Kind(m.DeviceKind),
		DeviceID:    m.DeviceID,
		Type:        job.Type(m.Type),
		Status:      job.Status(m.Status),
		Payload:     m.Payload,
		Result:      m.Result,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
}

func toJobEntities(dbModels []models.JobModel) []*job.Job {
	jobs := make([]*job.Job, len(dbModels))
	for i := range dbModels {
		jobs[i] = toJobEntity(&dbModels[i])
	}
	return jobs
}
