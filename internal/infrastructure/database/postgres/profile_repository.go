package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
	"waste-fleet-monitor/pkg/codec"
)

type ProfileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) profile.Repository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	if err := r.db.conn(ctx).Create(toProfileModel(p)).Error; err != nil {
		return fmt.Errorf("failed to create settings profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	var dbModel models.ProfileModel
	err := r.db.conn(ctx).First(&dbModel, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, profile.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings profile: %w", err)
	}

	return toProfileEntity(&dbModel), nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	m := toProfileModel(p)

	result := r.db.conn(ctx).
		Model(&models.ProfileModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":       m.Name,
			"values":     m.Values,
			"updated_at": m.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update settings profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return profile.ErrProfileNotFound
	}
	return nil
}

func toProfileModel(p *profile.Profile) *models.ProfileModel {
	values := make(datatypes.JSONMap, len(p.Values))
	for f, v := range p.Values {
		values[string(f)] = v
	}
	return &models.ProfileModel{
		ID:        p.ID,
		CompanyID: p.CompanyID,
		Name:      p.Name,
		Values:    values,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toProfileEntity(m *models.ProfileModel) *profile.Profile {
	values := make(map[codec.Field]string, len(m.Values))
	for k, v := range m.Values {
		values[codec.Field(k)] = fmt.Sprint(v)
	}
	return &profile.Profile{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		Name:      m.Name,
		Values:    values,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
