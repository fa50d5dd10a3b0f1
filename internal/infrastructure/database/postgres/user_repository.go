package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

// UserRepository implements user.Repository and notification.RecipientRepository.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

var (
	_ user.Repository                  = (*UserRepository)(nil)
	_ notification.RecipientRepository = (*UserRepository)(nil)
)

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var dbModel models.UserModel
	err := r.db.conn(ctx).Where("email = ?", email).First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	var dbModel models.UserModel
	err := r.db.conn(ctx).First(&dbModel, "id = ?", userID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, role user.Role) ([]*user.User, error) {
	var dbModels []models.UserModel
	query := r.db.conn(ctx).Where("company_id = ? AND is_active = ?", companyID, true)
	if role != "" {
		query = query.Where("role = ?", string(role))
	}
	if err := query.Order("created_at").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*user.User, len(dbModels))
	for i := range dbModels {
		users[i] = toUserEntity(&dbModels[i])
	}
	return users, nil
}

// CompanyRecipients returns active operators and admins that opted into notifications.
func (r *UserRepository) CompanyRecipients(ctx context.Context, companyID uuid.UUID) ([]notification.Recipient, error) {
	var dbModels []models.UserModel
	err := r.db.conn(ctx).
		Where("company_id = ? AND is_active = ? AND notify = ?", companyID, true, true).
		Where("role IN ?", []string{string(user.RoleOperator), string(user.RoleAdmin)}).
		Order("created_at").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	recipients := make([]notification.Recipient, len(dbModels))
	for i, m := range dbModels {
		recipients[i] = notification.Recipient{UserID: m.ID, Email: m.Email, Name: m.FullName}
	}
	return recipients, nil
}

func (r *UserRepository) GetRecipients(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]notification.Recipient, error) {
	result := make(map[uuid.UUID]notification.Recipient, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var dbModels []models.UserModel
	if err := r.db.conn(ctx).Where("id IN ?", ids).Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to get recipients: %w", err)
	}
	for _, m := range dbModels {
		result[m.ID] = notification.Recipient{UserID: m.ID, Email: m.Email, Name: m.FullName}
	}
	return result, nil
}

func toUserEntity(m *models.UserModel) *user.User {
	return &user.User{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		Email:        m.Email,
		PasswordHash: m.PasswordHashed,
		FullName:     m.FullName,
		Role:         user.Role(m.Role),
		IsActive:     m.IsActive,
		Notify:       m.Notify,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
