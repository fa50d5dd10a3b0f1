package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

const notificationInsertBatch = 500

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateMany(ctx context.Context, items []*notification.Notification) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	dbModels := make([]*models.NotificationModel, len(items))
	for i, n := range items {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		dbModels[i] = toNotificationModel(n)
	}

	if err := r.db.conn(ctx).CreateInBatches(dbModels, notificationInsertBatch).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Undelivered(ctx context.Context, limit int) ([]*notification.Notification, error) {
	var dbModels []models.NotificationModel
	err := r.db.conn(ctx).
		Where("pushed = ?", false).
		Order("recipient_id, created_at").
		Limit(limit).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered notifications: %w", err)
	}

	items := make([]*notification.Notification, len(dbModels))
	for i := range dbModels {
		items[i] = toNotificationEntity(&dbModels[i])
	}
	return items, nil
}

func (r *NotificationRepository) MarkDelivered(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.conn(ctx).
		Model(&models.NotificationModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"pushed": true, "emailed": true}).Error
	if err != nil {
		return fmt.Errorf("failed to mark notifications delivered: %w", err)
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.conn(ctx).
		Model(&models.NotificationModel{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func toNotificationModel(n *notification.Notification) *models.NotificationModel {
	params := make(datatypes.JSONMap, len(n.Params))
	for k, v := range n.Params {
		params[k] = v
	}
	return &models.NotificationModel{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		CompanyID:   n.CompanyID,
		Kind:        string(n.Kind),
		Priority:    int(n.Priority),
		TargetID:    n.TargetID,
		Params:      params,
		Pushed:      n.Pushed,
		Emailed:     n.Emailed,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}

func toNotificationEntity(m *models.NotificationModel) *notification.Notification {
	params := make(map[string]string, len(m.Params))
	for k, v := range m.Params {
		params[k] = fmt.Sprint(v)
	}
	return &notification.Notification{
		ID:          m.ID,
		RecipientID: m.RecipientID,
		CompanyID:   m.CompanyID,
		Kind:        notification.Kind(m.Kind),
		Priority:    notification.Priority(m.Priority),
		TargetID:    m.TargetID,
		Params:      params,
		Pushed:      m.Pushed,
		Emailed:     m.Emailed,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt,
	}
}
