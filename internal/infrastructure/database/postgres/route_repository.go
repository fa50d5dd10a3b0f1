package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"waste-fleet-monitor/internal/domain/route"
	"waste-fleet-monitor/internal/infrastructure/database/postgres/models"
)

type RouteRepository struct {
	db *DB
}

func NewRouteRepository(db *DB) route.Repository {
	return &RouteRepository{db: db}
}

func (r *RouteRepository) CreateBatch(ctx context.Context, b *route.Batch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	dbModel := &models.BatchModel{
		ID:         b.ID,
		CompanyID:  b.CompanyID,
		StartTime:  b.StartTime,
		FinishTime: b.FinishTime,
	}
	if err := r.db.conn(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create route batch: %w", err)
	}
	return nil
}

func (r *RouteRepository) GetBatch(ctx context.Context, id uuid.UUID) (*route.Batch, error) {
	var dbModel models.BatchModel
	err := r.db.conn(ctx).First(&dbModel, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, route.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route batch: %w", err)
	}
	return &route.Batch{
		ID:         dbModel.ID,
		CompanyID:  dbModel.CompanyID,
		StartTime:  dbModel.StartTime,
		FinishTime: dbModel.FinishTime,
	}, nil
}

// CreateRoute inserts the route together with its points.
func (r *RouteRepository) CreateRoute(ctx context.Context, rt *route.Route) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = time.Now().UTC()
	}
	for _, p := range rt.Points {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.RouteID = rt.ID
		p.BatchID = rt.BatchID
		p.DriverID = rt.DriverID
		p.CreatedAt = rt.CreatedAt
	}

	if err := r.db.conn(ctx).Create(toRouteModel(rt)).Error; err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}
	return nil
}

func (r *RouteRepository) GetRoute(ctx context.Context, id uuid.UUID) (*route.Route, error) {
	var dbModel models.RouteModel
	err := r.db.conn(ctx).
		Preload("Points", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&dbModel, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, route.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return toRouteEntity(&dbModel), nil
}

func (r *RouteRepository) UpdateRouteStatus(ctx context.Context, id uuid.UUID, status route.Status) error {
	result := r.db.conn(ctx).
		Model(&models.RouteModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to update route status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return route.ErrRouteNotFound
	}
	return nil
}

func (r *RouteRepository) UnfinishedRoutes(ctx context.Context, driverID uuid.UUID) ([]*route.Route, error) {
	finished := []string{
		string(route.StatusCompleted),
		string(route.StatusAbortedByOperator),
		string(route.StatusAbortedByDriver),
	}

	var dbModels []models.RouteModel
	err := r.db.conn(ctx).
		Where("driver_id = ? AND status NOT IN ?", driverID, finished).
		Order("created_at").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished routes: %w", err)
	}

	routes := make([]*route.Route, len(dbModels))
	for i := range dbModels {
		routes[i] = toRouteEntity(&dbModels[i])
	}
	return routes, nil
}

func (r *RouteRepository) FinishAssignments(ctx context.Context, driverID uuid.UUID, routeID *uuid.UUID, at time.Time) error {
	query := r.db.conn(ctx).
		Model(&models.AssignmentModel{}).
		Where("driver_id = ? AND finish_time IS NULL", driverID)
	if routeID != nil {
		query = query.Where("route_id = ?", *routeID)
	}
	if err := query.Updates(map[string]any{"finish_time": at, "is_active": false}).Error; err != nil {
		return fmt.Errorf("failed to finish assignments: %w", err)
	}
	return nil
}

func (r *RouteRepository) ClosePoints(ctx context.Context, driverID uuid.UUID, status route.PointStatus, routeID *uuid.UUID, at time.Time) error {
	query := r.db.conn(ctx).
		Model(&models.RoutePointModel{}).
		Where("driver_id = ? AND updated_at IS NULL", driverID)
	if routeID != nil {
		query = query.Where("route_id = ?", *routeID)
	}
	if err := query.Updates(map[string]any{"status": string(status), "updated_at": at}).Error; err != nil {
		return fmt.Errorf("failed to close route points: %w", err)
	}
	return nil
}

func (r *RouteRepository) OpenBatchesOfDriver(ctx context.Context, driverID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.conn(ctx).
		Model(&models.BatchModel{}).
		Distinct("route_batches.id").
		Joins("JOIN routes ON routes.batch_id = route_batches.id").
		Where("routes.driver_id = ? AND route_batches.finish_time IS NULL", driverID).
		Pluck("route_batches.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open batches: %w", err)
	}
	return ids, nil
}

func (r *RouteRepository) CountUnfinishedAssignments(ctx context.Context, batchID, exceptDriverID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.conn(ctx).
		Model(&models.AssignmentModel{}).
		Where("batch_id = ? AND driver_id <> ? AND finish_time IS NULL", batchID, exceptDriverID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished assignments: %w", err)
	}
	return count, nil
}

func (r *RouteRepository) FinishBatch(ctx context.Context, batchID uuid.UUID, at time.Time) error {
	err := r.db.conn(ctx).
		Model(&models.BatchModel{}).
		Where("id = ? AND finish_time IS NULL", batchID).
		Update("finish_time", at).Error
	if err != nil {
		return fmt.Errorf("failed to finish batch: %w", err)
	}
	return nil
}

func (r *RouteRepository) StartAssignment(ctx context.Context, rt *route.Route, at time.Time) error {
	dbModel := &models.AssignmentModel{
		ID:        uuid.New(),
		BatchID:   rt.BatchID,
		RouteID:   rt.ID,
		DriverID:  rt.DriverID,
		CompanyID: rt.CompanyID,
		IsActive:  true,
		StartTime: &at,
	}
	err := r.db.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "route_id"}, {Name: "driver_id"}},
			DoUpdates: clause.Assignments(map[string]any{"start_time": at, "is_active": true}),
		}).
		Create(dbModel).Error
	if err != nil {
		return fmt.Errorf("failed to start assignment: %w", err)
	}
	return nil
}

func (r *RouteRepository) UpdateTrack(ctx context.Context, routeID, driverID uuid.UUID, track int, full bool) error {
	column := "track"
	if full {
		column = "track_full"
	}
	result := r.db.conn(ctx).
		Model(&models.AssignmentModel{}).
		Where("route_id = ? AND driver_id = ?", routeID, driverID).
		Update(column, track)
	if result.Error != nil {
		return fmt.Errorf("failed to update track: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return route.ErrAssignmentNotFound
	}
	return nil
}

func (r *RouteRepository) CollectPoints(ctx context.Context, driverID, routeID, deviceID uuid.UUID, status route.PointStatus, comment string, fullness *int, at time.Time) ([]*route.Point, error) {
	var dbModels []models.RoutePointModel
	err := r.db.conn(ctx).
		Where("driver_id = ? AND route_id = ?", driverID, routeID).
		Where("container_id = ? OR sensor_id = ?", deviceID, deviceID).
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find route points: %w", err)
	}
	if len(dbModels) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(dbModels))
	for i, m := range dbModels {
		ids[i] = m.ID
	}
	updates := map[string]any{"status": string(status), "comment": comment, "updated_at": at}
	if fullness != nil {
		updates["fullness"] = *fullness
	}
	if err := r.db.conn(ctx).Model(&models.RoutePointModel{}).Where("id IN ?", ids).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to collect route points: %w", err)
	}

	points := make([]*route.Point, len(dbModels))
	for i := range dbModels {
		p := toPointEntity(&dbModels[i])
		p.Status = status
		p.Comment = comment
		p.Fullness = fullness
		stamped := at
		p.UpdatedAt = &stamped
		points[i] = p
	}
	return points, nil
}

func (r *RouteRepository) UpsertPushToken(ctx context.Context, token *route.PushToken) error {
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = time.Now().UTC()
	}
	dbModel := &models.PushTokenModel{UserID: token.UserID, Token: token.Token, UpdatedAt: token.UpdatedAt}
	err := r.db.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(dbModel).Error
	if err != nil {
		return fmt.Errorf("failed to save push token: %w", err)
	}
	return nil
}

func (r *RouteRepository) PushTokens(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	tokens := make(map[uuid.UUID][]string)
	if len(userIDs) == 0 {
		return tokens, nil
	}

	var dbModels []models.PushTokenModel
	if err := r.db.conn(ctx).Where("user_id IN ?", userIDs).Order("updated_at DESC").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list push tokens: %w", err)
	}
	for _, m := range dbModels {
		tokens[m.UserID] = append(tokens[m.UserID], m.Token)
	}
	return tokens, nil
}

func toRouteModel(rt *route.Route) *models.RouteModel {
	m := &models.RouteModel{
		ID:        rt.ID,
		BatchID:   rt.BatchID,
		CompanyID: rt.CompanyID,
		DriverID:  rt.DriverID,
		Status:    string(rt.Status),
		CreatedAt: rt.CreatedAt,
		UpdatedAt: rt.CreatedAt,
	}
	for _, p := range rt.Points {
		m.Points = append(m.Points, models.RoutePointModel{
			ID:           p.ID,
			RouteID:      p.RouteID,
			BatchID:      p.BatchID,
			DriverID:     p.DriverID,
			ContainerID:  p.ContainerID,
			SensorID:     p.SensorID,
			SerialNumber: p.SerialNumber,
			Address:      p.Address,
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
			Status:       string(p.Status),
			Comment:      p.Comment,
			Fullness:     p.Fullness,
			Volume:       p.Volume,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		})
	}
	return m
}

func toRouteEntity(m *models.RouteModel) *route.Route {
	rt := &route.Route{
		ID:        m.ID,
		BatchID:   m.BatchID,
		CompanyID: m.CompanyID,
		DriverID:  m.DriverID,
		Status:    route.Status(m.Status),
		CreatedAt: m.CreatedAt,
	}
	for i := range m.Points {
		rt.Points = append(rt.Points, toPointEntity(&m.Points[i]))
	}
	return rt
}

func toPointEntity(m *models.RoutePointModel) *route.Point {
	return &route.Point{
		ID:           m.ID,
		RouteID:      m.RouteID,
		BatchID:      m.BatchID,
		DriverID:     m.DriverID,
		ContainerID:  m.ContainerID,
		SensorID:     m.SensorID,
		SerialNumber: m.SerialNumber,
		Address:      m.Address,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		Status:       route.PointStatus(m.Status),
		Comment:      m.Comment,
		Fullness:     m.Fullness,
		Volume:       m.Volume,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

