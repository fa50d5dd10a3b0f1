package route

import (
	"time"

	"github.com/google/uuid"

	domainRoute "waste-fleet-monitor/internal/domain/route"
)

type CreateRoutesRequest struct {
	Routes []DriverRouteRequest `json:"routes" validate:"required,min=1,dive"`
}

type DriverRouteRequest struct {
	DriverID uuid.UUID      `json:"driver_id" validate:"required"`
	Points   []PointRequest `json:"points" validate:"required,min=1,dive"`
}

type PointRequest struct {
	ContainerID  *uuid.UUID `json:"container_id"`
	SensorID     *uuid.UUID `json:"sensor_id"`
	SerialNumber string     `json:"serial_number" validate:"omitempty,max=50"`
	Address      string     `json:"address" validate:"omitempty,max=255"`
	Latitude     float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64    `json:"longitude" validate:"min=-180,max=180"`
	Volume       int        `json:"volume" validate:"omitempty,min=1"`
}

type PointResponse struct {
	ID           uuid.UUID  `json:"id"`
	ContainerID  *uuid.UUID `json:"container_id,omitempty"`
	SensorID     *uuid.UUID `json:"sensor_id,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Address      string     `json:"address,omitempty"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	Fullness     *int       `json:"fullness,omitempty"`
	Volume       int        `json:"volume"`
}

type RouteResponse struct {
	ID        uuid.UUID       `json:"id"`
	BatchID   uuid.UUID       `json:"batch_id"`
	DriverID  uuid.UUID       `json:"driver_id"`
	Status    string          `json:"status"`
	Points    []PointResponse `json:"points"`
	CreatedAt time.Time       `json:"created_at"`
}

type BatchResponse struct {
	ID        uuid.UUID       `json:"id"`
	StartTime time.Time       `json:"start_time"`
	Routes    []RouteResponse `json:"routes"`
}

type ResendResponse struct {
	Delivered bool `json:"delivered"`
}

func (p PointRequest) toDomain() *domainRoute.Point {
	return &domainRoute.Point{
		ContainerID:  p.ContainerID,
		SensorID:     p.SensorID,
		SerialNumber: p.SerialNumber,
		Address:      p.Address,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Status:       domainRoute.PointNotCollected,
		Volume:       p.Volume,
	}
}

func ToRouteResponse(rt *domainRoute.Route) RouteResponse {
	points := make([]PointResponse, len(rt.Points))
	for i, p := range rt.Points {
		points[i] = PointResponse{
			ID:           p.ID,
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
		}
	}
	return RouteResponse{
		ID:        rt.ID,
		BatchID:   rt.BatchID,
		DriverID:  rt.DriverID,
		Status:    string(rt.Status),
		Points:    points,
		CreatedAt: rt.CreatedAt,
	}
}

func ToBatchResponse(b *domainRoute.Batch, routes []*domainRoute.Route) *BatchResponse {
	resp := &BatchResponse{ID: b.ID, StartTime: b.StartTime, Routes: make([]RouteResponse, len(routes))}
	for i, rt := range routes {
		resp.Routes[i] = ToRouteResponse(rt)
	}
	return resp
}
