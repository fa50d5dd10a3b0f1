package routing

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/route"
)

// Commands pushed to a driver's mobile client.
const (
	ActionNewRoute   = "new_route"
	ActionAbortRoute = "abort_route"
)

// NewRouteCommand is the full route handed to a driver.
type NewRouteCommand struct {
	Action  string         `json:"action"`
	ID      uuid.UUID      `json:"id"`
	Created time.Time      `json:"created"`
	Points  []PointPayload `json:"points"`
}

type PointPayload struct {
	ID           uuid.UUID  `json:"id"`
	ContainerID  *uuid.UUID `json:"container_id,omitempty"`
	SensorID     *uuid.UUID `json:"sensor_id,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Address      string     `json:"address,omitempty"`
	Latitude     float64    `json:"lat"`
	Longitude    float64    `json:"lng"`
	Fullness     *int       `json:"fullness,omitempty"`
	Volume       int        `json:"volume"`
}

// AbortRouteCommand cancels a route on the driver's client.
type AbortRouteCommand struct {
	Action string    `json:"action"`
	ID     uuid.UUID `json:"id"`
}

func encodeNewRoute(rt *route.Route) ([]byte, error) {
	cmd := NewRouteCommand{
		Action:  ActionNewRoute,
		ID:      rt.ID,
		Created: rt.CreatedAt,
		Points:  make([]PointPayload, len(rt.Points)),
	}
	for i, p := range rt.Points {
		cmd.Points[i] = PointPayload{
			ID:           p.ID,
			ContainerID:  p.ContainerID,
			SensorID:     p.SensorID,
			SerialNumber: p.SerialNumber,
			Address:      p.Address,
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
			Fullness:     p.Fullness,
			Volume:       p.Volume,
		}
	}
	return json.Marshal(cmd)
}

func encodeAbortRoute(id uuid.UUID) ([]byte, error) {
	return json.Marshal(AbortRouteCommand{Action: ActionAbortRoute, ID: id})
}
