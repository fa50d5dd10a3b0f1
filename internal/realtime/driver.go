package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/routing"
)

// ErrMalformedFrame is returned for frames that are not a JSON object.
var ErrMalformedFrame = errors.New("malformed websocket frame")

// RouteOperations are the route actions a connected driver may trigger.
type RouteOperations interface {
	StartRoute(ctx context.Context, driverID, routeID uuid.UUID) error
	CollectPoint(ctx context.Context, driverID uuid.UUID, c routing.Collection) error
	MovingHome(ctx context.Context, driverID, routeID uuid.UUID, track float64) error
	CompleteRoute(ctx context.Context, driverID, routeID uuid.UUID, track float64) error
	AbortByDriver(ctx context.Context, driverID, routeID uuid.UUID) error
	UpdatePushToken(ctx context.Context, driverID uuid.UUID, token string) error
}

// driverFrame is the union of all fields drivers send.
type driverFrame struct {
	Action      string    `json:"action"`
	RouteID     uuid.UUID `json:"route_id"`
	ContainerID uuid.UUID `json:"container_id"`
	UnloadedOK  bool      `json:"unloaded_ok"`
	Comment     string    `json:"comment"`
	Fullness    *int      `json:"fullness"`
	Track       float64   `json:"track"`
	Token       string    `json:"token"`
}

type driverAction func(ctx context.Context, driverID uuid.UUID, f *driverFrame) error

// DriverHandler dispatches driver frames by their action.
type DriverHandler struct {
	actions map[string]driverAction
}

func NewDriverHandler(routes RouteOperations) *DriverHandler {
	return &DriverHandler{
		actions: map[string]driverAction{
			"start_route": func(ctx context.Context, id uuid.UUID, f *driverFrame) error {
				return routes.StartRoute(ctx, id, f.RouteID)
			},
			"route_stop": func(ctx context.Context, id uuid.UUID, f *driverFrame) error {
				return routes.AbortByDriver(ctx, id, f.RouteID)
			},
			"collection": func(ctx context.Context, id uuid.UUID, f *driverFrame) error {
				return routes.CollectPoint(ctx, id, routing.Collection{
					RouteID:    f.RouteID,
					DeviceID:   f.ContainerID,
					UnloadedOK: f.UnloadedOK,
					Comment:    f.Comment,
					Fullness:   f.Fullness,
					Track:      f.Track,
				})
			},
			"moving_home": func(ctx context.Context, id uuid.UUID, f *driverFrame) error {
				return routes.MovingHome(ctx, id, f.RouteID, f.Track)
			},
			"route_complete": func(ctx context.Context, id uuid.UUID, f *driverFrame) error {
				return routes.CompleteRoute(ctx, id, f.RouteID, f.Track)
			},
			"update_token": func(ctx context.Context, id uuid.UUID, f *driverFrame) error {
				return routes.UpdatePushToken(ctx, id, f.Token)
			},
		},
	}
}

// HandleMessage runs the frame's action. Unknown actions are logged and
// ignored; malformed frames and failed actions end the connection.
func (h *DriverHandler) HandleMessage(ctx context.Context, driverID uuid.UUID, data []byte) error {
	var frame driverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	action, ok := h.actions[frame.Action]
	if !ok {
		logger.Warn("Unexpected driver payload",
			zap.String("driver_id", driverID.String()),
			zap.ByteString("payload", data),
		)
		return nil
	}
	if err := action(ctx, driverID, &frame); err != nil {
		return fmt.Errorf("%s: %w", frame.Action, err)
	}
	return nil
}
