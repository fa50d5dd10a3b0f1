package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/route"
	"waste-fleet-monitor/internal/infrastructure/cache"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/internal/notification"
)

// NewRoutePushCode tells the mobile client to reconnect and fetch its route.
const NewRoutePushCode = "new_route_push_message"

// DriverChannel is the realtime link to connected drivers. Send reports
// whether at least one live connection accepted the payload.
type DriverChannel interface {
	Send(driverID uuid.UUID, payload []byte) bool
	IsOnline(driverID uuid.UUID) bool
}

// RouteCache holds one undelivered route command per driver.
type RouteCache interface {
	Put(driverID, routeID uuid.UUID, command []byte) error
	Get(driverID uuid.UUID) (*cache.Entry, error)
	DeleteRoute(driverID, routeID uuid.UUID) error
}

// Dispatcher delivers route commands to drivers.
type Dispatcher struct {
	cache   RouteCache
	drivers DriverChannel
	push    notification.PushSender
}

func NewDispatcher(routes RouteCache, drivers DriverChannel, push notification.PushSender) *Dispatcher {
	return &Dispatcher{cache: routes, drivers: drivers, push: push}
}

// SendRoute caches the command before the realtime send and clears it once
// a live connection took it. It reports realtime delivery.
func (d *Dispatcher) SendRoute(ctx context.Context, rt *route.Route) (bool, error) {
	cmd, err := encodeNewRoute(rt)
	if err != nil {
		return false, fmt.Errorf("failed to encode route command: %w", err)
	}
	if err := d.cache.Put(rt.DriverID, rt.ID, cmd); err != nil {
		return false, fmt.Errorf("failed to cache route command: %w", err)
	}

	if d.drivers != nil && d.drivers.Send(rt.DriverID, cmd) {
		if err := d.cache.DeleteRoute(rt.DriverID, rt.ID); err != nil {
			logger.Warn("Failed to clear delivered route", zap.String("route_id", rt.ID.String()), zap.Error(err))
		}
		metrics.RouteDeliveries.WithLabelValues("realtime").Inc()
		logger.Info("Route delivered to driver",
			zap.String("route_id", rt.ID.String()),
			zap.String("driver_id", rt.DriverID.String()),
			zap.String("event", "route_delivered"),
		)
		return true, nil
	}

	metrics.RouteDeliveries.WithLabelValues("cache").Inc()
	d.nudge(ctx, rt)
	return false, nil
}

func (d *Dispatcher) nudge(ctx context.Context, rt *route.Route) {
	if d.push == nil {
		return
	}
	err := d.push.Push(ctx, rt.DriverID, notification.PushMessage{
		Title: "New route received",
		Data:  map[string]string{"code": NewRoutePushCode, "route_id": rt.ID.String()},
	})
	if err != nil {
		logger.Warn("Failed to push new route notice", zap.String("driver_id", rt.DriverID.String()), zap.Error(err))
		return
	}
	metrics.RouteDeliveries.WithLabelValues("push").Inc()
}

// AbortRoute tells the driver to drop the route. An offline driver loses the
// cached command instead.
func (d *Dispatcher) AbortRoute(rt *route.Route) error {
	cmd, err := encodeAbortRoute(rt.ID)
	if err != nil {
		return err
	}

	online := false
	if d.drivers != nil {
		d.drivers.Send(rt.DriverID, cmd)
		online = d.drivers.IsOnline(rt.DriverID)
	}
	if !online {
		if err := d.cache.DeleteRoute(rt.DriverID, rt.ID); err != nil {
			return fmt.Errorf("failed to clear cached route: %w", err)
		}
	}
	return nil
}

// DeliverPending sends a driver the route cached while they were offline.
func (d *Dispatcher) DeliverPending(driverID uuid.UUID) (bool, error) {
	entry, err := d.cache.Get(driverID)
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cached route: %w", err)
	}

	if d.drivers == nil || !d.drivers.Send(driverID, entry.Command) {
		return false, nil
	}
	if err := d.cache.DeleteRoute(driverID, entry.RouteID); err != nil {
		return true, fmt.Errorf("failed to clear delivered route: %w", err)
	}
	metrics.RouteDeliveries.WithLabelValues("reconnect").Inc()
	return true, nil
}
