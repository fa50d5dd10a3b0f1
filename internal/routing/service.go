package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	"waste-fleet-monitor/internal/domain/device"
	domainNotification "waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/domain/route"
	"waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/internal/notification"
)

// ErrDuplicateDriver rejects a batch giving one driver two routes.
var ErrDuplicateDriver = errors.New("driver appears more than once in the batch")

// Notifier creates company notifications.
type Notifier interface {
	Notify(ctx context.Context, ev notification.Event) (int, error)
}

// RouteSpec is one driver's ordered points in a new batch.
type RouteSpec struct {
	DriverID uuid.UUID
	Points   []*route.Point
}

// Collection is a driver's report for one point.
type Collection struct {
	RouteID    uuid.UUID
	DeviceID   uuid.UUID
	UnloadedOK bool
	Comment    string
	Fullness   *int
	Track      float64
}

// Service drives routes through their lifecycle.
type Service struct {
	tx         domain.Transactor
	routes     route.Repository
	users      user.Repository
	dispatcher *Dispatcher
	notifier   Notifier
	now        func() time.Time
}

func NewService(tx domain.Transactor, routes route.Repository, users user.Repository, dispatcher *Dispatcher, notifier Notifier) *Service {
	return &Service{
		tx:         tx,
		routes:     routes,
		users:      users,
		dispatcher: dispatcher,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateRoutes opens a batch with one route per spec. Each driver's
// unfinished routes are aborted by the operator first.
func (s *Service) CreateRoutes(ctx context.Context, companyID uuid.UUID, specs []RouteSpec) (*route.Batch, []*route.Route, error) {
	if len(specs) == 0 {
		return nil, nil, route.ErrNoPoints
	}
	seen := make(map[uuid.UUID]bool, len(specs))
	for _, spec := range specs {
		if seen[spec.DriverID] {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateDriver, spec.DriverID)
		}
		seen[spec.DriverID] = true
		if len(spec.Points) == 0 {
			return nil, nil, fmt.Errorf("%w: driver %s", route.ErrNoPoints, spec.DriverID)
		}
		for _, p := range spec.Points {
			if err := p.Validate(); err != nil {
				return nil, nil, err
			}
		}
	}

	now := s.now()
	batch := &route.Batch{ID: uuid.New(), CompanyID: companyID, StartTime: now}
	created := make([]*route.Route, 0, len(specs))

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.routes.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		for _, spec := range specs {
			if err := s.abortUnfinished(ctx, spec.DriverID, now); err != nil {
				return err
			}

			rt := &route.Route{
				ID:        uuid.New(),
				BatchID:   batch.ID,
				CompanyID: companyID,
				DriverID:  spec.DriverID,
				Status:    route.StatusNew,
				Points:    spec.Points,
				CreatedAt: now,
			}
			for _, p := range rt.Points {
				if p.Volume == 0 {
					p.Volume = device.DefaultContainerVolume
				}
			}
			if err := s.routes.CreateRoute(ctx, rt); err != nil {
				return fmt.Errorf("failed to create route: %w", err)
			}
			created = append(created, rt)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for _, rt := range created {
		metrics.RouteTransitions.WithLabelValues(string(route.StatusNew)).Inc()
		if _, err := s.dispatcher.SendRoute(ctx, rt); err != nil {
			logger.Error("Failed to dispatch route", zap.String("route_id", rt.ID.String()), zap.Error(err))
		}
	}

	logger.Info("Routes created",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("routes", len(created)),
		zap.String("event", "routes_created"),
	)
	return batch, created, nil
}

func (s *Service) abortUnfinished(ctx context.Context, driverID uuid.UUID, now time.Time) error {
	open, err := s.routes.UnfinishedRoutes(ctx, driverID)
	if err != nil {
		return fmt.Errorf("failed to load unfinished routes: %w", err)
	}
	for _, rt := range open {
		if err := s.closeRoute(ctx, rt, route.StatusAbortedByOperator, &rt.ID, now); err != nil {
			return err
		}
		logger.Info("Unfinished route aborted for new assignment",
			zap.String("route_id", rt.ID.String()),
			zap.String("driver_id", driverID.String()),
		)
	}
	return nil
}

// closeRoute runs the close sequence. The batch check reads assignment state, so
// assignments are finished before it and the route status is set last.
func (s *Service) closeRoute(ctx context.Context, rt *route.Route, status route.Status, scope *uuid.UUID, now time.Time) error {
	if err := ValidateStatusTransition(rt.Status, status); err != nil {
		return err
	}
	if err := s.routes.FinishAssignments(ctx, rt.DriverID, scope, now); err != nil {
		return fmt.Errorf("failed to finish assignments: %w", err)
	}
	if err := s.routes.ClosePoints(ctx, rt.DriverID, route.ClosingPointStatus(status), scope, now); err != nil {
		return fmt.Errorf("failed to close route points: %w", err)
	}
	if err := s.closeBatchesIfPossible(ctx, rt.DriverID, now); err != nil {
		return err
	}
	if err := s.routes.UpdateRouteStatus(ctx, rt.ID, status); err != nil {
		return fmt.Errorf("failed to update route status: %w", err)
	}
	rt.Status = status
	metrics.RouteTransitions.WithLabelValues(string(status)).Inc()
	return nil
}

func (s *Service) closeBatchesIfPossible(ctx context.Context, driverID uuid.UUID, now time.Time) error {
	batches, err := s.routes.OpenBatchesOfDriver(ctx, driverID)
	if err != nil {
		return fmt.Errorf("failed to load open batches: %w", err)
	}
	for _, id := range batches {
		others, err := s.routes.CountUnfinishedAssignments(ctx, id, driverID)
		if err != nil {
			return fmt.Errorf("failed to count batch assignments: %w", err)
		}
		if others > 0 {
			continue
		}
		if err := s.routes.FinishBatch(ctx, id, now); err != nil {
			return fmt.Errorf("failed to finish batch: %w", err)
		}
	}
	return nil
}

// driverRoute loads a route and checks it belongs to driverID.
func (s *Service) driverRoute(ctx context.Context, driverID, routeID uuid.UUID) (*route.Route, error) {
	rt, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if rt.DriverID != driverID {
		return nil, fmt.Errorf("%w: route %s", route.ErrNotRouteDriver, routeID)
	}
	return rt, nil
}

// StartRoute marks the route started and opens or refreshes the assignment.
func (s *Service) StartRoute(ctx context.Context, driverID, routeID uuid.UUID) error {
	rt, err := s.driverRoute(ctx, driverID, routeID)
	if err != nil {
		return err
	}
	if err := ValidateStatusTransition(rt.Status, route.StatusStarted); err != nil {
		return err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.routes.UpdateRouteStatus(ctx, rt.ID, route.StatusStarted); err != nil {
			return fmt.Errorf("failed to update route status: %w", err)
		}
		return s.routes.StartAssignment(ctx, rt, s.now())
	})
	if err != nil {
		return err
	}
	metrics.RouteTransitions.WithLabelValues(string(route.StatusStarted)).Inc()
	return nil
}

// CollectPoint records the outcome for the points of the reported device.
// A failed collection notifies the company.
func (s *Service) CollectPoint(ctx context.Context, driverID uuid.UUID, c Collection) error {
	status := route.PointCollected
	if !c.UnloadedOK {
		status = route.PointError
	}

	var points []*route.Point
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		points, err = s.routes.CollectPoints(ctx, driverID, c.RouteID, c.DeviceID, status, c.Comment, c.Fullness, s.now())
		if err != nil {
			return fmt.Errorf("failed to update route points: %w", err)
		}
		err = s.routes.UpdateTrack(ctx, c.RouteID, driverID, roundTrack(c.Track), false)
		if errors.Is(err, route.ErrAssignmentNotFound) {
			logger.Warn("Point collected on a route that was never started",
				zap.String("route_id", c.RouteID.String()),
				zap.String("event", "collect_without_assignment"),
			)
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	if status != route.PointError || len(points) == 0 {
		return nil
	}
	rt, err := s.routes.GetRoute(ctx, c.RouteID)
	if err != nil {
		return err
	}
	s.notify(ctx, rt, domainNotification.RoutePointCollectionIssue, domainNotification.PriorityMedium, map[string]string{
		notification.ParamAddress: points[0].Address,
		notification.ParamComment: c.Comment,
	})
	return nil
}

// MovingHome closes the driver's route without notifying anyone.
func (s *Service) MovingHome(ctx context.Context, driverID, routeID uuid.UUID, track float64) error {
	_, err := s.closeByDriver(ctx, driverID, routeID, route.StatusMovingHome, track, false)
	return err
}

// CompleteRoute closes the route and records the full track.
func (s *Service) CompleteRoute(ctx context.Context, driverID, routeID uuid.UUID, track float64) error {
	rt, err := s.closeByDriver(ctx, driverID, routeID, route.StatusCompleted, track, true)
	if err != nil {
		return err
	}
	s.notify(ctx, rt, domainNotification.RouteCompleted, domainNotification.PriorityLow, nil)
	return nil
}

func (s *Service) AbortByDriver(ctx context.Context, driverID, routeID uuid.UUID) error {
	rt, err := s.closeByDriver(ctx, driverID, routeID, route.StatusAbortedByDriver, 0, false)
	if err != nil {
		return err
	}
	s.notify(ctx, rt, domainNotification.RouteAbortedByUser, domainNotification.PriorityMedium, nil)
	return nil
}

// closeByDriver closes everything the driver has open, not only routeID.
func (s *Service) closeByDriver(ctx context.Context, driverID, routeID uuid.UUID, status route.Status, track float64, full bool) (*route.Route, error) {
	rt, err := s.driverRoute(ctx, driverID, routeID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.closeRoute(ctx, rt, status, nil, s.now()); err != nil {
			return err
		}
		if status == route.StatusAbortedByDriver {
			return nil
		}
		err := s.routes.UpdateTrack(ctx, rt.ID, driverID, roundTrack(track), full)
		if errors.Is(err, route.ErrAssignmentNotFound) {
			logger.Warn("Track reported for a route that was never started", zap.String("route_id", rt.ID.String()))
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Route closed by driver",
		zap.String("route_id", rt.ID.String()),
		zap.String("status", string(status)),
		zap.String("event", "route_closed"),
	)
	return rt, nil
}

// AbortByOperator closes a route of companyID and cancels it on the driver.
func (s *Service) AbortByOperator(ctx context.Context, companyID, routeID uuid.UUID) error {
	rt, err := s.companyRoute(ctx, companyID, routeID)
	if err != nil {
		return err
	}
	if rt.Status.IsFinished() {
		return fmt.Errorf("%w: %s", route.ErrRouteFinished, rt.Status)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.closeRoute(ctx, rt, route.StatusAbortedByOperator, &rt.ID, s.now())
	})
	if err != nil {
		return err
	}

	if err := s.dispatcher.AbortRoute(rt); err != nil {
		logger.Warn("Failed to cancel route on driver", zap.String("route_id", rt.ID.String()), zap.Error(err))
	}
	logger.Info("Route aborted by operator",
		zap.String("route_id", rt.ID.String()),
		zap.String("event", "route_aborted"),
	)
	return nil
}

// Resend dispatches a route that has not been started yet.
func (s *Service) Resend(ctx context.Context, companyID, routeID uuid.UUID) (bool, error) {
	rt, err := s.companyRoute(ctx, companyID, routeID)
	if err != nil {
		return false, err
	}
	if rt.Status != route.StatusNew {
		return false, route.ErrRouteNotNew
	}
	return s.dispatcher.SendRoute(ctx, rt)
}

// GetRoute returns a route of companyID.
func (s *Service) GetRoute(ctx context.Context, companyID, routeID uuid.UUID) (*route.Route, error) {
	return s.companyRoute(ctx, companyID, routeID)
}

func (s *Service) companyRoute(ctx context.Context, companyID, routeID uuid.UUID) (*route.Route, error) {
	rt, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if rt.CompanyID != companyID {
		return nil, route.ErrRouteNotFound
	}
	return rt, nil
}

// DriverConnected hands over the route cached while the driver was away.
func (s *Service) DriverConnected(_ context.Context, driverID uuid.UUID) error {
	delivered, err := s.dispatcher.DeliverPending(driverID)
	if err != nil {
		return err
	}
	logger.Info("Driver connected",
		zap.String("driver_id", driverID.String()),
		zap.Bool("pending_route_delivered", delivered),
		zap.String("event", "driver_connected"),
	)
	return nil
}

func (s *Service) DriverDisconnected(_ context.Context, driverID uuid.UUID) {
	logger.Info("Driver disconnected",
		zap.String("driver_id", driverID.String()),
		zap.String("event", "driver_disconnected"),
	)
}

// UpdatePushToken registers the driver's mobile push token.
func (s *Service) UpdatePushToken(ctx context.Context, driverID uuid.UUID, token string) error {
	if token == "" {
		return errors.New("push token is empty")
	}
	return s.routes.UpsertPushToken(ctx, &route.PushToken{UserID: driverID, Token: token, UpdatedAt: s.now()})
}

// notify never fails the route operation that triggered it.
func (s *Service) notify(ctx context.Context, rt *route.Route, kind domainNotification.Kind, priority domainNotification.Priority, params map[string]string) {
	if s.notifier == nil {
		return
	}
	if params == nil {
		params = make(map[string]string)
	}
	params[notification.ParamRouteID] = rt.ID.String()
	params[notification.ParamDriver] = s.driverName(ctx, rt.DriverID)

	_, err := s.notifier.Notify(ctx, notification.Event{
		CompanyID: rt.CompanyID,
		TargetID:  rt.ID,
		Kind:      kind,
		Priority:  priority,
		Params:    params,
	})
	if err != nil {
		logger.Error("Failed to create route notification", zap.String("route_id", rt.ID.String()), zap.Error(err))
	}
}

func (s *Service) driverName(ctx context.Context, driverID uuid.UUID) string {
	if s.users == nil {
		return driverID.String()
	}
	u, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		return driverID.String()
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

func roundTrack(track float64) int {
	return int(math.Round(track))
}
