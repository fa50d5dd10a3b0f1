package scheduler

import (
	"context"
	"time"

	"waste-fleet-monitor/internal/config"
)

// Sweeper fails timed out device jobs.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// LocationRequester asks every enabled sensor for its position.
type LocationRequester interface {
	Run(ctx context.Context) (int, error)
}

// UsageWithdrawer charges companies for their active devices.
type UsageWithdrawer interface {
	WithdrawDailyUsage(ctx context.Context, now time.Time) (int, error)
}

// NotificationDeliverer sends pending notifications.
type NotificationDeliverer interface {
	Run(ctx context.Context) (int, error)
}

// Services are the periodic operations of the server.
type Services struct {
	Sweeper   Sweeper
	Locations LocationRequester
	Usage     UsageWithdrawer
	Fanout    NotificationDeliverer
}

// Register adds the standard tasks at the configured intervals.
func Register(s *Scheduler, cfg *config.Config, svc Services) {
	s.Add(Task{
		Name:       "job_sweep",
		Interval:   cfg.Jobs.SweepInterval,
		RunAtStart: true,
		Run:        svc.Sweeper.Sweep,
	})
	s.Add(Task{
		Name:     "location_update",
		Interval: cfg.Jobs.LocationUpdateInterval,
		Run: func(ctx context.Context, _ time.Time) (int, error) {
			return svc.Locations.Run(ctx)
		},
	})
	s.Add(Task{
		Name:     "license_usage",
		Interval: cfg.License.UsageInterval,
		Run:      svc.Usage.WithdrawDailyUsage,
	})
	s.Add(Task{
		Name:       "notification_fanout",
		Interval:   cfg.Notification.FanoutInterval,
		RunAtStart: true,
		Run: func(ctx context.Context, _ time.Time) (int, error) {
			return svc.Fanout.Run(ctx)
		},
	})
}
