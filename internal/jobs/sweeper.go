package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/pkg/codec"
)

const (
	DefaultAllowedConnections = 2
	DefaultFailAfterDays      = 2
)

// Sweeper fails jobs the sensor had enough scheduled chances to answer.
type Sweeper struct {
	jobs          job.Repository
	sensors       device.SensorRepository
	allowed       int
	failAfterDays int
	pageSize      int
}

func NewSweeper(jobs job.Repository, sensors device.SensorRepository, allowedConnections, failAfterDays, pageSize int) *Sweeper {
	if allowedConnections <= 0 {
		allowedConnections = DefaultAllowedConnections
	}
	if failAfterDays <= 0 {
		failAfterDays = DefaultFailAfterDays
	}
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Sweeper{
		jobs:          jobs,
		sensors:       sensors,
		allowed:       allowedConnections,
		failAfterDays: failAfterDays,
		pageSize:      pageSize,
	}
}

// FailureResult is stored on jobs failed by the sweep.
func (s *Sweeper) FailureResult() string {
	return fmt.Sprintf("Failed automatically due to no result after %d connections", s.allowed)
}

// Expired reports whether j missed more scheduled connections than allowed.
// Jobs older than the fail-after period expire without building a schedule,
// since a sensor connects at least once a day.
func (s *Sweeper) Expired(j *job.Job, p *profile.Profile, now time.Time) bool {
	elapsed := now.Sub(j.CreatedAt)
	if int(elapsed/(24*time.Hour)) > s.failAfterDays {
		return true
	}

	moments := BuildConnectSchedule(
		j.CreatedAt,
		p.Int(codec.ConnectionScheduleStart),
		p.Int(codec.ConnectionScheduleStop),
		s.allowed,
		p.Int(codec.MeasurementInterval),
	)
	return CountMoments(moments, j.CreatedAt, now) > s.allowed
}

// SweepDevice fails the expired pending jobs of one sensor.
func (s *Sweeper) SweepDevice(ctx context.Context, sensor *device.Sensor, now time.Time) (int, error) {
	pending, err := s.jobs.ListPending(ctx, device.KindSensor, sensor.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	failed := 0
	for _, j := range pending {
		if !s.Expired(j, sensor.Profile, now) {
			continue
		}
		ok, err := s.fail(ctx, j, now)
		if err != nil {
			return failed, err
		}
		if ok {
			failed++
		}
	}

	if failed > 0 {
		logger.Debug("Jobs failed due to missed connections",
			zap.String("sensor_id", sensor.ID.String()),
			zap.Int("failed", failed),
			zap.Int("allowed_connections", s.allowed),
		)
	}
	return failed, nil
}

// Sweep walks every pending sensor job, for sensors that stay silent.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	profiles := make(map[uuid.UUID]*profile.Profile)
	failed := 0

	offset := 0
	for {
		page, err := s.jobs.ListAllPending(ctx, device.KindSensor, offset, s.pageSize)
		if err != nil {
			return failed, fmt.Errorf("failed to list pending jobs: %w", err)
		}

		pageFailed := 0
		for _, j := range page {
			p, ok := profiles[j.DeviceID]
			if !ok {
				sensor, err := s.sensors.GetByID(ctx, j.DeviceID)
				if err != nil {
					logger.Warn("Skipping job of unknown sensor", zap.String("job_id", j.ID.String()), zap.Error(err))
					continue
				}
				p = sensor.Profile
				profiles[j.DeviceID] = p
			}
			if !s.Expired(j, p, now) {
				continue
			}
			ok, err := s.fail(ctx, j, now)
			if err != nil {
				return failed, err
			}
			if ok {
				pageFailed++
			}
		}
		failed += pageFailed

		if len(page) < s.pageSize {
			break
		}
		// Failed jobs leave the pending set and shift later pages back.
		offset += s.pageSize - pageFailed
	}

	if failed > 0 {
		logger.Info("Timed out jobs failed", zap.Int("failed", failed), zap.String("event", "jobs_swept"))
	}
	return failed, nil
}

func (s *Sweeper) fail(ctx context.Context, j *job.Job, now time.Time) (bool, error) {
	ok, err := s.jobs.Complete(ctx, j.ID, job.StatusFailure, s.FailureResult(), now)
	if err != nil {
		return false, fmt.Errorf("failed to fail job %s: %w", j.ID, err)
	}
	if ok {
		metrics.JobsCompleted.WithLabelValues(string(j.Type), string(job.StatusFailure)).Inc()
	}
	return ok, nil
}
