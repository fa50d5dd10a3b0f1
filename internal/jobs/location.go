package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
)

// LocationScheduler requests a GPS fix from every enabled sensor that has
// no such request pending.
type LocationScheduler struct {
	sensors  device.SensorRepository
	jobs     job.Repository
	pageSize int
}

func NewLocationScheduler(sensors device.SensorRepository, jobs job.Repository, pageSize int) *LocationScheduler {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &LocationScheduler{sensors: sensors, jobs: jobs, pageSize: pageSize}
}

// Run returns the number of jobs created.
func (s *LocationScheduler) Run(ctx context.Context) (int, error) {
	created, processed := 0, 0

	for offset := 0; ; offset += s.pageSize {
		sensors, err := s.sensors.ListEnabled(ctx, offset, s.pageSize)
		if err != nil {
			return created, fmt.Errorf("failed to list sensors: %w", err)
		}
		processed += len(sensors)

		ids := make([]uuid.UUID, len(sensors))
		for i, sensor := range sensors {
			ids[i] = sensor.ID
		}
		withJob, err := s.jobs.DevicesWithPending(ctx, device.KindSensor, job.TypeGetLocation, ids)
		if err != nil {
			return created, fmt.Errorf("failed to check pending location jobs: %w", err)
		}

		now := time.Now().UTC()
		for _, id := range ids {
			if withJob[id] {
				continue
			}
			j := &job.Job{DeviceKind: device.KindSensor, DeviceID: id, Type: job.TypeGetLocation, CreatedAt: now}
			if err := s.jobs.Create(ctx, j); err != nil {
				return created, fmt.Errorf("failed to create location job: %w", err)
			}
			created++
		}

		if len(sensors) < s.pageSize {
			break
		}
	}

	if processed == 0 {
		logger.Debug("No sensors found to generate location update jobs")
		return 0, nil
	}
	metrics.JobsCreated.WithLabelValues(string(job.TypeGetLocation)).Add(float64(created))
	logger.Info("Location update jobs created",
		zap.Int("created", created),
		zap.Int("sensors", processed),
		zap.String("event", "location_jobs_scheduled"),
	)
	return created, nil
}
