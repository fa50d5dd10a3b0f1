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
	"waste-fleet-monitor/internal/telemetry"
	"waste-fleet-monitor/pkg/codec"
)

// Keys a sensor sends back in answer to a get job.
var answerKeys = []struct {
	key string
	typ job.Type
}{
	{telemetry.KeyGPS, job.TypeGetLocation},
	{telemetry.KeySimBalance, job.TypeGetSimBalance},
	{telemetry.KeyPhoneNumber, job.TypeGetPhoneNumber},
}

// Acknowledger completes the jobs a sensor message answers. The newest
// pending job of the matching type wins.
type Acknowledger struct {
	jobs job.Repository
}

func NewAcknowledger(jobs job.Repository) *Acknowledger {
	return &Acknowledger{jobs: jobs}
}

// Acknowledge returns the ids of the jobs it completed.
func (a *Acknowledger) Acknowledge(ctx context.Context, sensorID uuid.UUID, msg codec.Message, payload string, now time.Time) ([]uuid.UUID, error) {
	var completed []uuid.UUID

	for _, ak := range answerKeys {
		value, ok := msg.Get(ak.key)
		if !ok {
			continue
		}
		id, err := a.completeLatest(ctx, sensorID, ak.typ, value, now)
		if err != nil {
			return completed, err
		}
		if id != uuid.Nil {
			completed = append(completed, id)
		}
	}

	for _, key := range msg.Keys() {
		if !codec.IsConfigToken(key) {
			continue
		}
		id, err := a.completeLatest(ctx, sensorID, job.TypeFetchConfig, payload, now)
		if err != nil {
			return completed, err
		}
		if id != uuid.Nil {
			completed = append(completed, id)
		}
		break
	}

	return completed, nil
}

func (a *Acknowledger) completeLatest(ctx context.Context, sensorID uuid.UUID, t job.Type, result string, now time.Time) (uuid.UUID, error) {
	pending, err := a.jobs.ListPending(ctx, device.KindSensor, sensorID, t)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list pending %s jobs: %w", t, err)
	}
	if len(pending) == 0 {
		logger.Warn("No pending job for the answer received",
			zap.String("sensor_id", sensorID.String()),
			zap.String("type", string(t)),
			zap.String("result", result),
		)
		return uuid.Nil, nil
	}

	latest := pending[0]
	ok, err := a.jobs.Complete(ctx, latest.ID, job.StatusSuccess, result, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to complete job %s: %w", latest.ID, err)
	}
	if !ok {
		return uuid.Nil, nil
	}
	metrics.JobsCompleted.WithLabelValues(string(t), string(job.StatusSuccess)).Inc()
	return latest.ID, nil
}
