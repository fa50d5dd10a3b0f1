package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/internal/telemetry"
	"waste-fleet-monitor/pkg/codec"
)

var (
	ErrUnsupportedCommand = errors.New("job type cannot be enqueued as a command")
	ErrPayloadRequired    = errors.New("job type requires a payload")
)

type commandSpec struct {
	needsPayload bool
	// single keeps one pending job per sensor; answers are matched by type.
	single bool
}

var commands = map[job.Type]commandSpec{
	job.TypeGetLocation:    {single: true},
	job.TypeCalibrate:      {},
	job.TypeOrient:         {},
	job.TypeGetSimBalance:  {needsPayload: true, single: true},
	job.TypeGetPhoneNumber: {needsPayload: true, single: true},
	job.TypeUpdateFirmware: {needsPayload: true},
}

// Commander enqueues operator commands for a sensor.
type Commander struct {
	tx    domain.Transactor
	jobs  job.Repository
	limit int
}

func NewCommander(tx domain.Transactor, jobs job.Repository, limit int) *Commander {
	if limit <= 0 {
		limit = codec.MaxPayloadLength
	}
	return &Commander{tx: tx, jobs: jobs, limit: limit}
}

// Enqueue creates a command job. For get commands an already pending job
// is returned instead, with created false.
func (c *Commander) Enqueue(ctx context.Context, sensorID uuid.UUID, t job.Type, payload string) (*job.Job, bool, error) {
	spec, ok := commands[t]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedCommand, t)
	}
	if spec.needsPayload && payload == "" {
		return nil, false, fmt.Errorf("%w: %s", ErrPayloadRequired, t)
	}
	candidate := &job.Job{
		DeviceKind: device.KindSensor,
		DeviceID:   sensorID,
		Type:       t,
		Payload:    payload,
	}
	if wire, ok := WirePayload(candidate); ok && len(wire) > c.limit {
		return nil, false, fmt.Errorf("%w: %s payload is %d characters", ErrPayloadOverflow, t, len(wire))
	}

	var result *job.Job
	created := false
	err := c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if spec.single {
			pending, err := c.jobs.ListPending(ctx, device.KindSensor, sensorID, t)
			if err != nil {
				return fmt.Errorf("failed to list pending jobs: %w", err)
			}
			if len(pending) > 0 {
				result = pending[0]
				return nil
			}
		}

		candidate.CreatedAt = time.Now().UTC()
		if err := c.jobs.Create(ctx, candidate); err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		result = candidate
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		metrics.JobsCreated.WithLabelValues(string(t)).Inc()
		logger.Info("Sensor command enqueued",
			zap.String("sensor_id", sensorID.String()),
			zap.String("job_id", result.ID.String()),
			zap.String("type", string(t)),
			zap.String("event", "command_enqueued"),
		)
	}
	return result, created, nil
}

// WirePayload is what the sensor receives for a job. Types without a wire
// form report false.
func WirePayload(j *job.Job) (string, bool) {
	switch j.Type {
	case job.TypeUpdateConfig, job.TypeFetchConfig, job.TypeUpdateFirmware:
		return j.Payload, true
	case job.TypeGetLocation:
		return codec.ExecKey("gps"), true
	case job.TypeCalibrate:
		return codec.ExecKey("env"), true
	case job.TypeOrient:
		return codec.ExecKey("orient"), true
	case job.TypeGetSimBalance:
		return withPayload(codec.FetchKey(telemetry.KeySimBalance), j.Payload), true
	case job.TypeGetPhoneNumber:
		return withPayload(codec.FetchKey(telemetry.KeyPhoneNumber), j.Payload), true
	}
	return "", false
}

func withPayload(key, payload string) string {
	if payload == "" {
		return key
	}
	return key + codec.PairSeparator + payload
}
