package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/pkg/codec"
	pkgmqtt "waste-fleet-monitor/pkg/mqtt"
)

// ErrBrokerCredentials is returned when the broker refuses to authenticate.
var ErrBrokerCredentials = errors.New("connection to MQTT broker failed due to invalid credentials")

const (
	// EncodingFailure is the result of jobs that cannot be sent as ASCII.
	EncodingFailure = "Failed to encode job payload in ASCII"
	// EmptyPayloadFailure is the result of config jobs left with no pairs.
	EmptyPayloadFailure = "Job payload is empty"
)

// Config jobs carry their whole command in the payload.
var payloadOnly = map[job.Type]bool{
	job.TypeUpdateConfig: true,
	job.TypeFetchConfig:  true,
}

// Publisher is one broker connection used for a delivery batch.
type Publisher interface {
	Connect() error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}

// Dialer opens a fresh publisher for each batch.
type Dialer func() Publisher

// MQTTDialer derives a unique client id per connection from cfg.
func MQTTDialer(cfg pkgmqtt.Config) Dialer {
	return func() Publisher {
		c := cfg
		c.ClientID = fmt.Sprintf("%s-jobs-%s", cfg.ClientID, uuid.NewString()[:8])
		c.AutoReconnect = false
		c.CleanSession = true
		return pkgmqtt.NewClient(&c)
	}
}

// Types completed as soon as they are published; the sensor never answers them.
var fireAndForget = map[job.Type]bool{
	job.TypeUpdateConfig: true,
	job.TypeCalibrate:    true,
	job.TypeOrient:       true,
}

// Sender publishes the pending jobs of a sensor.
type Sender struct {
	jobs   job.Repository
	dial   Dialer
	qos    byte
	settle time.Duration
}

// NewSender creates a sender; a zero settle delay publishes immediately.
func NewSender(jobs job.Repository, dial Dialer, qos byte, settle time.Duration) *Sender {
	return &Sender{jobs: jobs, dial: dial, qos: qos, settle: settle}
}

// JobsTopic is where a sensor listens for jobs.
func JobsTopic(hardwareIdentity string) string {
	return fmt.Sprintf("/sensors/%s/jobs", hardwareIdentity)
}

// Send returns the number of jobs published. Connection failures are
// returned to the caller unchanged in kind so a scheduler can retry.
func (s *Sender) Send(ctx context.Context, sensor *device.Sensor) (int, error) {
	pending, err := s.jobs.ListPending(ctx, device.KindSensor, sensor.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	if len(pending) == 0 {
		logger.Debug("No pending jobs to send", zap.String("sensor_id", sensor.ID.String()))
		return 0, nil
	}

	if s.settle > 0 {
		timer := time.NewTimer(s.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	publisher := s.dial()
	if err := publisher.Connect(); err != nil {
		if errors.Is(err, pkgmqtt.ErrBadCredentials) {
			return 0, ErrBrokerCredentials
		}
		return 0, err
	}

	topic := JobsTopic(sensor.HardwareIdentity)
	var sent, unencodable, empty []*job.Job
	// Oldest first, in creation order.
	for i := len(pending) - 1; i >= 0; i-- {
		j := pending[i]
		if payloadOnly[j.Type] && j.Payload == "" {
			empty = append(empty, j)
			continue
		}
		payload, ok := WirePayload(j)
		if !ok {
			logger.Warn("No wire payload for job type", zap.String("job_id", j.ID.String()), zap.String("type", string(j.Type)))
			continue
		}
		if !codec.IsASCII(payload) {
			unencodable = append(unencodable, j)
			continue
		}
		if err := publisher.Publish(topic, s.qos, false, []byte(payload)); err != nil {
			publisher.Disconnect()
			return len(sent), fmt.Errorf("failed to publish job %s: %w", j.ID, err)
		}
		sent = append(sent, j)
	}
	publisher.Disconnect()
	metrics.JobsPublished.Add(float64(len(sent)))

	now := time.Now().UTC()
	for _, j := range sent {
		if !fireAndForget[j.Type] {
			continue
		}
		if _, err := s.jobs.Complete(ctx, j.ID, job.StatusSuccess, "", now); err != nil {
			return len(sent), fmt.Errorf("failed to complete sent job %s: %w", j.ID, err)
		}
		metrics.JobsCompleted.WithLabelValues(string(j.Type), string(job.StatusSuccess)).Inc()
	}
	if err := s.fail(ctx, unencodable, EncodingFailure, now); err != nil {
		return len(sent), err
	}
	if err := s.fail(ctx, empty, EmptyPayloadFailure, now); err != nil {
		return len(sent), err
	}

	logger.Debug("Sensor jobs sent",
		zap.String("sensor_id", sensor.ID.String()),
		zap.Int("sent", len(sent)),
		zap.Int("unencodable", len(unencodable)),
		zap.Int("empty", len(empty)),
	)
	return len(sent), nil
}

func (s *Sender) fail(ctx context.Context, jobs []*job.Job, result string, at time.Time) error {
	for _, j := range jobs {
		if _, err := s.jobs.Complete(ctx, j.ID, job.StatusFailure, result, at); err != nil {
			return fmt.Errorf("failed to fail job %s: %w", j.ID, err)
		}
		metrics.JobsCompleted.WithLabelValues(string(j.Type), string(job.StatusFailure)).Inc()
	}
	return nil
}
