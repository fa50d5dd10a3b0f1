package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/jobs"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/notification"
	"waste-fleet-monitor/internal/telemetry"
	"waste-fleet-monitor/pkg/codec"
)

var (
	ErrMissingHardwareID = errors.New("topic carries no hardware identity")
	ErrMalformedPayload  = errors.New("malformed sensor payload")
)

// Outcome says what happened to one message.
type Outcome string

const (
	OutcomeProcessed  Outcome = "processed"
	OutcomeOnboarding Outcome = "onboarding"
	OutcomeDiscarded  Outcome = "discarded"
	OutcomeFailed     Outcome = "failed"
)

// JobDispatcher hands a sensor over for asynchronous job delivery.
type JobDispatcher interface {
	Dispatch(sensor *device.Sensor) bool
}

// StatusEvaluator raises notifications for a device state.
type StatusEvaluator interface {
	Evaluate(ctx context.Context, s notification.DeviceStatus) (int, error)
}

// PipelineDeps collects the collaborators of a Pipeline. Dispatcher and
// Policy are optional.
type PipelineDeps struct {
	Tx          domain.Transactor
	Sensors     device.SensorRepository
	Records     device.RecordRepository
	RawMessages device.RawMessageRepository
	Onboarding  device.OnboardingRepository
	License     *LicenseService
	Telemetry   *telemetry.Service
	Acks        *jobs.Acknowledger
	Sweeper     *jobs.Sweeper
	Dispatcher  JobDispatcher
	Policy      StatusEvaluator
	Now         func() time.Time
}

// Pipeline runs one sensor message from topic to notifications.
type Pipeline struct {
	deps PipelineDeps
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{deps: deps}
}

// Handle processes one publication. A nil error with OutcomeOnboarding or
// OutcomeDiscarded means the message was intentionally dropped.
func (p *Pipeline) Handle(ctx context.Context, topic string, payload []byte) (Outcome, error) {
	hwid, ok := HardwareIdentity(topic)
	if !ok {
		return OutcomeFailed, fmt.Errorf("%w: %s", ErrMissingHardwareID, topic)
	}

	sensor, err := p.deps.Sensors.GetByHardwareIdentity(ctx, hwid)
	if errors.Is(err, device.ErrSensorNotFound) {
		return p.onboard(ctx, hwid)
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to load sensor: %w", err)
	}

	log := logger.Logger.With(
		zap.String("sensor_id", sensor.ID.String()),
		zap.String("hardware_id", hwid),
	)

	if sensor.Disabled {
		log.Debug("Message from disabled sensor discarded")
		return OutcomeDiscarded, nil
	}

	text := string(payload)
	msg, err := codec.Parse(text)
	if err != nil {
		if text == PowerOffPayload {
			log.Debug("Sensor powered off")
			return OutcomeDiscarded, nil
		}
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	now := p.deps.Now()
	if p.deps.License != nil {
		if err := p.deps.License.Check(ctx, sensor.CompanyID, now); err != nil {
			return OutcomeFailed, err
		}
	}

	var res *telemetry.Result
	err = p.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		raw := &device.RawMessage{
			DeviceKind: device.KindSensor,
			DeviceID:   sensor.ID,
			Topic:      topic,
			Payload:    text,
			Data:       rawData(msg),
			CreatedAt:  now,
		}
		if err := p.deps.RawMessages.Store(ctx, raw); err != nil {
			return fmt.Errorf("failed to store raw message: %w", err)
		}

		var err error
		if res, err = p.deps.Telemetry.Ingest(ctx, sensor, msg, now); err != nil {
			return err
		}
		if _, err := p.deps.Acks.Acknowledge(ctx, sensor.ID, msg, text, now); err != nil {
			return fmt.Errorf("failed to acknowledge jobs: %w", err)
		}
		if _, err := p.deps.Sweeper.SweepDevice(ctx, res.Sensor, now); err != nil {
			return fmt.Errorf("failed to sweep jobs: %w", err)
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	if p.deps.Dispatcher != nil && !p.deps.Dispatcher.Dispatch(res.Sensor) {
		log.Debug("Job delivery already queued for sensor")
	}

	if p.deps.Policy != nil {
		p.evaluate(ctx, res.Sensor, log)
	}

	log.Debug("Sensor message processed", zap.Int("records", len(res.Records)))
	return OutcomeProcessed, nil
}

func (p *Pipeline) onboard(ctx context.Context, hwid string) (Outcome, error) {
	if p.deps.Onboarding == nil {
		return OutcomeDiscarded, nil
	}
	created, err := p.deps.Onboarding.CreateIfAbsent(ctx, hwid)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to create onboarding request: %w", err)
	}
	if created {
		logger.Info("Onboarding request created",
			zap.String("hardware_id", hwid),
			zap.String("event", "onboarding_requested"),
		)
	} else {
		logger.Info("Message from sensor awaiting onboarding discarded", zap.String("hardware_id", hwid))
	}
	return OutcomeOnboarding, nil
}

// evaluate failures never fail the message; the data is already stored.
func (p *Pipeline) evaluate(ctx context.Context, s *device.Sensor, log *zap.Logger) {
	codes, err := p.deps.Records.ActiveErrorCodes(ctx, device.KindSensor, s.ID)
	if err != nil {
		log.Error("Failed to load active error codes", zap.Error(err))
		return
	}
	if _, err := p.deps.Policy.Evaluate(ctx, notification.SensorStatus(s, codes)); err != nil {
		log.Error("Failed to evaluate sensor status", zap.Error(err))
	}
}

func rawData(msg codec.Message) map[string]any {
	out := make(map[string]any, len(msg))
	for k, v := range msg.Map() {
		out[k] = v
	}
	return out
}
