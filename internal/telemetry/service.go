package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/pkg/codec"
)

// Service persists interpreted telemetry.
type Service struct {
	tx      domain.Transactor
	sensors device.SensorRepository
	records device.RecordRepository
}

// NewService creates a new telemetry service
func NewService(tx domain.Transactor, sensors device.SensorRepository, records device.RecordRepository) *Service {
	return &Service{tx: tx, sensors: sensors, records: records}
}

// Ingest interprets msg for s and stores the result. The returned sensor
// carries the new state.
func (s *Service) Ingest(ctx context.Context, sensor *device.Sensor, msg codec.Message, now time.Time) (*Result, error) {
	res := Interpret(sensor, msg, now)
	if err := s.Apply(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Apply writes the records and saves the sensor once, all in one
// transaction. Error records stay actual side by side, so every active
// error is reset before the new codes land.
func (s *Service) Apply(ctx context.Context, res *Result) error {
	sensor := res.Sensor
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.records.ResetActual(ctx, device.KindSensor, sensor.ID, device.MetricError); err != nil {
			return fmt.Errorf("failed to reset error records: %w", err)
		}

		if res.Moisture {
			if rec := res.Record(device.MetricFullness); rec != nil {
				dry, err := s.records.LatestDryFullness(ctx, device.KindSensor, sensor.ID)
				if err != nil {
					return fmt.Errorf("failed to load moisture-free fullness: %w", err)
				}
				rec.Metadata[device.MetadataDryFullness] = dry
			}
		}

		for _, rec := range res.Records {
			var err error
			if rec.Metric == device.MetricError {
				err = s.records.Add(ctx, rec)
			} else {
				err = s.records.Append(ctx, rec)
			}
			if err != nil {
				return fmt.Errorf("failed to store %s record: %w", rec.Metric, err)
			}
		}

		sensor.UpdatedAt = time.Now().UTC()
		if err := s.sensors.Save(ctx, sensor); err != nil {
			return fmt.Errorf("failed to save sensor: %w", err)
		}

		logger.Debug("Telemetry applied",
			zap.String("sensor_id", sensor.ID.String()),
			zap.Int("records", len(res.Records)),
			zap.Bool("moisture", res.Moisture),
			zap.String("event", "telemetry_applied"),
		)
		return nil
	})
}
