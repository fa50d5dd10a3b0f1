package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/pkg/codec"
)

var ErrNoFields = errors.New("no fields specified")

// Propagator turns settings changes into jobs for every affected sensor.
type Propagator struct {
	sensors    device.SensorRepository
	reconciler *Reconciler
	pageSize   int
}

func NewPropagator(sensors device.SensorRepository, reconciler *Reconciler, pageSize int) *Propagator {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Propagator{sensors: sensors, reconciler: reconciler, pageSize: pageSize}
}

// ProfileChanged sends exactly the fields whose value differs between the
// two versions to every sensor using the profile. It returns the number of
// sensors reconciled.
func (p *Propagator) ProfileChanged(ctx context.Context, before, after *profile.Profile) (int, error) {
	changed := profile.Diff(before, after)
	if len(changed) == 0 {
		return 0, nil
	}

	values := make([]Assignment, len(changed))
	for i, f := range changed {
		if _, err := codec.TokenFor(f); err != nil {
			return 0, err
		}
		values[i] = Assignment{Field: f, Value: after.Value(f)}
	}

	total := 0
	for offset := 0; ; offset += p.pageSize {
		sensors, err := p.sensors.ListByProfile(ctx, after.ID, offset, p.pageSize)
		if err != nil {
			return total, fmt.Errorf("failed to list profile sensors: %w", err)
		}
		for _, s := range sensors {
			if _, err := p.reconciler.SetFields(ctx, s.ID, values); err != nil {
				return total, fmt.Errorf("failed to configure sensor %s: %w", s.ID, err)
			}
			total++
		}
		if len(sensors) < p.pageSize {
			break
		}
	}

	if total == 0 {
		logger.Info("No sensors use the changed profile", zap.String("profile_id", after.ID.String()))
		return 0, nil
	}
	logger.Info("Profile change propagated",
		zap.String("profile_id", after.ID.String()),
		zap.Int("fields", len(changed)),
		zap.Int("sensors", total),
		zap.String("event", "profile_propagated"),
	)
	return total, nil
}

// QueryAll asks every enabled sensor to report fields.
func (p *Propagator) QueryAll(ctx context.Context, fields []codec.Field) (int, error) {
	if len(fields) == 0 {
		logger.Warn("No fields specified for configuration query")
		return 0, ErrNoFields
	}
	for _, f := range fields {
		if _, err := codec.TokenFor(f); err != nil {
			return 0, err
		}
	}

	total := 0
	for offset := 0; ; offset += p.pageSize {
		sensors, err := p.sensors.ListEnabled(ctx, offset, p.pageSize)
		if err != nil {
			return total, fmt.Errorf("failed to list sensors: %w", err)
		}
		for _, s := range sensors {
			if _, err := p.reconciler.FetchFields(ctx, s.ID, fields); err != nil {
				return total, fmt.Errorf("failed to query sensor %s: %w", s.ID, err)
			}
			total++
		}
		if len(sensors) < p.pageSize {
			break
		}
	}

	logger.Debug("Configuration query jobs generated", zap.Int("sensors", total))
	return total, nil
}
