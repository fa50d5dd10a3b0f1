package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/pkg/codec"
)

// SupersededResult closes pending jobs whose pairs all moved to other jobs.
const SupersededResult = "Payload moved to another job"

// Assignment is a new value for one settings field.
type Assignment struct {
	Field codec.Field
	Value string
}

// Outcome lists the jobs a reconciliation touched.
type Outcome struct {
	Updated    []uuid.UUID
	Created    []*job.Job
	Superseded []uuid.UUID
}

// Reconciler merges settings changes into the pending jobs of a sensor.
type Reconciler struct {
	tx    domain.Transactor
	jobs  job.Repository
	limit int
}

func NewReconciler(tx domain.Transactor, jobs job.Repository, limit int) *Reconciler {
	if limit <= 0 {
		limit = codec.MaxPayloadLength
	}
	return &Reconciler{tx: tx, jobs: jobs, limit: limit}
}

// SetFields packs `s/<token>:<value>` pairs into UPDATE_CONFIG jobs.
func (r *Reconciler) SetFields(ctx context.Context, sensorID uuid.UUID, values []Assignment) (*Outcome, error) {
	pairs := make([]codec.Pair, 0, len(values))
	for _, a := range values {
		token, err := codec.TokenFor(a.Field)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, codec.Pair{Key: codec.SetKey(token), Value: a.Value})
	}
	return r.reconcile(ctx, sensorID, job.TypeUpdateConfig, pairs)
}

// FetchFields asks the sensor to report fields. Requests join the pending
// FETCH_CONFIG job instead of opening another one.
func (r *Reconciler) FetchFields(ctx context.Context, sensorID uuid.UUID, fields []codec.Field) (*Outcome, error) {
	pairs := make([]codec.Pair, 0, len(fields))
	for _, f := range fields {
		token, err := codec.TokenFor(f)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, codec.Pair{Key: codec.FetchKey(token)})
	}
	return r.reconcile(ctx, sensorID, job.TypeFetchConfig, pairs)
}

func (r *Reconciler) reconcile(ctx context.Context, sensorID uuid.UUID, t job.Type, pairs []codec.Pair) (*Outcome, error) {
	if len(pairs) == 0 {
		return &Outcome{}, nil
	}

	out := &Outcome{}
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pending, err := r.jobs.ListPending(ctx, device.KindSensor, sensorID, t)
		if err != nil {
			return fmt.Errorf("failed to list pending jobs: %w", err)
		}

		packer := NewPacker(r.limit, pending)
		for _, p := range pairs {
			if err := packer.Put(p.Key, p.Value); err != nil {
				return err
			}
		}

		for _, d := range packer.Emptied() {
			ok, err := r.jobs.Complete(ctx, d.JobID, job.StatusFailure, SupersededResult, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("failed to close emptied job: %w", err)
			}
			if ok {
				out.Superseded = append(out.Superseded, d.JobID)
			}
		}

		created := packer.Created()
		for _, d := range packer.Changed() {
			ok, err := r.jobs.UpdatePayloadIfPending(ctx, d.JobID, d.Payload())
			if err != nil {
				return fmt.Errorf("failed to update job payload: %w", err)
			}
			if ok {
				out.Updated = append(out.Updated, d.JobID)
				continue
			}
			// Completed underneath us; its pairs go out in a fresh job.
			created = append(created, &Draft{Message: d.Message, Changed: true})
		}

		for _, d := range created {
			if len(d.Message) == 0 {
				continue
			}
			j := &job.Job{
				DeviceKind: device.KindSensor,
				DeviceID:   sensorID,
				Type:       t,
				Payload:    d.Payload(),
				CreatedAt:  time.Now().UTC(),
			}
			if err := r.jobs.Create(ctx, j); err != nil {
				return fmt.Errorf("failed to create job: %w", err)
			}
			out.Created = append(out.Created, j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.JobsCreated.WithLabelValues(string(t)).Add(float64(len(out.Created)))
	metrics.JobsCompleted.WithLabelValues(string(t), string(job.StatusFailure)).Add(float64(len(out.Superseded)))
	logger.Info("Sensor jobs reconciled",
		zap.String("sensor_id", sensorID.String()),
		zap.String("type", string(t)),
		zap.Int("updated", len(out.Updated)),
		zap.Int("created", len(out.Created)),
		zap.Int("superseded", len(out.Superseded)),
		zap.String("event", "jobs_reconciled"),
	)
	return out, nil
}
