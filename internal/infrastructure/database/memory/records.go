package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/device"
)

type RecordRepository struct{ s *Store }

func (r *RecordRepository) Append(ctx context.Context, rec *device.Record) error {
	if err := r.ResetActual(ctx, rec.DeviceKind, rec.DeviceID, rec.Metric); err != nil {
		return err
	}
	rec.Actual = true
	return r.Add(ctx, rec)
}

func (r *RecordRepository) Add(_ context.Context, rec *device.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	c := *rec
	r.s.records = append(r.s.records, &c)
	return nil
}

func (r *RecordRepository) ResetActual(_ context.Context, kind device.Kind, deviceID uuid.UUID, metric device.Metric) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.records {
		if rec.DeviceKind == kind && rec.DeviceID == deviceID && rec.Metric == metric {
			rec.Actual = false
		}
	}
	return nil
}

func (r *RecordRepository) LatestActual(_ context.Context, kind device.Kind, deviceID uuid.UUID, metric device.Metric) (*device.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.records) - 1; i >= 0; i-- {
		rec := r.s.records[i]
		if rec.DeviceKind == kind && rec.DeviceID == deviceID && rec.Metric == metric && rec.Actual {
			c := *rec
			return &c, nil
		}
	}
	return nil, device.ErrRecordNotFound
}

func (r *RecordRepository) ActiveErrorCodes(_ context.Context, kind device.Kind, deviceID uuid.UUID) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var codes []int
	for _, rec := range r.s.records {
		if rec.DeviceKind == kind && rec.DeviceID == deviceID && rec.Metric == device.MetricError && rec.Actual {
			codes = append(codes, int(rec.Value))
		}
	}
	return codes, nil
}

func (r *RecordRepository) LatestDryFullness(_ context.Context, kind device.Kind, deviceID uuid.UUID) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.records) - 1; i >= 0; i-- {
		rec := r.s.records[i]
		if rec.DeviceKind != kind || rec.DeviceID != deviceID || rec.Metric != device.MetricFullness {
			continue
		}
		if _, wet := rec.Metadata[device.MetadataAnyMoisture]; !wet {
			return rec.Value, nil
		}
	}
	return 0, nil
}

func (r *RecordRepository) Store(_ context.Context, msg *device.RawMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	c := *msg
	r.s.rawMessages = append(r.s.rawMessages, &c)
	return nil
}

// List returns the records of one device metric in insertion order.
func (r *RecordRepository) List(kind device.Kind, deviceID uuid.UUID, metric device.Metric) []*device.Record {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*device.Record
	for _, rec := range r.s.records {
		if rec.DeviceKind == kind && rec.DeviceID == deviceID && rec.Metric == metric {
			c := *rec
			out = append(out, &c)
		}
	}
	return out
}

// RawMessages returns every stored raw message.
func (r *RecordRepository) RawMessages() []*device.RawMessage {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*device.RawMessage, len(r.s.rawMessages))
	copy(out, r.s.rawMessages)
	return out
}
