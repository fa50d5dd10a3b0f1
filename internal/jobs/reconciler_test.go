package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
	"waste-fleet-monitor/pkg/codec"
)

// racingJobs completes a job right before its payload update lands.
type racingJobs struct {
	*memory.JobRepository
}

func (r racingJobs) UpdatePayloadIfPending(ctx context.Context, id uuid.UUID, payload string) (bool, error) {
	r.Force(id, job.StatusSuccess)
	return r.JobRepository.UpdatePayloadIfPending(ctx, id, payload)
}

func TestSetFieldsCreatesThenUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewReconciler(store, store.Jobs(), codec.MaxPayloadLength)
	sensorID := uuid.New()

	out, err := r.SetFields(ctx, sensorID, []Assignment{
		{Field: codec.MeasurementInterval, Value: "60"},
		{Field: codec.ConnectionScheduleStart, Value: "6"},
	})
	require.NoError(t, err)
	require.Len(t, out.Created, 1)
	assert.Equal(t, "s/intConn:60`s/on_time:6", out.Created[0].Payload)
	assert.Equal(t, job.TypeUpdateConfig, out.Created[0].Type)

	out, err = r.SetFields(ctx, sensorID, []Assignment{{Field: codec.MeasurementInterval, Value: "90"}})
	require.NoError(t, err)
	assert.Empty(t, out.Created)
	require.Len(t, out.Updated, 1)

	all := store.Jobs().All(sensorID)
	require.Len(t, all, 1)
	assert.Equal(t, "s/intConn:90`s/on_time:6", all[0].Payload)
	assert.True(t, all[0].IsPending())
}

func TestSetFieldsUnknownFieldFailsLoudly(t *testing.T) {
	store := memory.New()
	r := NewReconciler(store, store.Jobs(), 0)
	sensorID := uuid.New()

	_, err := r.SetFields(context.Background(), sensorID, []Assignment{{Field: "no_such_field", Value: "1"}})

	assert.ErrorIs(t, err, codec.ErrUnknownField)
	assert.Empty(t, store.Jobs().All(sensorID))
}

func TestSetFieldsRespectsPayloadLimit(t *testing.T) {
	store := memory.New()
	r := NewReconciler(store, store.Jobs(), codec.MaxPayloadLength)
	sensorID := uuid.New()

	var values []Assignment
	total := 0
	for _, spec := range codec.Fields {
		if spec.Default == "" {
			continue
		}
		values = append(values, Assignment{Field: spec.Field, Value: spec.Default})
		total += codec.PairLength(codec.SetKey(spec.Token), spec.Default)
	}
	require.Greater(t, total, codec.MaxPayloadLength)

	out, err := r.SetFields(context.Background(), sensorID, values)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(out.Created), 2)
	seen := 0
	for _, j := range out.Created {
		assert.LessOrEqual(t, len(j.Payload), codec.MaxPayloadLength)
		msg, err := codec.Parse(j.Payload)
		require.NoError(t, err)
		seen += len(msg)
	}
	assert.Equal(t, len(values), seen)
}

func TestSetFieldsRaceLossCreatesReplacement(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sensorID := uuid.New()

	_, err := NewReconciler(store, store.Jobs(), 0).SetFields(ctx, sensorID, []Assignment{
		{Field: codec.ConnectionScheduleStart, Value: "6"},
	})
	require.NoError(t, err)

	r := NewReconciler(store, racingJobs{store.Jobs()}, 0)
	out, err := r.SetFields(ctx, sensorID, []Assignment{{Field: codec.ConnectionScheduleStop, Value: "20"}})
	require.NoError(t, err)
	assert.Empty(t, out.Updated)
	require.Len(t, out.Created, 1)
	assert.Equal(t, "s/on_time:6`s/off_time:20", out.Created[0].Payload)

	all := store.Jobs().All(sensorID)
	require.Len(t, all, 2)
	assert.Equal(t, job.StatusSuccess, all[0].Status)
	assert.True(t, all[1].IsPending())
}

func TestSetFieldsClosesEmptiedJobs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sensorID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	older := &job.Job{DeviceKind: device.KindSensor, DeviceID: sensorID, Type: job.TypeUpdateConfig,
		Payload: "s/on_time:6`s/on_time:7777777", CreatedAt: base}
	newer := &job.Job{DeviceKind: device.KindSensor, DeviceID: sensorID, Type: job.TypeUpdateConfig,
		Payload: "s/off_time:20", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, store.Jobs().Create(ctx, older))
	require.NoError(t, store.Jobs().Create(ctx, newer))

	out, err := NewReconciler(store, store.Jobs(), 27).SetFields(ctx, sensorID, []Assignment{
		{Field: codec.ConnectionScheduleStart, Value: "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{older.ID}, out.Superseded)
	assert.Equal(t, []uuid.UUID{newer.ID}, out.Updated)
	assert.Empty(t, out.Created)

	closed, err := store.Jobs().GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailure, closed.Status)
	assert.Equal(t, SupersededResult, closed.Result)

	pending, err := store.Jobs().ListPending(ctx, device.KindSensor, sensorID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s/off_time:20`s/on_time:123", pending[0].Payload)
}

func TestFetchFieldsExtendsPendingFetchJob(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewReconciler(store, store.Jobs(), 0)
	sensorID := uuid.New()

	_, err := r.FetchFields(ctx, sensorID, []codec.Field{codec.ConnectionScheduleStart})
	require.NoError(t, err)
	_, err = r.FetchFields(ctx, sensorID, []codec.Field{codec.ConnectionScheduleStop, codec.ConnectionScheduleStart})
	require.NoError(t, err)

	all := store.Jobs().All(sensorID)
	require.Len(t, all, 1)
	assert.Equal(t, job.TypeFetchConfig, all[0].Type)
	assert.Equal(t, "g/on_time`g/off_time", all[0].Payload)
}

func TestSetFieldsRunsInOneTransaction(t *testing.T) {
	store := memory.New()
	r := NewReconciler(store, store.Jobs(), 0)

	_, err := r.SetFields(context.Background(), uuid.New(), []Assignment{{Field: codec.GPSTimeout, Value: "60"}})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Transactions)
}
