package jobs

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
)

func TestEnqueueGetCommandIsSingle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := NewCommander(store, store.Jobs(), 0)
	sensorID := uuid.New()

	first, created, err := c.Enqueue(ctx, sensorID, job.TypeGetLocation, "")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := c.Enqueue(ctx, sensorID, job.TypeGetLocation, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.Jobs().All(sensorID), 1)
}

func TestEnqueueRepeatableCommand(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := NewCommander(store, store.Jobs(), 0)
	sensorID := uuid.New()

	for i := 0; i < 2; i++ {
		_, created, err := c.Enqueue(ctx, sensorID, job.TypeCalibrate, "")
		require.NoError(t, err)
		assert.True(t, created)
	}
	assert.Len(t, store.Jobs().All(sensorID), 2)
}

func TestEnqueueValidation(t *testing.T) {
	store := memory.New()
	c := NewCommander(store, store.Jobs(), 0)

	tests := []struct {
		name    string
		typ     job.Type
		payload string
		wantErr error
	}{
		{name: "config is not a command", typ: job.TypeUpdateConfig, payload: "s/tGps:1", wantErr: ErrUnsupportedCommand},
		{name: "unknown type", typ: job.TypePressControl, wantErr: ErrUnsupportedCommand},
		{name: "balance needs ussd code", typ: job.TypeGetSimBalance, wantErr: ErrPayloadRequired},
		{name: "firmware needs url", typ: job.TypeUpdateFirmware, wantErr: ErrPayloadRequired},
		{name: "oversized payload", typ: job.TypeUpdateFirmware, payload: strings.Repeat("x", 200), wantErr: ErrPayloadOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Enqueue(context.Background(), uuid.New(), tt.typ, tt.payload)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWirePayload(t *testing.T) {
	tests := []struct {
		typ     job.Type
		payload string
		want    string
		ok      bool
	}{
		{job.TypeGetLocation, "", "e/gps", true},
		{job.TypeCalibrate, "", "e/env", true},
		{job.TypeOrient, "", "e/orient", true},
		{job.TypeGetSimBalance, "*245#", "g/simBalance`*245#", true},
		{job.TypeGetPhoneNumber, "*111#", "g/phoneNum`*111#", true},
		{job.TypeUpdateConfig, "s/tGps:60", "s/tGps:60", true},
		{job.TypeFetchConfig, "g/tGps", "g/tGps", true},
		{job.TypeUpdateFirmware, "http://x/fw.bin", "http://x/fw.bin", true},
		{job.TypeDownloadAd, "ad", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got, ok := WirePayload(&job.Job{Type: tt.typ, Payload: tt.payload})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
