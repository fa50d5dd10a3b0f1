package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
	"waste-fleet-monitor/internal/jobs"
	"waste-fleet-monitor/internal/metrics"
	pkgmqtt "waste-fleet-monitor/pkg/mqtt"
)

type blockingSender struct {
	mu      sync.Mutex
	sent    []uuid.UUID
	release chan struct{}
	started chan struct{}
}

func (s *blockingSender) Send(ctx context.Context, sensor *device.Sensor) (int, error) {
	s.started <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	s.mu.Lock()
	s.sent = append(s.sent, sensor.ID)
	s.mu.Unlock()
	return 1, nil
}

func TestDispatcherQueuesSensorOnce(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{}), started: make(chan struct{}, 4)}
	d := NewDispatcher(sender, 1, 4)
	d.Start()
	defer d.Stop()

	s := &device.Sensor{ID: uuid.New()}
	require.True(t, d.Dispatch(s))
	<-sender.started
	assert.False(t, d.Dispatch(s), "sensor is still in flight")

	close(sender.release)
	assert.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return d.Dispatch(s) }, time.Second, 5*time.Millisecond)
}

func TestDispatcherStopCancelsSend(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{}), started: make(chan struct{}, 1)}
	d := NewDispatcher(sender, 1, 1)
	d.Start()

	require.True(t, d.Dispatch(&device.Sensor{ID: uuid.New()}))
	<-sender.started
	d.Stop()
	assert.Empty(t, sender.sent)
}

type flakyPublisher struct {
	mu         sync.Mutex
	connectErr error
	payloads   []string
}

func (p *flakyPublisher) setConnectErr(err error) {
	p.mu.Lock()
	p.connectErr = err
	p.mu.Unlock()
}

func (p *flakyPublisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectErr
}

func (p *flakyPublisher) Publish(_ string, _ byte, _ bool, payload []byte) error {
	p.mu.Lock()
	p.payloads = append(p.payloads, string(payload))
	p.mu.Unlock()
	return nil
}

func (p *flakyPublisher) Disconnect() {}

func TestDispatcherKeepsJobsPendingOnDeliveryFailure(t *testing.T) {
	tests := []struct {
		name       string
		connectErr error
		reason     string
	}{
		{"broker unreachable", errors.New("connection refused"), FailureBroker},
		{"bad credentials", pkgmqtt.ErrBadCredentials, FailureCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			sensor := &device.Sensor{ID: uuid.New(), HardwareIdentity: "hw-" + tt.reason}
			pending := &job.Job{DeviceKind: device.KindSensor, DeviceID: sensor.ID, Type: job.TypeUpdateConfig, Payload: "s/tGps:60"}
			require.NoError(t, store.Jobs().Create(ctx, pending))

			pub := &flakyPublisher{connectErr: tt.connectErr}
			sender := jobs.NewSender(store.Jobs(), func() jobs.Publisher { return pub }, 1, 0)
			d := NewDispatcher(sender, 1, 2)
			d.Start()
			defer d.Stop()

			failures := metrics.JobDeliveryFailures.WithLabelValues(tt.reason)
			before := testutil.ToFloat64(failures)
			require.True(t, d.Dispatch(sensor))
			assert.Eventually(t, func() bool { return testutil.ToFloat64(failures) == before+1 }, time.Second, 5*time.Millisecond)

			got, err := store.Jobs().GetByID(ctx, pending.ID)
			require.NoError(t, err)
			assert.True(t, got.IsPending())

			pub.setConnectErr(nil)
			assert.Eventually(t, func() bool { return d.Dispatch(sensor) }, time.Second, 5*time.Millisecond)
			assert.Eventually(t, func() bool {
				got, err := store.Jobs().GetByID(ctx, pending.ID)
				return err == nil && got.Status == job.StatusSuccess
			}, time.Second, 5*time.Millisecond)
		})
	}
}
