package ingestion

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/jobs"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
)

// Delivery failure reasons.
const (
	FailureCredentials = "credentials"
	FailureBroker      = "broker"
)

// JobSender publishes the pending jobs of one sensor.
type JobSender interface {
	Send(ctx context.Context, sensor *device.Sensor) (int, error)
}

// Dispatcher delivers pending jobs off the ingestion path. A sensor is
// queued at most once at a time. Failed deliveries leave the jobs pending
// and the next message from the sensor dispatches them again.
type Dispatcher struct {
	sender  JobSender
	queue   chan *device.Sensor
	workers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewDispatcher(sender JobSender, workers, bufferSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:   sender,
		queue:    make(chan *device.Sensor, bufferSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[uuid.UUID]struct{}),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	logger.Info("Job dispatcher started", zap.Int("workers", d.workers))
}

// Stop cancels in-flight settle delays and waits for the workers.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	logger.Info("Job dispatcher stopped")
}

// Dispatch returns false when the sensor is already queued or the queue is full.
func (d *Dispatcher) Dispatch(sensor *device.Sensor) bool {
	d.mu.Lock()
	if _, ok := d.inflight[sensor.ID]; ok {
		d.mu.Unlock()
		return false
	}
	d.inflight[sensor.ID] = struct{}{}
	d.mu.Unlock()

	select {
	case d.queue <- sensor:
		return true
	default:
		d.release(sensor.ID)
		logger.Warn("Job dispatch queue full", zap.String("sensor_id", sensor.ID.String()))
		return false
	}
}

func (d *Dispatcher) release(id uuid.UUID) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case sensor := <-d.queue:
			d.send(sensor)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) send(sensor *device.Sensor) {
	defer d.release(sensor.ID)

	n, err := d.sender.Send(d.ctx, sensor)
	switch {
	case err == nil:
		if n > 0 {
			logger.Debug("Jobs delivered", zap.String("sensor_id", sensor.ID.String()), zap.Int("jobs", n))
		}
	case errors.Is(err, context.Canceled):
	case errors.Is(err, jobs.ErrBrokerCredentials):
		metrics.JobDeliveryFailures.WithLabelValues(FailureCredentials).Inc()
		logger.Error("Broker rejected job sender credentials", zap.Error(err))
	default:
		metrics.JobDeliveryFailures.WithLabelValues(FailureBroker).Inc()
		logger.Warn("Failed to deliver jobs, left pending",
			zap.String("sensor_id", sensor.ID.String()),
			zap.Int("sent", n),
			zap.Error(err),
		)
	}
}
