package ingestion

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
)

// Handler processes one message end to end.
type Handler interface {
	Handle(ctx context.Context, topic string, payload []byte) (Outcome, error)
}

// Processor fans inbound messages out to a fixed pool of workers.
type Processor struct {
	handler Handler

	workerCount int
	timeout     time.Duration
	queue       chan *Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	metrics *MetricsTracker
}

// NewProcessor creates a processor; timeout bounds a single message.
func NewProcessor(handler Handler, workerCount, bufferSize int, timeout time.Duration) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount <= 0 {
		workerCount = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Processor{
		handler:     handler,
		workerCount: workerCount,
		timeout:     timeout,
		queue:       make(chan *Message, bufferSize),
		ctx:         ctx,
		cancel:      cancel,
		metrics:     NewMetricsTracker(),
	}
}

func (p *Processor) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Info("Ingestion processor started",
		zap.Int("workers", p.workerCount),
		zap.Int("buffer", cap(p.queue)),
	)
}

// Stop drains the queue and waits for the workers.
func (p *Processor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	logger.Info("Ingestion processor stopped")
}

// Submit queues msg without blocking. Invalid messages are rejected and a
// full buffer drops the message.
func (p *Processor) Submit(msg *Message) bool {
	metrics.MessagesReceived.WithLabelValues("mqtt").Inc()

	if err := ValidateMessage(msg); err != nil {
		logger.Warn("Invalid sensor message", zap.Error(err))
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.MessagesFailed++
		})
		metrics.MessagesProcessed.WithLabelValues(string(OutcomeFailed)).Inc()
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.queue <- msg:
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.BufferSize = len(p.queue)
		})
		return true
	default:
		logger.Warn("Ingestion buffer full, dropping message", zap.String("topic", msg.Topic))
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.MessagesDropped++
		})
		metrics.MessagesDropped.Inc()
		return false
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for msg := range p.queue {
		p.process(id, msg)
	}
}

func (p *Processor) process(id int, msg *Message) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	timer := metrics.NewTimer()
	outcome, err := p.handler.Handle(ctx, msg.Topic, msg.Payload)
	timer.ObserveDuration(metrics.ProcessingDuration)
	metrics.MessagesProcessed.WithLabelValues(string(outcome)).Inc()

	if err != nil {
		logger.Error("Failed to process sensor message",
			zap.Int("worker", id),
			zap.String("topic", msg.Topic),
			zap.Error(err),
		)
	}

	p.metrics.Update(func(m *IngestMetrics) {
		m.BufferSize = len(p.queue)
		switch {
		case err != nil:
			m.MessagesFailed++
			return
		case outcome == OutcomeOnboarding:
			m.OnboardingRequests++
		case outcome == OutcomeDiscarded:
			m.MessagesDiscarded++
		default:
			m.MessagesProcessed++
		}
		m.LastProcessedAt = time.Now()
		m.observeDuration(timer.Duration())
	})
}

// GetMetrics returns current metrics
func (p *Processor) GetMetrics() IngestMetrics {
	return p.metrics.Snapshot()
}

// OnMetricsChange registers a listener for every metrics update.
func (p *Processor) OnMetricsChange(fn func(IngestMetrics)) {
	p.metrics.OnChange(fn)
}
