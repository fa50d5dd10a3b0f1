package ingestion

import (
	"sync"
	"time"
)

// IngestMetrics tracks ingestion throughput for the health endpoint.
type IngestMetrics struct {
	MessagesReceived      int64
	MessagesProcessed     int64
	MessagesDiscarded     int64
	MessagesFailed        int64
	MessagesDropped       int64
	OnboardingRequests    int64
	LastProcessedAt       time.Time
	AverageProcessingTime time.Duration
	BufferSize            int
}

// MetricsTracker provides a goroutine-safe wrapper around IngestMetrics.
type MetricsTracker struct {
	mu        sync.RWMutex
	metrics   IngestMetrics
	listeners []func(IngestMetrics)
}

func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Update applies fn under the lock and notifies listeners with a snapshot.
func (t *MetricsTracker) Update(fn func(*IngestMetrics)) {
	if fn == nil {
		return
	}

	t.mu.Lock()
	fn(&t.metrics)
	snapshot := t.metrics
	listeners := t.listeners
	t.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

// Snapshot returns a copy of the current metrics.
func (t *MetricsTracker) Snapshot() IngestMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}

// OnChange registers a callback invoked after every update.
func (t *MetricsTracker) OnChange(listener func(IngestMetrics)) {
	if listener == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

// observeDuration folds d into a running average.
func (m *IngestMetrics) observeDuration(d time.Duration) {
	if m.AverageProcessingTime == 0 {
		m.AverageProcessingTime = d
		return
	}
	m.AverageProcessingTime = (m.AverageProcessingTime + d) / 2
}
