package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
)

// TaskFunc performs one run of a periodic task and reports how many items
// it touched.
type TaskFunc func(ctx context.Context, now time.Time) (int, error)

// Task is a named periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	// RunAtStart runs the task once before the first tick.
	RunAtStart bool
	Run        TaskFunc
}

// Scheduler runs each task on its own ticker until the context is done.
type Scheduler struct {
	tasks []Task
	now   func() time.Time
	wg    sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{now: func() time.Time { return time.Now().UTC() }}
}

// Add registers a task. Tasks with a non-positive interval are skipped.
func (s *Scheduler) Add(task Task) {
	if task.Interval <= 0 {
		logger.Warn("Periodic task disabled", zap.String("task", task.Name))
		return
	}
	s.tasks = append(s.tasks, task)
}

// Start launches every registered task.
func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		s.wg.Add(1)
		go func(task Task) {
			defer s.wg.Done()
			s.loop(ctx, task)
		}(task)
	}
}

// Wait blocks until every task loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	logger.Info("Periodic task started",
		zap.String("task", task.Name),
		zap.Duration("interval", task.Interval),
	)

	if task.RunAtStart {
		s.runOnce(ctx, task)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Periodic task stopped", zap.String("task", task.Name))
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.TaskRuns.WithLabelValues(task.Name, "panic").Inc()
			logger.Error("Periodic task panicked", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	n, err := task.Run(ctx, s.now())
	if err != nil {
		metrics.TaskRuns.WithLabelValues(task.Name, "failed").Inc()
		logger.Error("Periodic task failed", zap.String("task", task.Name), zap.Error(err))
		return
	}

	metrics.TaskRuns.WithLabelValues(task.Name, "ok").Inc()
	logger.Debug("Periodic task finished",
		zap.String("task", task.Name),
		zap.Int("affected", n),
		zap.Duration("took", time.Since(start)),
	)
}
