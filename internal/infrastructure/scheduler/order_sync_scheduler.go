package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// OrderSyncExecutor runs one attempt of a job, filling in its counters.
type OrderSyncExecutor interface {
	Execute(ctx context.Context, job *OrderSyncJob) error
}

// JobObserver is told about every finished job attempt
type JobObserver interface {
	SyncJobFinished(ctx context.Context, status string, duration time.Duration, orders int)
}

// OrderSyncSchedulerConfig sizes the worker pool. RetryDelay is the base of
// the exponential retry backoff; HistorySize bounds the finished jobs kept
// for inspection.
type OrderSyncSchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	HistorySize       int
}

const defaultHistorySize = 100

// DefaultOrderSyncSchedulerConfig returns default configuration
func DefaultOrderSyncSchedulerConfig() OrderSyncSchedulerConfig {
	return OrderSyncSchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 4,
		QueueSize:         100,
		JobTimeout:        15 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
		HistorySize:       defaultHistorySize,
	}
}

// Validate rejects unusable pool sizes and defaults HistorySize.
func (c *OrderSyncSchedulerConfig) Validate() error {
	switch {
	case c.MaxConcurrentJobs <= 0, c.QueueSize <= 0, c.JobTimeout <= 0:
		return ErrInvalidConfig
	case c.RetryAttempts < 0, c.RetryDelay < 0:
		return ErrInvalidConfig
	}
	if c.HistorySize <= 0 {
		c.HistorySize = defaultHistorySize
	}
	return nil
}

// OrderSyncScheduler runs order sync jobs on a fixed pool of workers.
// Failed jobs are re-queued after their backoff until retries run out.
type OrderSyncScheduler struct {
	config   OrderSyncSchedulerConfig
	executor OrderSyncExecutor
	observer JobObserver
	logger   *zap.Logger

	jobs chan *OrderSyncJob
	wg   sync.WaitGroup

	mu      sync.Mutex
	running bool
	stop    context.CancelFunc

	history *jobHistory
}

// NewOrderSyncScheduler creates a stopped scheduler.
func NewOrderSyncScheduler(config OrderSyncSchedulerConfig, executor OrderSyncExecutor, logger *zap.Logger) (*OrderSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OrderSyncScheduler{
		config:   config,
		executor: executor,
		logger:   logger.Named("order_sync_scheduler"),
		jobs:     make(chan *OrderSyncJob, config.QueueSize),
		history:  newJobHistory(config.HistorySize),
	}, nil
}

// SetObserver registers o for job outcomes. Must be called before Start.
func (s *OrderSyncScheduler) SetObserver(o JobObserver) {
	s.observer = o
}

// Start launches the workers. Starting a running scheduler is a no-op.
func (s *OrderSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, s.stop = context.WithCancel(ctx)
	s.running = true
	for id := range s.config.MaxConcurrentJobs {
		s.wg.Add(1)
		go s.work(ctx, id)
	}

	s.logger.Info("Order sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires.
// Queued jobs are dropped.
func (s *OrderSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Order sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Order sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the workers are running
func (s *OrderSyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SubmitJob queues job without blocking.
func (s *OrderSyncScheduler) SubmitJob(job *OrderSyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
	default:
		return ErrJobQueueFull
	}
	s.logger.Debug("Order sync job queued",
		zap.Stringer("job_id", job.ID),
		zap.Stringer("channel_id", job.ChannelID),
		zap.Bool("manual", job.Manual),
	)
	return nil
}

// ScheduleSync queues a sync of one channel for [start, end).
func (s *OrderSyncScheduler) ScheduleSync(channelID uuid.UUID, start, end time.Time, manual bool) (*OrderSyncJob, error) {
	job := NewOrderSyncJob(channelID, start, end, s.config.RetryAttempts)
	job.Manual = manual
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *OrderSyncScheduler) work(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.run(ctx, job, s.logger.With(
				zap.Int("worker_id", id),
				zap.Stringer("job_id", job.ID),
				zap.Stringer("channel_id", job.ChannelID),
			))
		}
	}
}

func (s *OrderSyncScheduler) run(ctx context.Context, job *OrderSyncJob, log *zap.Logger) {
	job.Start()
	log.Info("Order sync job started",
		zap.Time("start_time", job.StartTime),
		zap.Time("end_time", job.EndTime),
		zap.Int("attempt", job.RetryCount+1),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	jobCtx, span := telemetry.StartSpan(jobCtx, "order_sync.job",
		attribute.String("job_id", job.ID.String()),
		attribute.String("channel_id", job.ChannelID.String()),
		attribute.Int("attempt", job.RetryCount+1),
		attribute.Bool("manual", job.Manual),
	)
	err := s.executor.Execute(jobCtx, job)
	span.SetAttributes(attribute.Int("total_orders", job.TotalOrders))
	telemetry.EndSpan(span, err)
	cancel()

	if err != nil {
		job.Fail(err.Error())
		log.Error("Order sync job failed", zap.Int("failed_count", job.FailedCount), zap.Error(err))
		s.finish(ctx, job)
		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			log.Info("Order sync job will be retried",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("next_retry_at", *job.NextRetryAt),
			)
			s.retryLater(ctx, job, log)
		}
		return
	}

	log.Info("Order sync job finished",
		zap.String("status", string(job.Status)),
		zap.Int("pages", job.Pages),
		zap.Int("total_orders", job.TotalOrders),
		zap.Int("success_count", job.SuccessCount),
		zap.Int("skipped_count", job.SkippedCount),
	)
	s.finish(ctx, job)
}

// finish reports the attempt and records a snapshot of it in the history,
// since a retried job keeps changing.
func (s *OrderSyncScheduler) finish(ctx context.Context, job *OrderSyncJob) {
	if s.observer != nil {
		s.observer.SyncJobFinished(ctx, string(job.Status), job.Duration(), job.TotalOrders)
	}
	snapshot := *job
	s.history.add(&snapshot)
}

// retryLater resubmits job once its NextRetryAt has passed, unless the
// scheduler was stopped in between.
func (s *OrderSyncScheduler) retryLater(ctx context.Context, job *OrderSyncJob, log *zap.Logger) {
	time.AfterFunc(time.Until(*job.NextRetryAt), func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.SubmitJob(job); err != nil {
			log.Warn("Failed to re-queue order sync job", zap.Error(err))
		}
	})
}

// GetJobHistory returns up to limit finished attempts, newest first.
// A non-positive limit returns everything kept.
func (s *OrderSyncScheduler) GetJobHistory(limit int) []*OrderSyncJob {
	return s.history.recent(limit, func(*OrderSyncJob) bool { return true })
}

// GetJobHistoryByChannel returns up to limit finished attempts for one channel.
func (s *OrderSyncScheduler) GetJobHistoryByChannel(channelID uuid.UUID, limit int) []*OrderSyncJob {
	return s.history.recent(limit, func(j *OrderSyncJob) bool { return j.ChannelID == channelID })
}

// jobHistory is a fixed-size ring of finished job attempts.
type jobHistory struct {
	mu   sync.RWMutex
	ring []*OrderSyncJob
	next int
	full bool
}

func newJobHistory(size int) *jobHistory {
	return &jobHistory{ring: make([]*OrderSyncJob, size)}
}

func (h *jobHistory) add(job *OrderSyncJob) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring[h.next] = job
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.full = true
	}
}

func (h *jobHistory) recent(limit int, keep func(*OrderSyncJob) bool) []*OrderSyncJob {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*OrderSyncJob, 0, limit)
	for i := 1; i <= n && len(out) < limit; i++ {
		job := h.ring[(h.next-i+len(h.ring))%len(h.ring)]
		if keep(job) {
			out = append(out, job)
		}
	}
	return out
}
