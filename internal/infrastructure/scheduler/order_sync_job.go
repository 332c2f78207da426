package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// OrderSyncJobStatus is the lifecycle state of an OrderSyncJob.
type OrderSyncJobStatus string

const (
	OrderSyncJobStatusPending OrderSyncJobStatus = "PENDING"
	OrderSyncJobStatusRunning OrderSyncJobStatus = "RUNNING"
	OrderSyncJobStatusSuccess OrderSyncJobStatus = "SUCCESS"
	OrderSyncJobStatusPartial OrderSyncJobStatus = "PARTIAL"
	OrderSyncJobStatusFailed  OrderSyncJobStatus = "FAILED"
)

const maxRetryDelay = 30 * time.Minute

// OrderSyncJob pulls the orders of one channel modified within
// [StartTime, EndTime). A job is owned by one worker at a time.
type OrderSyncJob struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Manual    bool

	Status      OrderSyncJobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time

	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	Pages          int
	TotalOrders    int
	SuccessCount   int
	FailedCount    int
	SkippedCount   int
	FailedOrderIDs []string
}

// NewOrderSyncJob creates a pending job for the window [start, end).
func NewOrderSyncJob(channelID uuid.UUID, start, end time.Time, maxRetries int) *OrderSyncJob {
	return &OrderSyncJob{
		ID:         uuid.New(),
		ChannelID:  channelID,
		StartTime:  start,
		EndTime:    end,
		Status:     OrderSyncJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start moves the job to RUNNING and clears the previous attempt's error.
func (j *OrderSyncJob) Start() {
	j.Status = OrderSyncJobStatusRunning
	j.StartedAt = timePtr(time.Now())
	j.Error = ""
}

// Complete records the counters of a finished pull. One failed order makes the
// job PARTIAL, or FAILED when nothing succeeded.
func (j *OrderSyncJob) Complete(total, succeeded, failed, skipped int) {
	j.TotalOrders, j.SuccessCount, j.FailedCount, j.SkippedCount = total, succeeded, failed, skipped
	j.CompletedAt = timePtr(time.Now())
	j.Status = OrderSyncJobStatusSuccess
	if failed > 0 {
		j.Status = OrderSyncJobStatusFailed
		if succeeded > 0 {
			j.Status = OrderSyncJobStatusPartial
		}
	}
}

// Fail ends the attempt with reason.
func (j *OrderSyncJob) Fail(reason string) {
	j.Status = OrderSyncJobStatusFailed
	j.CompletedAt = timePtr(time.Now())
	j.Error = reason
}

// ShouldRetry reports whether a failed job has retries left.
func (j *OrderSyncJob) ShouldRetry() bool {
	return j.Status == OrderSyncJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to PENDING with NextRetryAt set to
// base * 2^(retry-1), capped at 30 minutes.
func (j *OrderSyncJob) ScheduleRetry(base time.Duration) {
	j.RetryCount++
	j.Status = OrderSyncJobStatusPending
	j.Error = ""
	j.NextRetryAt = timePtr(time.Now().Add(retryDelay(base, j.RetryCount)))
}

// Duration is the wall time of the last attempt, zero while it runs.
func (j *OrderSyncJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

func timePtr(t time.Time) *time.Time { return &t }
