package scheduler

import "errors"

// Worker pool errors
var (
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	ErrJobQueueFull        = errors.New("scheduler: job queue full")
	ErrInvalidConfig       = errors.New("scheduler: invalid configuration")
)

// Order sync job errors. ErrOrderSyncFailed wraps the first page or record
// failure; ErrOrderSyncInvalidTimeRange covers empty, inverted and oversized
// manual windows.
var (
	ErrOrderSyncFailed           = errors.New("scheduler: order sync failed")
	ErrOrderSyncTimeout          = errors.New("scheduler: order sync exceeded job timeout")
	ErrOrderSyncInvalidTimeRange = errors.New("scheduler: invalid order sync window")
)
