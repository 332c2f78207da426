package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// OrderSyncCronTriggerConfig
// ---------------------------------------------------------------------------

// OrderSyncCronTriggerConfig holds configuration for the order sync cron trigger
type OrderSyncCronTriggerConfig struct {
	// CheckInterval is how often to check for channels due for sync
	CheckInterval time.Duration

	// DefaultSyncInterval applies to channels without their own interval
	DefaultSyncInterval time.Duration

	// DefaultSyncWindow is the first-sync window for channels without their own
	DefaultSyncWindow time.Duration

	// Lookback is subtracted from the last sync time so that late
	// modifications near the boundary are not missed
	Lookback time.Duration

	// MaxManualWindow bounds the window of a manually triggered sync
	MaxManualWindow time.Duration
}

// DefaultOrderSyncCronTriggerConfig returns default configuration
func DefaultOrderSyncCronTriggerConfig() OrderSyncCronTriggerConfig {
	return OrderSyncCronTriggerConfig{
		CheckInterval:       time.Minute,
		DefaultSyncInterval: 15 * time.Minute,
		DefaultSyncWindow:   24 * time.Hour,
		Lookback:            5 * time.Minute,
		MaxManualWindow:     7 * 24 * time.Hour,
	}
}

// ---------------------------------------------------------------------------
// OrderSyncCronTrigger
// ---------------------------------------------------------------------------

// OrderSyncCronTrigger schedules sync jobs for enabled channels whose sync
// interval has elapsed
type OrderSyncCronTrigger struct {
	config    OrderSyncCronTriggerConfig
	scheduler *OrderSyncScheduler
	channels  integration.MarketplaceChannelRepository
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// lastScheduled keeps a channel from being queued again while its
	// previous job has not yet marked it synced
	lastScheduledMu sync.RWMutex
	lastScheduled   map[uuid.UUID]time.Time
}

// NewOrderSyncCronTrigger creates a new order sync cron trigger
func NewOrderSyncCronTrigger(
	config OrderSyncCronTriggerConfig,
	scheduler *OrderSyncScheduler,
	channels integration.MarketplaceChannelRepository,
	logger *zap.Logger,
) *OrderSyncCronTrigger {
	defaults := DefaultOrderSyncCronTriggerConfig()
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.DefaultSyncInterval <= 0 {
		config.DefaultSyncInterval = defaults.DefaultSyncInterval
	}
	if config.DefaultSyncWindow <= 0 {
		config.DefaultSyncWindow = defaults.DefaultSyncWindow
	}
	if config.MaxManualWindow <= 0 {
		config.MaxManualWindow = defaults.MaxManualWindow
	}
	return &OrderSyncCronTrigger{
		config:        config,
		scheduler:     scheduler,
		channels:      channels,
		logger:        logger.Named("order_sync_trigger"),
		now:           time.Now,
		lastScheduled: make(map[uuid.UUID]time.Time),
	}
}

// Start starts the cron trigger
func (c *OrderSyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Order sync cron trigger started",
		zap.Duration("check_interval", c.config.CheckInterval),
		zap.Duration("default_sync_interval", c.config.DefaultSyncInterval),
	)
	return nil
}

// Stop stops the cron trigger
func (c *OrderSyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Order sync cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *OrderSyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	c.CheckAndSchedule(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAndSchedule(ctx)
		}
	}
}

// CheckAndSchedule queues a sync job for every enabled channel that is due.
// It returns the number of jobs queued.
func (c *OrderSyncCronTrigger) CheckAndSchedule(ctx context.Context) int {
	channels, err := c.channels.FindEnabled(ctx)
	if err != nil {
		c.logger.Error("Failed to load enabled channels", zap.Error(err))
		return 0
	}
	if len(channels) == 0 {
		c.logger.Debug("No enabled channels found")
		return 0
	}

	now := c.now()
	scheduled := 0
	for i := range channels {
		channel := &channels[i]
		start, ok := c.dueWindowStart(channel, now)
		if !ok {
			continue
		}

		job, err := c.scheduler.ScheduleSync(channel.ID, start, now, false)
		if err != nil {
			c.logger.Error("Failed to schedule sync job",
				zap.String("channel", channel.Name),
				zap.Error(err),
			)
			continue
		}

		c.logger.Info("Scheduled order sync job",
			zap.String("job_id", job.ID.String()),
			zap.String("channel", channel.Name),
			zap.Time("start_time", start),
			zap.Time("end_time", now),
		)
		c.lastScheduledMu.Lock()
		c.lastScheduled[channel.ID] = now
		c.lastScheduledMu.Unlock()
		scheduled++
	}
	return scheduled
}

// dueWindowStart reports whether channel is due at now and where its window begins.
func (c *OrderSyncCronTrigger) dueWindowStart(channel *integration.MarketplaceChannel, now time.Time) (time.Time, bool) {
	if !channel.IsSyncDue(now, c.config.DefaultSyncInterval) {
		return time.Time{}, false
	}

	interval := channel.SyncInterval
	if interval <= 0 {
		interval = c.config.DefaultSyncInterval
	}
	c.lastScheduledMu.RLock()
	last, exists := c.lastScheduled[channel.ID]
	c.lastScheduledMu.RUnlock()
	if exists && now.Sub(last) < interval {
		return time.Time{}, false
	}

	if channel.LastSyncedAt != nil {
		return channel.LastSyncedAt.Add(-c.config.Lookback), true
	}
	window := channel.SyncWindow
	if window <= 0 {
		window = c.config.DefaultSyncWindow
	}
	return now.Add(-window), true
}

// TriggerManualSync queues an immediate sync of [startTime, endTime) for one channel
func (c *OrderSyncCronTrigger) TriggerManualSync(
	ctx context.Context,
	channelID uuid.UUID,
	startTime, endTime time.Time,
) (*OrderSyncJob, error) {
	if !startTime.Before(endTime) || endTime.Sub(startTime) > c.config.MaxManualWindow {
		return nil, ErrOrderSyncInvalidTimeRange
	}

	channel, err := c.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, integration.ErrChannelNotFound
	}
	if !channel.Enabled {
		return nil, integration.ErrChannelDisabled
	}

	c.logger.Info("Manual order sync triggered",
		zap.String("channel", channel.Name),
		zap.Time("start_time", startTime),
		zap.Time("end_time", endTime),
	)
	return c.scheduler.ScheduleSync(channelID, startTime, endTime, true)
}

// GetSchedulerStats returns statistics about the trigger
func (c *OrderSyncCronTrigger) GetSchedulerStats() map[string]any {
	c.mu.Lock()
	running := c.isRunning
	c.mu.Unlock()

	c.lastScheduledMu.RLock()
	defer c.lastScheduledMu.RUnlock()

	lastScheduled := make(map[string]string, len(c.lastScheduled))
	for id, t := range c.lastScheduled {
		lastScheduled[id.String()] = t.Format(time.RFC3339)
	}
	return map[string]any{
		"is_running":       running,
		"check_interval":   c.config.CheckInterval.String(),
		"tracked_channels": len(c.lastScheduled),
		"last_scheduled":   lastScheduled,
	}
}
