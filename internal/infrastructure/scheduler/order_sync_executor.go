package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/marketplace"
)

// OrderRecordHandler persists one pulled order record
type OrderRecordHandler func(ctx context.Context, channelID uuid.UUID, record *integration.SyncOrderRecord) error

// OrderSyncExecutorConfig holds configuration for the executor
type OrderSyncExecutorConfig struct {
	// PageSize is the number of orders requested per page
	PageSize int
	// UpsertConcurrency bounds concurrent record handling within a page
	UpsertConcurrency int
	// MaxPages stops runaway pagination
	MaxPages int
}

// DefaultOrderSyncExecutorConfig returns default configuration
func DefaultOrderSyncExecutorConfig() OrderSyncExecutorConfig {
	return OrderSyncExecutorConfig{
		PageSize:          100,
		UpsertConcurrency: 4,
		MaxPages:          500,
	}
}

// ---------------------------------------------------------------------------
// OrderSyncExecutorImpl
// ---------------------------------------------------------------------------

// OrderSyncExecutorImpl implements OrderSyncExecutor against the marketplace API
type OrderSyncExecutorImpl struct {
	config   OrderSyncExecutorConfig
	channels integration.MarketplaceChannelRepository
	client   integration.MarketplaceClient
	onRecord OrderRecordHandler
	logger   *zap.Logger
}

// NewOrderSyncExecutor creates a new order sync executor
func NewOrderSyncExecutor(
	config OrderSyncExecutorConfig,
	channels integration.MarketplaceChannelRepository,
	client integration.MarketplaceClient,
	onRecord OrderRecordHandler,
	logger *zap.Logger,
) *OrderSyncExecutorImpl {
	if config.PageSize <= 0 {
		config.PageSize = DefaultOrderSyncExecutorConfig().PageSize
	}
	if config.UpsertConcurrency <= 0 {
		config.UpsertConcurrency = 1
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultOrderSyncExecutorConfig().MaxPages
	}
	return &OrderSyncExecutorImpl{
		config:   config,
		channels: channels,
		client:   client,
		onRecord: onRecord,
		logger:   logger.Named("order_sync_executor"),
	}
}

// Execute ensures a valid token, pages through the orders of the job window
// and hands every record to the record handler. The job fails when any record
// could not be persisted, so that the scheduler retries it.
func (e *OrderSyncExecutorImpl) Execute(ctx context.Context, job *OrderSyncJob) error {
	started := time.Now()
	channel, err := e.channels.FindByID(ctx, job.ChannelID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return integration.ErrChannelNotFound
		}
		return fmt.Errorf("failed to load channel: %w", err)
	}
	if !channel.Enabled {
		return integration.ErrChannelDisabled
	}

	channel, err = e.client.EnsureValidToken(ctx, channel)
	if err != nil {
		return err
	}

	e.logger.Info("Starting order sync execution",
		zap.String("job_id", job.ID.String()),
		zap.String("channel", channel.Name),
		zap.Time("start_time", job.StartTime),
		zap.Time("end_time", job.EndTime),
	)

	var totals pageResult
	for page := 1; page <= e.config.MaxPages; page++ {
		if ctx.Err() != nil {
			return ErrOrderSyncTimeout
		}

		req := marketplace.NewGetOrdersRequest(job.StartTime, job.EndTime, page, e.config.PageSize)
		resp, err := e.client.Call(ctx, channel, marketplace.OperationGetOrders, req)
		if err != nil {
			job.Complete(totals.total, totals.success, totals.failed, totals.skipped)
			return fmt.Errorf("%w: page %d: %w", ErrOrderSyncFailed, page, err)
		}

		records, hasMore := marketplace.ParseOrdersPage(resp)
		result := e.processPage(ctx, channel.ID, records)
		totals.add(result)
		job.Pages = page

		e.logger.Debug("Processed page of orders",
			zap.String("job_id", job.ID.String()),
			zap.Int("page_no", page),
			zap.Int("orders_in_page", len(records)),
			zap.Int("total_so_far", totals.total),
		)

		if !hasMore || len(records) == 0 {
			break
		}
	}

	job.Complete(totals.total, totals.success, totals.failed, totals.skipped)
	job.FailedOrderIDs = totals.failedIDs
	if totals.failed > 0 {
		return fmt.Errorf("%w: %d of %d orders failed", ErrOrderSyncFailed, totals.failed, totals.total)
	}

	if err := e.channels.MarkSynced(ctx, channel.ID, job.EndTime); err != nil {
		e.logger.Warn("Failed to update last sync time",
			zap.String("channel_id", channel.ID.String()),
			zap.Error(err),
		)
	}

	e.logger.Info("Order sync execution completed",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("total_orders", totals.total),
		zap.Int("success_count", totals.success),
		zap.Int("skipped_count", totals.skipped),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// processPage handles the records of one page with bounded concurrency.
// Record failures are counted rather than aborting the page.
func (e *OrderSyncExecutorImpl) processPage(ctx context.Context, channelID uuid.UUID, records []*integration.SyncOrderRecord) pageResult {
	var (
		mu     sync.Mutex
		result = pageResult{total: len(records)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.UpsertConcurrency)
	for _, record := range records {
		if record.OrderID == "" {
			result.skipped++
			continue
		}
		g.Go(func() error {
			err := e.onRecord(gctx, channelID, record)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.Error("Failed to process order",
					zap.String("external_order_id", record.OrderID),
					zap.Error(err),
				)
				result.failed++
				result.failedIDs = append(result.failedIDs, record.OrderID)
				return nil
			}
			result.success++
			return nil
		})
	}
	_ = g.Wait()
	return result
}

type pageResult struct {
	total, success, failed, skipped int
	failedIDs                       []string
}

func (r *pageResult) add(o pageResult) {
	r.total += o.total
	r.success += o.success
	r.failed += o.failed
	r.skipped += o.skipped
	r.failedIDs = append(r.failedIDs, o.failedIDs...)
}

// Ensure OrderSyncExecutorImpl implements OrderSyncExecutor
var _ OrderSyncExecutor = (*OrderSyncExecutorImpl)(nil)
