package integration

import (
	"context"

	"github.com/erp/ordersync/internal/domain/shared"
	"go.uber.org/zap"
)

// DeliveryDeduplicator skips deliveries already applied successfully. It is a
// fast path only: handlers stay idempotent without it, and store failures
// fall through to a normal dispatch.
type DeliveryDeduplicator struct {
	next   Dispatcher
	store  shared.IdempotencyStore
	config shared.IdempotencyConfig
	logger *zap.Logger
}

// NewDeliveryDeduplicator wraps next with delivery-id deduplication
func NewDeliveryDeduplicator(
	next Dispatcher,
	store shared.IdempotencyStore,
	config shared.IdempotencyConfig,
	logger *zap.Logger,
) *DeliveryDeduplicator {
	return &DeliveryDeduplicator{
		next:   next,
		store:  store,
		config: config,
		logger: logger.Named("delivery_dedupe"),
	}
}

// Dispatch forwards n unless its delivery id was already recorded. The id is
// recorded only after the wrapped dispatcher succeeded.
func (d *DeliveryDeduplicator) Dispatch(ctx context.Context, n *Notification) error {
	if !d.config.Enabled || d.store == nil || n.DeliveryID == "" {
		return d.next.Dispatch(ctx, n)
	}

	key := deliveryKey(n)
	processed, err := d.store.IsProcessed(ctx, key)
	if err != nil {
		d.logger.Warn("Idempotency lookup failed, dispatching anyway",
			zap.String("delivery_id", n.DeliveryID),
			zap.Error(err),
		)
	} else if processed {
		d.logger.Debug("Skipping duplicate delivery",
			zap.String("delivery_id", n.DeliveryID),
			zap.String("event_name", n.EventName),
		)
		return nil
	}

	if err := d.next.Dispatch(ctx, n); err != nil {
		return err
	}

	if _, err := d.store.MarkProcessed(ctx, key, d.config.TTL); err != nil {
		d.logger.Warn("Failed to record processed delivery",
			zap.String("delivery_id", n.DeliveryID),
			zap.Error(err),
		)
	}
	return nil
}

func deliveryKey(n *Notification) string {
	return "delivery:" + n.ChannelID.String() + ":" + n.DeliveryID
}

var _ Dispatcher = (*DeliveryDeduplicator)(nil)
