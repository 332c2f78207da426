package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Upsert source labels reported to Metrics
const (
	SourceSync         = "sync"
	SourceNotification = "notification"
)

// SyncOperationGetOrders is the audit event name of records pulled by a sync job
const SyncOperationGetOrders = "GetOrders"

// UpsertSource describes what triggered an upsert. It is recorded in the
// order's audit entry.
type UpsertSource struct {
	EventType  integration.EventType
	EventName  string
	DeliveryID string
	ReceivedAt time.Time
}

// SyncSource returns the source for records pulled by the given operation.
func SyncSource(operation string) UpsertSource {
	return UpsertSource{
		EventType:  integration.EventTypeSync,
		EventName:  operation,
		ReceivedAt: time.Now(),
	}
}

// Label returns the metrics label of the source
func (s UpsertSource) Label() string {
	if s.EventType == integration.EventTypeSync {
		return SourceSync
	}
	return SourceNotification
}

// UpsertResult is the outcome of one upsert
type UpsertResult struct {
	Order             *integration.MarketplaceOrder
	Created           bool
	InventoryDeducted int
}

// OrderUpsertService creates or updates the local order for a normalized
// marketplace order. Both the sync and the paid notification path use it.
type OrderUpsertService struct {
	stores    OrderStores
	validator integration.AddressValidator
	metrics   Metrics
	logger    *zap.Logger
}

// NewOrderUpsertService creates a new OrderUpsertService. validator may be nil.
func NewOrderUpsertService(
	stores OrderStores,
	validator integration.AddressValidator,
	metrics Metrics,
	logger *zap.Logger,
) *OrderUpsertService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &OrderUpsertService{
		stores:    stores,
		validator: validator,
		metrics:   metrics,
		logger:    logger.Named("order_upsert"),
	}
}

// Upsert applies n to the order identified by (channelID, n.ExternalOrderID).
// A new order is created when none exists; otherwise non-status fields are
// filled forward, statuses are overwritten and missing lines are added. Stock
// is deducted once per item as soon as payment is confirmed.
func (s *OrderUpsertService) Upsert(
	ctx context.Context,
	channelID uuid.UUID,
	n *integration.NormalizedOrder,
	source UpsertSource,
) (*UpsertResult, error) {
	if n == nil || n.ExternalOrderID == "" {
		return nil, integration.ErrMissingIdentifier
	}
	if source.ReceivedAt.IsZero() {
		source.ReceivedAt = time.Now()
	}

	result, err := s.upsertOnce(ctx, channelID, n, source)
	if errors.Is(err, shared.ErrAlreadyExists) {
		// a concurrent writer created the order first; merge into its row
		s.logger.Info("Order created concurrently, retrying as update",
			zap.String("external_order_id", n.ExternalOrderID),
		)
		result, err = s.upsertOnce(ctx, channelID, n, source)
	}
	if err != nil {
		s.logger.Error("Failed to upsert marketplace order",
			zap.String("channel_id", channelID.String()),
			zap.String("external_order_id", n.ExternalOrderID),
			zap.String("source", source.Label()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to upsert order %s: %w", n.ExternalOrderID, err)
	}

	s.metrics.OrderUpserted(ctx, source.Label(), result.Created)
	if result.InventoryDeducted > 0 {
		s.metrics.InventoryAdjusted(ctx, DirectionDeduct, result.InventoryDeducted)
	}
	s.logger.Debug("Marketplace order upserted",
		zap.String("external_order_id", n.ExternalOrderID),
		zap.String("order_number", result.Order.OrderNumber),
		zap.Bool("created", result.Created),
		zap.String("order_status", result.Order.OrderStatus.String()),
		zap.String("payment_status", result.Order.PaymentStatus.String()),
		zap.Int("inventory_deducted", result.InventoryDeducted),
	)

	s.validateAddress(ctx, result.Order)
	return result, nil
}

func (s *OrderUpsertService) upsertOnce(
	ctx context.Context,
	channelID uuid.UUID,
	n *integration.NormalizedOrder,
	source UpsertSource,
) (*UpsertResult, error) {
	result := &UpsertResult{}
	err := s.stores.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.stores.Orders.FindByExternalID(ctx, channelID, n.ExternalOrderID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load order: %w", err)
		}

		linesAdded := 0
		var before integration.OrderState
		if order == nil {
			order = integration.NewMarketplaceOrder(channelID, NewOrderNumber(), n)
			result.Created = true
			linesAdded = len(order.Items)
		} else {
			before = order.State()
			order.MergeFrom(n)
			linesAdded = order.MergeLines(n.Lines)
			order.ApplyResolution(integration.Resolve(n.Signals))
		}

		if order.IsPaymentConfirmed() {
			deducted, err := deductUnflagged(ctx, s.stores.Inventory, order)
			if err != nil {
				return err
			}
			result.InventoryDeducted = deducted
		}

		if result.Created {
			err = s.stores.Orders.Create(ctx, order)
		} else {
			err = s.stores.Orders.Save(ctx, order)
		}
		if err != nil {
			return err
		}

		entry := integration.NewOrderAuditEntry(order.ID, source.EventType, source.EventName, source.ReceivedAt)
		entry.DeliveryID = source.DeliveryID
		entry.Changed = result.Created || linesAdded > 0 || order.State() != before
		entry.Set("external_order_id", order.ExternalOrderID).
			Set("order_status", order.OrderStatus.String()).
			Set("payment_status", order.PaymentStatus.String()).
			Set("fulfillment_status", order.FulfillmentStatus.String()).
			Set("tracking_number", order.TrackingNumber).
			Set("inventory_deducted", strconv.Itoa(result.InventoryDeducted)).
			Set("lines_added", strconv.Itoa(linesAdded)).
			Set("created", strconv.FormatBool(result.Created))
		if err := s.stores.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertSyncRecord applies one record pulled by a GetOrders sync.
func (s *OrderUpsertService) UpsertSyncRecord(ctx context.Context, channelID uuid.UUID, record *integration.SyncOrderRecord) error {
	if record == nil {
		return integration.ErrMissingIdentifier
	}
	_, err := s.Upsert(ctx, channelID, integration.NormalizeSyncRecord(record), SyncSource(SyncOperationGetOrders))
	return err
}

// validateAddress runs the address validator after commit. Failures never
// fail the upsert.
func (s *OrderUpsertService) validateAddress(ctx context.Context, order *integration.MarketplaceOrder) {
	if s.validator == nil || order.ShippingAddress.IsEmpty() {
		return
	}
	if order.AddressStatus != integration.AddressStatusUnverified {
		return
	}
	if err := s.validator.ValidateAddress(ctx, order); err != nil {
		s.logger.Warn("Address validation failed",
			zap.String("external_order_id", order.ExternalOrderID),
			zap.Error(err),
		)
	}
}

// NewOrderNumber generates a locally unique, time-sortable order number.
func NewOrderNumber() string {
	return "MO-" + ulid.Make().String()
}
