package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// MarketplaceClient is the transport collaborator.
// Call fails with ErrTransportFailure on transport errors and with a
// *RemoteFailureError when the marketplace acknowledges the call as failed.
type MarketplaceClient interface {
	Call(ctx context.Context, channel *MarketplaceChannel, operation string, request any) (Payload, error)
	EnsureValidToken(ctx context.Context, channel *MarketplaceChannel) (*MarketplaceChannel, error)
}

// InventoryAdjuster applies stock side effects for order items. Callers invoke
// it only after the item's InventoryUpdated flag transition succeeded.
type InventoryAdjuster interface {
	Deduct(ctx context.Context, order *MarketplaceOrder, item *MarketplaceOrderItem) error
	Restore(ctx context.Context, order *MarketplaceOrder, item *MarketplaceOrderItem) error
}

// AddressValidator checks a shipping address after the order is committed.
type AddressValidator interface {
	ValidateAddress(ctx context.Context, order *MarketplaceOrder) error
}

// TxManager runs fn in one transaction. Repositories called with the ctx
// passed to fn join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

// MarketplaceOrderRepository persists orders with their items.
// Find methods lock the order row for the enclosing transaction where the
// database supports it.
type MarketplaceOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MarketplaceOrder, error)
	FindByExternalID(ctx context.Context, channelID uuid.UUID, externalOrderID string) (*MarketplaceOrder, error)
	FindByExtendedID(ctx context.Context, channelID uuid.UUID, extendedOrderID string) (*MarketplaceOrder, error)
	FindByLineItemID(ctx context.Context, channelID uuid.UUID, lineItemID string) (*MarketplaceOrder, error)
	FindByItemTransaction(ctx context.Context, channelID uuid.UUID, itemID, transactionID string) (*MarketplaceOrder, error)
	FindByItemID(ctx context.Context, channelID uuid.UUID, itemID string) (*MarketplaceOrder, error)
	Create(ctx context.Context, order *MarketplaceOrder) error
	Save(ctx context.Context, order *MarketplaceOrder) error
	UpdateAddressStatus(ctx context.Context, id uuid.UUID, status AddressStatus) error
}

// OrderAuditRepository appends and lists audit entries
type OrderAuditRepository interface {
	Append(ctx context.Context, entry *OrderAuditEntry) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderAuditEntry, error)
}

// OrderReturnRepository persists returns keyed by return id
type OrderReturnRepository interface {
	FindByReturnID(ctx context.Context, returnID string) (*OrderReturn, error)
	Save(ctx context.Context, ret *OrderReturn) error
}

// OrderDisputeRepository persists disputes keyed by (order, dispute id)
type OrderDisputeRepository interface {
	Find(ctx context.Context, orderID uuid.UUID, disputeID string) (*OrderDispute, error)
	Save(ctx context.Context, dispute *OrderDispute) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderDispute, error)
}

// MarketplaceChannelRepository persists channel configuration and credentials
type MarketplaceChannelRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MarketplaceChannel, error)
	FindEnabled(ctx context.Context) ([]MarketplaceChannel, error)
	UpdateCredentials(ctx context.Context, channel *MarketplaceChannel) error
	MarkSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
}
