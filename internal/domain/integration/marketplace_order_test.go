package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, signals StatusSignals) *MarketplaceOrder {
	t.Helper()
	n := &NormalizedOrder{
		ExternalOrderID: "ORD1",
		Signals:         signals,
		Lines: []NormalizedLine{
			{ExternalItemID: "I1", TransactionID: "T1", Quantity: 2, UnitPrice: decimal.NewFromInt(5)},
		},
	}
	o := NewMarketplaceOrder(uuid.New(), "MO-1", n)
	require.Len(t, o.Items, 1)
	return o
}

func TestNewMarketplaceOrder(t *testing.T) {
	o := newTestOrder(t, StatusSignals{PaidTime: ts("2024-03-01T10:00:00Z"), QuantityPurchased: 2})

	assert.Equal(t, OrderStatusProcessing, o.OrderStatus)
	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, FulfillmentStatusUnfulfilled, o.FulfillmentStatus)
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	assert.False(t, o.Items[0].InventoryUpdated)
	assert.Equal(t, AddressStatusUnverified, o.AddressStatus)
}

func TestMarketplaceOrderItem_InventoryFlagTransitions(t *testing.T) {
	item := &MarketplaceOrderItem{}

	assert.True(t, item.MarkInventoryDeducted())
	assert.False(t, item.MarkInventoryDeducted())
	assert.True(t, item.MarkInventoryRestored())
	assert.False(t, item.MarkInventoryRestored())
	assert.True(t, item.InventoryRestored)

	assert.False(t, item.MarkInventoryDeducted(), "restored stock stays restored")
	assert.False(t, item.InventoryUpdated)
}

func TestMarketplaceOrder_StateCountsInventoryFlags(t *testing.T) {
	o := &MarketplaceOrder{Items: []MarketplaceOrderItem{{}, {}, {}}}
	o.Items[0].MarkInventoryDeducted()
	o.Items[1].MarkInventoryDeducted()
	o.Items[1].MarkInventoryRestored()

	s := o.State()
	assert.Equal(t, 1, s.InventoryFlags)
	assert.Equal(t, 1, s.RestoredFlags)
}

func TestMarketplaceOrder_MergeLinesNeverDuplicates(t *testing.T) {
	o := newTestOrder(t, StatusSignals{})

	added := o.MergeLines([]NormalizedLine{
		{ExternalItemID: "I1", TransactionID: "T1", Quantity: 3},
		{ExternalItemID: "I2", TransactionID: "T2", Quantity: 1},
	})

	assert.Equal(t, 1, added)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 3, o.Items[0].Quantity)

	added = o.MergeLines([]NormalizedLine{{LineItemID: "I2-T2", ExternalItemID: "I2", TransactionID: "T2"}})
	assert.Equal(t, 0, added)
	assert.Equal(t, "I2-T2", o.Items[1].LineItemID)
}

func TestMarketplaceOrder_MergeFromFillsForward(t *testing.T) {
	o := newTestOrder(t, StatusSignals{})
	o.MergeFrom(&NormalizedOrder{TrackingNumber: "1Z999", Carrier: "UPS", HandlingDays: 2})
	o.MergeFrom(&NormalizedOrder{})

	assert.Equal(t, "1Z999", o.TrackingNumber)
	assert.Equal(t, "UPS", o.Carrier)
	assert.Equal(t, 2, o.HandlingDays)
}

func TestMarketplaceOrder_MergeFromResetsAddressStatusOnChange(t *testing.T) {
	o := newTestOrder(t, StatusSignals{})
	addr := ShippingAddress{Name: "A", Line1: "1 Main", City: "Austin", PostalCode: "78701", Country: "US"}
	o.MergeFrom(&NormalizedOrder{ShippingAddress: addr})
	o.AddressStatus = AddressStatusValid

	o.MergeFrom(&NormalizedOrder{ShippingAddress: addr})
	assert.Equal(t, AddressStatusValid, o.AddressStatus)

	addr.City = "Dallas"
	o.MergeFrom(&NormalizedOrder{ShippingAddress: addr})
	assert.Equal(t, AddressStatusUnverified, o.AddressStatus)
}

func TestMarketplaceOrder_MarkPaidNeverDowngrades(t *testing.T) {
	tests := []struct {
		from            OrderStatus
		fromPayment     PaymentStatus
		expected        OrderStatus
		expectedPayment PaymentStatus
	}{
		{OrderStatusPending, PaymentStatusUnpaid, OrderStatusProcessing, PaymentStatusPaid},
		{OrderStatusProcessing, PaymentStatusUnpaid, OrderStatusProcessing, PaymentStatusPaid},
		{OrderStatusShipped, PaymentStatusUnpaid, OrderStatusShipped, PaymentStatusPaid},
		{OrderStatusDelivered, PaymentStatusUnpaid, OrderStatusDelivered, PaymentStatusPaid},
		{OrderStatusCancelled, PaymentStatusUnpaid, OrderStatusCancelled, PaymentStatusPaid},
		{OrderStatusCancelled, PaymentStatusPaid, OrderStatusCancelled, PaymentStatusPaid},
		{OrderStatusRefunded, PaymentStatusRefunded, OrderStatusRefunded, PaymentStatusRefunded},
		{OrderStatusProcessing, PaymentStatusRefunded, OrderStatusProcessing, PaymentStatusRefunded},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.fromPayment), func(t *testing.T) {
			o := &MarketplaceOrder{OrderStatus: tt.from, PaymentStatus: tt.fromPayment}
			o.MarkPaid(ts("2024-03-01T10:00:00Z"))
			assert.Equal(t, tt.expected, o.OrderStatus)
			assert.Equal(t, tt.expectedPayment, o.PaymentStatus)
			assert.NotNil(t, o.PaidAt)
		})
	}
}

func TestMarketplaceOrder_MarkShippedKeepsClosedOrders(t *testing.T) {
	tests := []struct {
		name                string
		from                OrderStatus
		expected            OrderStatus
		expectedFulfillment FulfillmentStatus
	}{
		{"processing", OrderStatusProcessing, OrderStatusShipped, FulfillmentStatusFulfilled},
		{"cancellation requested", OrderStatusCancellationRequested, OrderStatusShipped, FulfillmentStatusFulfilled},
		{"cancelled", OrderStatusCancelled, OrderStatusCancelled, FulfillmentStatusUnfulfilled},
		{"refunded", OrderStatusRefunded, OrderStatusRefunded, FulfillmentStatusUnfulfilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &MarketplaceOrder{OrderStatus: tt.from, FulfillmentStatus: FulfillmentStatusUnfulfilled}
			o.MarkShipped("1Z999", "UPS", ts("2024-03-02T10:00:00Z"))
			assert.Equal(t, tt.expected, o.OrderStatus)
			assert.Equal(t, tt.expectedFulfillment, o.FulfillmentStatus)
			assert.Equal(t, "1Z999", o.TrackingNumber)
			assert.Equal(t, "UPS", o.Carrier)
			assert.NotNil(t, o.ShippedAt)
		})
	}
}

func TestMarketplaceOrder_RejectCancellation(t *testing.T) {
	paid := &MarketplaceOrder{OrderStatus: OrderStatusCancellationRequested, PaymentStatus: PaymentStatusPaid}
	paid.RejectCancellation()
	assert.Equal(t, OrderStatusProcessing, paid.OrderStatus)
	assert.Equal(t, CancelCodeRejected, paid.CancelStatus)

	unpaid := &MarketplaceOrder{OrderStatus: OrderStatusCancellationRequested, PaymentStatus: PaymentStatusUnpaid}
	unpaid.RejectCancellation()
	assert.Equal(t, OrderStatusPending, unpaid.OrderStatus)
}

func TestMarketplaceOrder_AdvanceReturn(t *testing.T) {
	o := &MarketplaceOrder{}
	closedAt := ts("2024-04-01T10:00:00Z")

	assert.True(t, o.AdvanceReturn(ReturnStatusRequested, nil))
	assert.True(t, o.AdvanceReturn(ReturnStatusClosed, closedAt))
	assert.Equal(t, closedAt, o.ReturnClosedAt)
	assert.False(t, o.AdvanceReturn(ReturnStatusShipped, nil))
	assert.Equal(t, ReturnStatusClosed, o.ReturnStatus)
}

func TestMarketplaceOrder_State(t *testing.T) {
	o := newTestOrder(t, StatusSignals{})
	before := o.State()

	o.MarkShipped("1Z999", "UPS", nil)
	assert.NotEqual(t, before, o.State())

	after := o.State()
	o.MarkShipped("", "", nil)
	assert.Equal(t, after, o.State())
}

func TestMarketplaceChannel_TokenNeedsRefresh(t *testing.T) {
	now := *ts("2024-03-01T10:00:00Z")
	soon := now.Add(2 * time.Minute)
	later := now.Add(time.Hour)

	assert.True(t, (&MarketplaceChannel{}).TokenNeedsRefresh(now, 0))
	assert.True(t, (&MarketplaceChannel{AccessToken: "t", TokenExpiresAt: &soon}).TokenNeedsRefresh(now, 5*time.Minute))
	assert.False(t, (&MarketplaceChannel{AccessToken: "t", TokenExpiresAt: &later}).TokenNeedsRefresh(now, 5*time.Minute))
}
