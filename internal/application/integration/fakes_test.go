package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// In-memory collaborators
// ---------------------------------------------------------------------------

// ledgerTx rolls back stock movements when fn fails; stores only write on success
type ledgerTx struct {
	ledger *ledger
}

func (t ledgerTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	deducted, restored := t.ledger.snapshot()
	if err := fn(ctx); err != nil {
		t.ledger.reset(deducted, restored)
		return err
	}
	return nil
}

// memOrders stores copies so that unsaved mutations never leak into the store
type memOrders struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*integration.MarketplaceOrder
	saveErr   error
	onCreate  func(order *integration.MarketplaceOrder) error
	saveCalls int
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*integration.MarketplaceOrder)}
}

func cloneOrder(o *integration.MarketplaceOrder) *integration.MarketplaceOrder {
	c := *o
	c.Items = append([]integration.MarketplaceOrderItem(nil), o.Items...)
	return &c
}

func (m *memOrders) find(match func(o *integration.MarketplaceOrder) bool) (*integration.MarketplaceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if match(o) {
			return cloneOrder(o), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memOrders) FindByID(_ context.Context, id uuid.UUID) (*integration.MarketplaceOrder, error) {
	return m.find(func(o *integration.MarketplaceOrder) bool { return o.ID == id })
}

func (m *memOrders) FindByExternalID(_ context.Context, channelID uuid.UUID, externalOrderID string) (*integration.MarketplaceOrder, error) {
	return m.find(func(o *integration.MarketplaceOrder) bool {
		return o.ChannelID == channelID && o.ExternalOrderID == externalOrderID
	})
}

func (m *memOrders) FindByExtendedID(_ context.Context, channelID uuid.UUID, extendedOrderID string) (*integration.MarketplaceOrder, error) {
	return m.find(func(o *integration.MarketplaceOrder) bool {
		return o.ChannelID == channelID && o.ExtendedOrderID != "" && o.ExtendedOrderID == extendedOrderID
	})
}

func (m *memOrders) findByItem(channelID uuid.UUID, match func(i integration.MarketplaceOrderItem) bool) (*integration.MarketplaceOrder, error) {
	return m.find(func(o *integration.MarketplaceOrder) bool {
		if o.ChannelID != channelID {
			return false
		}
		for _, item := range o.Items {
			if match(item) {
				return true
			}
		}
		return false
	})
}

func (m *memOrders) FindByLineItemID(_ context.Context, channelID uuid.UUID, lineItemID string) (*integration.MarketplaceOrder, error) {
	return m.findByItem(channelID, func(i integration.MarketplaceOrderItem) bool { return i.LineItemID == lineItemID })
}

func (m *memOrders) FindByItemTransaction(_ context.Context, channelID uuid.UUID, itemID, transactionID string) (*integration.MarketplaceOrder, error) {
	return m.findByItem(channelID, func(i integration.MarketplaceOrderItem) bool {
		return i.ExternalItemID == itemID && i.TransactionID == transactionID
	})
}

func (m *memOrders) FindByItemID(_ context.Context, channelID uuid.UUID, itemID string) (*integration.MarketplaceOrder, error) {
	return m.findByItem(channelID, func(i integration.MarketplaceOrderItem) bool { return i.ExternalItemID == itemID })
}

func (m *memOrders) Create(_ context.Context, order *integration.MarketplaceOrder) error {
	if m.onCreate != nil {
		hook := m.onCreate
		m.onCreate = nil
		if err := hook(order); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ChannelID == order.ChannelID && o.ExternalOrderID == order.ExternalOrderID {
			return shared.ErrAlreadyExists
		}
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *memOrders) Save(_ context.Context, order *integration.MarketplaceOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *memOrders) UpdateAddressStatus(_ context.Context, id uuid.UUID, status integration.AddressStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.AddressStatus = status
	return nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memAudit struct {
	mu        sync.Mutex
	entries   []integration.OrderAuditEntry
	appendErr error
}

func (m *memAudit) Append(_ context.Context, entry *integration.OrderAuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	seq := 0
	for _, e := range m.entries {
		if e.OrderID == entry.OrderID && e.Sequence > seq {
			seq = e.Sequence
		}
	}
	entry.Sequence = seq + 1
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAudit) ListByOrder(_ context.Context, orderID uuid.UUID) ([]integration.OrderAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []integration.OrderAuditEntry
	for _, e := range m.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memReturns struct {
	mu      sync.Mutex
	returns map[string]integration.OrderReturn
}

func (m *memReturns) FindByReturnID(_ context.Context, returnID string) (*integration.OrderReturn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.returns[returnID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &r, nil
}

func (m *memReturns) Save(_ context.Context, ret *integration.OrderReturn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returns[ret.ReturnID] = *ret
	return nil
}

type memDisputes struct {
	mu       sync.Mutex
	disputes map[string]integration.OrderDispute
}

func disputeMapKey(orderID uuid.UUID, disputeID string) string {
	return orderID.String() + "/" + disputeID
}

func (m *memDisputes) Find(_ context.Context, orderID uuid.UUID, disputeID string) (*integration.OrderDispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[disputeMapKey(orderID, disputeID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (m *memDisputes) Save(_ context.Context, dispute *integration.OrderDispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disputes[disputeMapKey(dispute.OrderID, dispute.DisputeID)] = *dispute
	return nil
}

func (m *memDisputes) ListByOrder(_ context.Context, orderID uuid.UUID) ([]integration.OrderDispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []integration.OrderDispute
	for _, d := range m.disputes {
		if d.OrderID == orderID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ledger records stock movements per SKU
type ledger struct {
	mu        sync.Mutex
	deducted  map[string]int
	restored  map[string]int
	deductErr error
}

func (l *ledger) Deduct(_ context.Context, _ *integration.MarketplaceOrder, item *integration.MarketplaceOrderItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deductErr != nil {
		return l.deductErr
	}
	l.deducted[item.SKU] += item.Quantity
	return nil
}

func (l *ledger) snapshot() (map[string]int, map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyCounts(l.deducted), copyCounts(l.restored)
}

func (l *ledger) reset(deducted, restored map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deducted, l.restored = deducted, restored
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (l *ledger) Restore(_ context.Context, _ *integration.MarketplaceOrder, item *integration.MarketplaceOrderItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restored[item.SKU] += item.Quantity
	return nil
}

// recordingMetrics counts every call by a flat label
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) add(label string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[label] += n
}

func (m *recordingMetrics) get(label string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[label]
}

func (m *recordingMetrics) NotificationReceived(_ context.Context, t integration.EventType) {
	m.add("received:"+t.String(), 1)
}

func (m *recordingMetrics) NotificationUnknown(_ context.Context, name string) {
	m.add("unknown:"+name, 1)
}

func (m *recordingMetrics) NotificationDropped(_ context.Context, _ integration.EventType, reason string) {
	m.add("dropped:"+reason, 1)
}

func (m *recordingMetrics) InventoryAdjusted(_ context.Context, direction string, items int) {
	m.add("inventory:"+direction, items)
}

func (m *recordingMetrics) OrderUpserted(_ context.Context, source string, created bool) {
	if created {
		m.add("created:"+source, 1)
		return
	}
	m.add("updated:"+source, 1)
}

type stubValidator struct {
	calls int
	err   error
}

func (v *stubValidator) ValidateAddress(_ context.Context, order *integration.MarketplaceOrder) error {
	v.calls++
	return v.err
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	channelID  uuid.UUID
	orders     *memOrders
	audit      *memAudit
	returns    *memReturns
	disputes   *memDisputes
	inventory  *ledger
	metrics    *recordingMetrics
	validator  *stubValidator
	upserts    *OrderUpsertService
	dispatcher *NotificationDispatcher
}

func newFixture() *fixture {
	f := &fixture{
		channelID: uuid.New(),
		orders:    newMemOrders(),
		audit:     &memAudit{},
		returns:   &memReturns{returns: make(map[string]integration.OrderReturn)},
		disputes:  &memDisputes{disputes: make(map[string]integration.OrderDispute)},
		inventory: &ledger{deducted: make(map[string]int), restored: make(map[string]int)},
		metrics:   newRecordingMetrics(),
		validator: &stubValidator{},
	}
	stores := OrderStores{
		TxManager: ledgerTx{ledger: f.inventory},
		Orders:    f.orders,
		Audit:     f.audit,
		Returns:   f.returns,
		Disputes:  f.disputes,
		Inventory: f.inventory,
	}
	f.upserts = NewOrderUpsertService(stores, f.validator, f.metrics, newTestLogger())
	f.dispatcher = NewNotificationDispatcher(stores, f.upserts, f.metrics, newTestLogger())
	return f
}

func (f *fixture) order(externalID string) *integration.MarketplaceOrder {
	o, err := f.orders.FindByExternalID(context.Background(), f.channelID, externalID)
	if err != nil {
		return nil
	}
	return o
}

func (f *fixture) notify(name string, payload integration.Payload) error {
	return f.dispatcher.Dispatch(context.Background(), &Notification{
		ChannelID:  f.channelID,
		EventName:  name,
		DeliveryID: uuid.NewString(),
		ReceivedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		Payload:    payload,
	})
}

var errBoom = errors.New("boom")
