package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/marketplace"
)

// mockMarketplaceClient implements integration.MarketplaceClient
type mockMarketplaceClient struct {
	mock.Mock
}

func (m *mockMarketplaceClient) Call(ctx context.Context, channel *integration.MarketplaceChannel, operation string, request any) (integration.Payload, error) {
	args := m.Called(ctx, channel, operation, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(integration.Payload), args.Error(1)
}

func (m *mockMarketplaceClient) EnsureValidToken(ctx context.Context, channel *integration.MarketplaceChannel) (*integration.MarketplaceChannel, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.MarketplaceChannel), args.Error(1)
}

func ordersPage(hasMore bool, orderIDs ...string) integration.Payload {
	orders := make([]any, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, map[string]any{
			"OrderID":     id,
			"OrderStatus": "Completed",
		})
	}
	return integration.Payload{
		"Ack":           "Success",
		"OrderArray":    map[string]any{"Order": orders},
		"HasMoreOrders": hasMore,
	}
}

func pageMatcher(page int) any {
	return mock.MatchedBy(func(req marketplace.GetOrdersRequest) bool {
		return req.Pagination.PageNumber == page
	})
}

// recordingHandler collects the order ids it was handed
type recordingHandler struct {
	mu     sync.Mutex
	seen   []string
	failOn map[string]bool
}

func (h *recordingHandler) handle(ctx context.Context, channelID uuid.UUID, record *integration.SyncOrderRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, record.OrderID)
	if h.failOn[record.OrderID] {
		return errors.New("upsert failed")
	}
	return nil
}

func newExecutorFixture(t *testing.T) (*OrderSyncExecutorImpl, *mockChannelRepository, *mockMarketplaceClient, *recordingHandler, *integration.MarketplaceChannel) {
	t.Helper()
	channel := newTestChannel()
	channels := &mockChannelRepository{}
	client := &mockMarketplaceClient{}
	handler := &recordingHandler{failOn: map[string]bool{}}

	channels.On("FindByID", mock.Anything, channel.ID).Return(channel, nil)
	client.On("EnsureValidToken", mock.Anything, channel).Return(channel, nil)

	executor := NewOrderSyncExecutor(OrderSyncExecutorConfig{PageSize: 2, UpsertConcurrency: 2}, channels, client, handler.handle, newTestLogger())
	return executor, channels, client, handler, channel
}

func TestOrderSyncExecutor_Execute_PagesThroughOrders(t *testing.T) {
	executor, channels, client, handler, channel := newExecutorFixture(t)
	job := NewOrderSyncJob(channel.ID, time.Now().Add(-time.Hour), time.Now(), 3)

	client.On("Call", mock.Anything, channel, marketplace.OperationGetOrders, pageMatcher(1)).
		Return(ordersPage(true, "100-1", "100-2"), nil).Once()
	client.On("Call", mock.Anything, channel, marketplace.OperationGetOrders, pageMatcher(2)).
		Return(ordersPage(false, "100-3", ""), nil).Once()
	channels.On("MarkSynced", mock.Anything, channel.ID, job.EndTime).Return(nil).Once()

	job.Start()
	err := executor.Execute(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, OrderSyncJobStatusSuccess, job.Status)
	assert.Equal(t, 2, job.Pages)
	assert.Equal(t, 4, job.TotalOrders)
	assert.Equal(t, 3, job.SuccessCount)
	assert.Equal(t, 1, job.SkippedCount)
	assert.ElementsMatch(t, []string{"100-1", "100-2", "100-3"}, handler.seen)
	client.AssertExpectations(t)
	channels.AssertExpectations(t)
}

func TestOrderSyncExecutor_Execute_RecordFailureFailsJob(t *testing.T) {
	executor, channels, client, handler, channel := newExecutorFixture(t)
	handler.failOn["100-2"] = true
	job := NewOrderSyncJob(channel.ID, time.Now().Add(-time.Hour), time.Now(), 3)

	client.On("Call", mock.Anything, channel, marketplace.OperationGetOrders, pageMatcher(1)).
		Return(ordersPage(false, "100-1", "100-2"), nil).Once()

	job.Start()
	err := executor.Execute(context.Background(), job)

	require.ErrorIs(t, err, ErrOrderSyncFailed)
	assert.Equal(t, OrderSyncJobStatusPartial, job.Status)
	assert.Equal(t, 1, job.FailedCount)
	assert.Equal(t, []string{"100-2"}, job.FailedOrderIDs)
	channels.AssertNotCalled(t, "MarkSynced", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderSyncExecutor_Execute_TransportFailure(t *testing.T) {
	executor, channels, client, _, channel := newExecutorFixture(t)
	job := NewOrderSyncJob(channel.ID, time.Now().Add(-time.Hour), time.Now(), 3)

	client.On("Call", mock.Anything, channel, marketplace.OperationGetOrders, pageMatcher(1)).
		Return(nil, integration.ErrTransportFailure).Once()

	job.Start()
	err := executor.Execute(context.Background(), job)

	require.ErrorIs(t, err, ErrOrderSyncFailed)
	assert.ErrorIs(t, err, integration.ErrTransportFailure)
	channels.AssertNotCalled(t, "MarkSynced", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderSyncExecutor_Execute_ChannelErrors(t *testing.T) {
	t.Run("unknown channel", func(t *testing.T) {
		channels := &mockChannelRepository{}
		id := uuid.New()
		channels.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)
		executor := NewOrderSyncExecutor(DefaultOrderSyncExecutorConfig(), channels, &mockMarketplaceClient{}, (&recordingHandler{}).handle, newTestLogger())

		err := executor.Execute(context.Background(), NewOrderSyncJob(id, time.Now(), time.Now(), 0))

		assert.ErrorIs(t, err, integration.ErrChannelNotFound)
	})

	t.Run("disabled channel", func(t *testing.T) {
		channel := newTestChannel()
		channel.Enabled = false
		channels := &mockChannelRepository{}
		channels.On("FindByID", mock.Anything, channel.ID).Return(channel, nil)
		client := &mockMarketplaceClient{}
		executor := NewOrderSyncExecutor(DefaultOrderSyncExecutorConfig(), channels, client, (&recordingHandler{}).handle, newTestLogger())

		err := executor.Execute(context.Background(), NewOrderSyncJob(channel.ID, time.Now(), time.Now(), 0))

		assert.ErrorIs(t, err, integration.ErrChannelDisabled)
		client.AssertNotCalled(t, "EnsureValidToken", mock.Anything, mock.Anything)
	})

	t.Run("token refresh failure", func(t *testing.T) {
		channel := newTestChannel()
		channels := &mockChannelRepository{}
		channels.On("FindByID", mock.Anything, channel.ID).Return(channel, nil)
		client := &mockMarketplaceClient{}
		client.On("EnsureValidToken", mock.Anything, channel).Return(nil, integration.ErrTokenRefreshFailed)
		executor := NewOrderSyncExecutor(DefaultOrderSyncExecutorConfig(), channels, client, (&recordingHandler{}).handle, newTestLogger())

		err := executor.Execute(context.Background(), NewOrderSyncJob(channel.ID, time.Now(), time.Now(), 0))

		assert.ErrorIs(t, err, integration.ErrTokenRefreshFailed)
		client.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
