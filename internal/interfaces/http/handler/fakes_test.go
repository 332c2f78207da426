package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	return engine
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type fakeChannels struct {
	channels map[uuid.UUID]*integration.MarketplaceChannel
}

func (f *fakeChannels) FindByID(_ context.Context, id uuid.UUID) (*integration.MarketplaceChannel, error) {
	if ch, ok := f.channels[id]; ok {
		return ch, nil
	}
	return nil, shared.ErrNotFound
}

type recordingDispatcher struct {
	received []*appintegration.Notification
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n *appintegration.Notification) error {
	d.received = append(d.received, n)
	return d.err
}

type fakeOrders struct {
	orders map[uuid.UUID]*integration.MarketplaceOrder
	audit  map[uuid.UUID][]integration.OrderAuditEntry
}

func (f *fakeOrders) FindByID(_ context.Context, id uuid.UUID) (*integration.MarketplaceOrder, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeOrders) ListByOrder(_ context.Context, orderID uuid.UUID) ([]integration.OrderAuditEntry, error) {
	return f.audit[orderID], nil
}

type fakeTrigger struct {
	job *scheduler.OrderSyncJob
	err error

	channelID  uuid.UUID
	start, end time.Time
}

func (f *fakeTrigger) TriggerManualSync(_ context.Context, channelID uuid.UUID, startTime, endTime time.Time) (*scheduler.OrderSyncJob, error) {
	f.channelID, f.start, f.end = channelID, startTime, endTime
	return f.job, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }
