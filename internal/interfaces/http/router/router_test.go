package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/marketplace"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/interfaces/http/handler"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_MountsNestedRoutes(t *testing.T) {
	engine := gin.New()
	nested := func(c *gin.Context) { c.Header("X-Nested", "1") }

	NewRouter(engine, WithAPIVersion("v2")).Add(Routes{
		Prefix: "/test",
		Endpoints: []Endpoint{
			{Method: http.MethodGet, Path: "/ping", Handler: func(c *gin.Context) { c.String(http.StatusOK, "pong") }},
		},
		Children: []Routes{{
			Prefix:     "/nested",
			Middleware: []gin.HandlerFunc{nested},
			Endpoints: []Endpoint{
				{Method: http.MethodPost, Path: "/echo", Handler: func(c *gin.Context) { c.Status(http.StatusNoContent) }},
			},
		}},
	}).Mount()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Empty(t, w.Header().Get("X-Nested"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/test/nested/echo", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Nested"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/test/nested/echo", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubChannels struct{ id uuid.UUID }

func (s stubChannels) FindByID(_ context.Context, id uuid.UUID) (*integration.MarketplaceChannel, error) {
	if id != s.id {
		return nil, shared.ErrNotFound
	}
	return &integration.MarketplaceChannel{Name: "ebay-us", Enabled: true}, nil
}

type stubDispatcher struct{}

func (stubDispatcher) Dispatch(context.Context, *appintegration.Notification) error { return nil }

type stubOrders struct{}

func (stubOrders) FindByID(context.Context, uuid.UUID) (*integration.MarketplaceOrder, error) {
	return nil, shared.ErrNotFound
}

func (stubOrders) ListByOrder(context.Context, uuid.UUID) ([]integration.OrderAuditEntry, error) {
	return nil, nil
}

type stubTrigger struct{}

func (stubTrigger) TriggerManualSync(_ context.Context, channelID uuid.UUID, start, end time.Time) (*scheduler.OrderSyncJob, error) {
	return &scheduler.OrderSyncJob{ID: uuid.New(), ChannelID: channelID, StartTime: start, EndTime: end, Status: scheduler.OrderSyncJobStatusPending}, nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

func TestRegisterAPI(t *testing.T) {
	channelID := uuid.New()
	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "router-test-secret", Issuer: "ordersync"})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	RegisterAPI(NewRouter(engine), APIHandlers{
		Notifications: handler.NewNotificationHandler(stubDispatcher{}, stubChannels{id: channelID}, marketplace.NewPayloadDecoder(nil), zap.NewNop()),
		Orders:        handler.NewOrderHandler(stubOrders{}, stubOrders{}),
		Sync:          handler.NewSyncHandler(stubTrigger{}),
		System:        handler.NewSystemHandler("ordersync", "test", stubPinger{}),
	}, middleware.JWTAuth(middleware.JWTMiddlewareConfig{Validator: jwtService}))

	readToken, err := jwtService.GenerateToken("ops@example.com", time.Hour, auth.ScopeOrdersRead)
	require.NoError(t, err)
	syncToken, err := jwtService.GenerateToken("ops@example.com", time.Hour, auth.ScopeSyncTrigger)
	require.NoError(t, err)

	syncBody := `{"start_time":"2024-03-09T00:00:00Z","end_time":"2024-03-09T06:00:00Z"}`
	orderPath := "/api/v1/orders/" + uuid.NewString()
	syncPath := "/api/v1/channels/" + channelID.String() + "/sync"

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"system info", http.MethodGet, "/api/v1/system/info", "", "", http.StatusOK},
		{"notification without token", http.MethodPost, "/api/v1/channels/" + channelID.String() + "/notifications", `{"OrderID":"ORD1"}`, "", http.StatusOK},
		{"order without token", http.MethodGet, orderPath, "", "", http.StatusUnauthorized},
		{"order with read scope", http.MethodGet, orderPath, "", readToken, http.StatusNotFound},
		{"order with sync scope only", http.MethodGet, orderPath, "", syncToken, http.StatusForbidden},
		{"sync without token", http.MethodPost, syncPath, syncBody, "", http.StatusUnauthorized},
		{"sync with read scope only", http.MethodPost, syncPath, syncBody, readToken, http.StatusForbidden},
		{"sync with sync scope", http.MethodPost, syncPath, syncBody, syncToken, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestRegisterSwagger(t *testing.T) {
	engine := gin.New()
	RegisterSwagger(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger")
}
