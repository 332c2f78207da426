package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/marketplace"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
)

func newNotificationEngine(dispatcher *recordingDispatcher, channelID uuid.UUID) *gin.Engine {
	channels := &fakeChannels{channels: map[uuid.UUID]*integration.MarketplaceChannel{
		channelID: {Name: "ebay-us", Enabled: true},
	}}
	h := NewNotificationHandler(dispatcher, channels, marketplace.NewPayloadDecoder(nil), zap.NewNop())

	engine := newEngine()
	engine.POST("/channels/:channel_id/notifications", h.Receive)
	return engine
}

func notificationRequest(channelID, body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/channels/"+channelID+"/notifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestNotificationHandler_EventFromHeader(t *testing.T) {
	channelID := uuid.New()
	dispatcher := &recordingDispatcher{}
	engine := newNotificationEngine(dispatcher, channelID)

	w := serve(engine, notificationRequest(channelID.String(),
		`{"OrderID":"ORD1","ShipmentTrackingDetails":{"ShipmentTrackingNumber":"1Z999"}}`,
		map[string]string{EventNameHeader: "ItemMarkedShipped", DeliveryIDHeader: "dlv-1"},
	))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dispatcher.received, 1)
	n := dispatcher.received[0]
	assert.Equal(t, channelID, n.ChannelID)
	assert.Equal(t, "ItemMarkedShipped", n.EventName)
	assert.Equal(t, "dlv-1", n.DeliveryID)
	assert.Equal(t, "ORD1", n.Payload.String("OrderID"))
	assert.False(t, n.ReceivedAt.IsZero())

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "shipped", data["event_type"])
	assert.Equal(t, "dlv-1", data["delivery_id"])
}

func TestNotificationHandler_EventFromBody(t *testing.T) {
	channelID := uuid.New()
	dispatcher := &recordingDispatcher{}
	engine := newNotificationEngine(dispatcher, channelID)

	w := serve(engine, notificationRequest(channelID.String(),
		`{"NotificationEventName":"SomeFutureEvent","OrderID":"ORD1"}`, nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dispatcher.received, 1)
	assert.Equal(t, "SomeFutureEvent", dispatcher.received[0].EventName)

	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, string(integration.EventTypeUnknown), data["event_type"])
}

func TestNotificationHandler_DispatchFailureAsksForRedelivery(t *testing.T) {
	channelID := uuid.New()
	dispatcher := &recordingDispatcher{err: errors.New("deadlock detected")}
	engine := newNotificationEngine(dispatcher, channelID)

	w := serve(engine, notificationRequest(channelID.String(), `{"OrderID":"ORD1"}`,
		map[string]string{EventNameHeader: "FixedPriceTransaction"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrCodeInternal, decodeResponse(t, w).Error.Code)
}

func TestNotificationHandler_Rejections(t *testing.T) {
	channelID := uuid.New()

	tests := []struct {
		name       string
		channelID  string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed channel id", "not-a-uuid", `{}`, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"unknown channel", uuid.NewString(), `{}`, http.StatusNotFound, dto.ErrCodeNotFound},
		{"empty body", channelID.String(), ``, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"not an object", channelID.String(), `[1,2]`, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"truncated", channelID.String(), `{"OrderID":`, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &recordingDispatcher{}
			engine := newNotificationEngine(dispatcher, channelID)

			w := serve(engine, notificationRequest(tt.channelID, tt.body,
				map[string]string{EventNameHeader: "ItemMarkedShipped"}))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
			assert.Empty(t, dispatcher.received)
		})
	}
}
