package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
)

// Headers set by the marketplace push endpoint.
const (
	EventNameHeader  = "X-Marketplace-Event"
	DeliveryIDHeader = "X-Marketplace-Delivery-Id"
)

// ChannelLookup resolves the channel a notification was pushed for.
type ChannelLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*integration.MarketplaceChannel, error)
}

// PayloadDecoder turns a raw notification body into a Payload.
type PayloadDecoder interface {
	Decode(data []byte) (integration.Payload, error)
}

// NotificationHandler receives marketplace push notifications over HTTP.
type NotificationHandler struct {
	BaseHandler
	dispatcher appintegration.Dispatcher
	channels   ChannelLookup
	decoder    PayloadDecoder
	logger     *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(
	dispatcher appintegration.Dispatcher,
	channels ChannelLookup,
	decoder PayloadDecoder,
	log *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		channels:   channels,
		decoder:    decoder,
		logger:     log.Named("notification_handler"),
	}
}

// Receive godoc
// @ID           receiveMarketplaceNotification
// @Summary      Receive a marketplace notification
// @Description  Applies one pushed marketplace event to the local order. Unknown events and events without an order identifier are acknowledged and ignored. A 5xx asks the sender to redeliver.
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        channel_id path string true "Channel ID"
// @Param        X-Marketplace-Event header string false "Event name"
// @Param        X-Marketplace-Delivery-Id header string false "Delivery ID"
// @Success      200 {object} APIResponse[dto.NotificationAck]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /channels/{channel_id}/notifications [post]
func (h *NotificationHandler) Receive(c *gin.Context) {
	channelID, ok := h.uuidParam(c, "channel_id")
	if !ok {
		return
	}

	ctx, log := logger.WithChannelID(c.Request.Context(), h.logger, channelID.String())

	if _, err := h.channels.FindByID(ctx, channelID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = integration.ErrChannelNotFound
		}
		h.HandleError(c, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		h.BadRequest(c, "Notification body is required")
		return
	}
	payload, err := h.decoder.Decode(body)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Notification body is not a JSON object")
		return
	}

	eventName := c.GetHeader(EventNameHeader)
	if eventName == "" {
		eventName = payload.String("NotificationEventName")
	}

	n := &appintegration.Notification{
		ChannelID:  channelID,
		EventName:  eventName,
		DeliveryID: c.GetHeader(DeliveryIDHeader),
		ReceivedAt: time.Now(),
		Payload:    payload,
	}
	if err := h.dispatcher.Dispatch(ctx, n); err != nil {
		log.Error("Failed to apply marketplace notification",
			zap.String("event_name", n.EventName),
			zap.String("delivery_id", n.DeliveryID),
			zap.Error(err),
		)
		h.InternalError(c, "Failed to apply notification")
		return
	}

	h.Success(c, dto.NotificationAck{
		EventName:  n.EventName,
		EventType:  integration.ParseEventType(n.EventName).String(),
		DeliveryID: n.DeliveryID,
	})
}
