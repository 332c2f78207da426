package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
)

// OrderReader loads a marketplace order with its items.
type OrderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*integration.MarketplaceOrder, error)
}

// AuditReader lists the audit trail of an order.
type AuditReader interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]integration.OrderAuditEntry, error)
}

// OrderHandler serves read access to reconciled orders.
type OrderHandler struct {
	BaseHandler
	orders OrderReader
	audit  AuditReader
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderReader, audit AuditReader) *OrderHandler {
	return &OrderHandler{orders: orders, audit: audit}
}

// GetOrder godoc
// @ID           getMarketplaceOrder
// @Summary      Get a marketplace order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        order_id path string true "Order ID"
// @Success      200 {object} APIResponse[dto.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{order_id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}
	h.Success(c, dto.NewOrderResponse(order))
}

// GetAudit godoc
// @ID           getMarketplaceOrderAudit
// @Summary      List the audit trail of a marketplace order
// @Description  One entry per applied notification or sync upsert, in sequence order.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        order_id path string true "Order ID"
// @Success      200 {object} APIResponse[[]dto.AuditEntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{order_id}/audit [get]
func (h *OrderHandler) GetAudit(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}
	entries, err := h.audit.ListByOrder(c.Request.Context(), order.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAuditEntryResponses(entries))
}

func (h *OrderHandler) load(c *gin.Context) (*integration.MarketplaceOrder, bool) {
	id, ok := h.uuidParam(c, "order_id")
	if !ok {
		return nil, false
	}
	order, err := h.orders.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = integration.ErrOrderNotFound
		}
		h.HandleError(c, err)
		return nil, false
	}
	return order, true
}
