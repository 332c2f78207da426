package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response for work queued in the background
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps service errors onto the response envelope. Unknown errors
// are logged and become a 500 without leaking their text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, integration.ErrChannelNotFound):
		h.NotFound(c, "Marketplace channel not found")
		return
	case errors.Is(err, integration.ErrOrderNotFound):
		h.NotFound(c, "Marketplace order not found")
		return
	case errors.Is(err, integration.ErrChannelDisabled):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, "Marketplace channel is disabled")
		return
	case errors.Is(err, scheduler.ErrOrderSyncInvalidTimeRange):
		h.BadRequest(c, "Invalid sync time range")
		return
	case errors.Is(err, scheduler.ErrSchedulerNotRunning), errors.Is(err, scheduler.ErrJobQueueFull):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Order sync is not accepting jobs")
		return
	case errors.Is(err, integration.ErrTransportFailure), errors.Is(err, integration.ErrRemoteDeclaredFailure):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeMarketplaceFailure, "Marketplace call failed")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled request error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	h.InternalError(c, "An unexpected error occurred")
}

// uuidParam parses a path parameter, writing a 400 when it is not a UUID.
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// Envelopes referenced by the swag annotations. Handlers build them through
// the dto constructors.
type (
	// APIResponse is the success envelope with typed data.
	APIResponse[T any] struct {
		Success bool           `json:"success" example:"true"`
		Data    T              `json:"data,omitempty"`
		Error   *dto.ErrorInfo `json:"error,omitempty"`
	}

	// ErrorResponse is the failure envelope.
	ErrorResponse struct {
		Success bool           `json:"success" example:"false"`
		Error   *dto.ErrorInfo `json:"error"`
	}
)
