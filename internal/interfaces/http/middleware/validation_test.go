package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/ordersync/internal/interfaces/http/dto"
)

type windowRequest struct {
	ChannelID string    `json:"channel_id" binding:"required,uuid"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req windowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-validation")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError_FieldErrors(t *testing.T) {
	router := newValidationRouter()

	w := postJSON(router, `{"channel_id":"not-a-uuid","start_time":"2024-03-10T00:00:00Z","end_time":"2024-03-09T00:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-validation", resp.Error.RequestID)

	fields := map[string]string{}
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, map[string]string{
		"channel_id": "Invalid UUID format",
		"end_time":   "Must be after StartTime",
	}, fields)
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	router := newValidationRouter()

	w := postJSON(router, `{"channel_id":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestHandleValidationError_Valid(t *testing.T) {
	router := newValidationRouter()

	w := postJSON(router, `{"channel_id":"9f1c2f0e-3f0a-4c55-8a57-2f9d3c1a7b10","start_time":"2024-03-09T00:00:00Z","end_time":"2024-03-10T00:00:00Z"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidationMessage(t *testing.T) {
	type sample struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		Max      string `validate:"max=3"`
		OneOf    string `validate:"oneof=a b"`
		Count    int    `validate:"gte=10"`
	}

	err := validator.New().Struct(sample{Min: "ab", Max: "abcdef", OneOf: "c", Count: 1})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = validationMessage(e)
	}
	assert.Equal(t, map[string]string{
		"Required": "This field is required",
		"Min":      "Must be at least 5 characters",
		"Max":      "Must be at most 3 characters",
		"OneOf":    "Must be one of: a b",
		"Count":    "Must be greater than or equal to 10",
	}, got)
}
