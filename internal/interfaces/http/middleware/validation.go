package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/erp/ordersync/internal/interfaces/http/dto"
)

var setupValidatorOnce sync.Once

// SetupValidator makes gin's validator report JSON field names. Safe to call
// more than once.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
	})
}

func jsonFieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return ""
}

// HandleValidationError writes a 400 for a failed bind: per-field details for
// validation failures, INVALID_JSON for anything else.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Malformed request body", requestID))
		return
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: validationMessage(fe)})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, details))
}

var validationMessages = map[string]func(fe validator.FieldError) string{
	"required": func(validator.FieldError) string { return "This field is required" },
	"uuid":     func(validator.FieldError) string { return "Invalid UUID format" },
	"oneof":    func(fe validator.FieldError) string { return "Must be one of: " + fe.Param() },
	"gtfield":  func(fe validator.FieldError) string { return "Must be after " + fe.Param() },
	"gte":      func(fe validator.FieldError) string { return "Must be greater than or equal to " + fe.Param() },
	"lte":      func(fe validator.FieldError) string { return "Must be less than or equal to " + fe.Param() },
	"min":      func(fe validator.FieldError) string { return "Must be at least " + fe.Param() + lengthUnit(fe) },
	"max":      func(fe validator.FieldError) string { return "Must be at most " + fe.Param() + lengthUnit(fe) },
}

func lengthUnit(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return " characters"
	}
	return ""
}

func validationMessage(fe validator.FieldError) string {
	if msg, ok := validationMessages[fe.Tag()]; ok {
		return msg(fe)
	}
	return "Invalid value"
}
