// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/parts-pricing/app/dto"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/amirphl/parts-pricing/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cast"
)

const requestTimeout = 30 * time.Second

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "permission":
		return err.Field() + " must be one of: " + strings.Join(models.AllPermissions, " ")
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// newValidator returns a validator with the custom tags used by the DTOs
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("permission", func(fl validator.FieldLevel) bool {
		return slices.Contains(models.AllPermissions, strings.TrimSpace(fl.Field().String()))
	})
	return v
}

// baseHandler carries the response envelope and request plumbing shared by all handlers
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: newValidator()}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// requestError is a rejected request that has not been written to the response yet
type requestError struct {
	message string
	code    string
	details any
}

func (e *requestError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func validationFailed(details any) *requestError {
	return &requestError{message: "Validation failed", code: "VALIDATION_ERROR", details: details}
}

// reject writes a 400 for an error returned by bindJSON, validate, pathID or a queryReader
func (h *baseHandler) reject(c fiber.Ctx, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, re.message, re.code, re.details)
	}
	return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", "INVALID_REQUEST", err.Error())
}

// bindJSON decodes and validates the body
func (h *baseHandler) bindJSON(c fiber.Ctx, req any) error {
	if err := c.Bind().JSON(req); err != nil {
		return &requestError{message: "Invalid request body", code: "INVALID_REQUEST", details: err.Error()}
	}
	return h.validate(req)
}

func (h *baseHandler) validate(req any) error {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationFailed(err.Error())
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return validationFailed(messages)
}

// requestContext derives a bounded context for flow calls from the request
func (h *baseHandler) requestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), requestTimeout)
}

// pathID parses the :id route parameter
func (h *baseHandler) pathID(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &requestError{message: "Invalid id", code: "INVALID_ID", details: c.Params("id")}
	}
	return uint(id), nil
}

// flowError maps business errors to HTTP statuses. Unknown errors are logged and reported as fallback.
func (h *baseHandler) flowError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	status := fiber.StatusInternalServerError
	switch {
	case businessflow.IsValidationError(err):
		status = fiber.StatusBadRequest
	case businessflow.IsNotFound(err):
		status = fiber.StatusNotFound
	case businessflow.IsConflict(err):
		status = fiber.StatusConflict
	case businessflow.IsInvalidCredentials(err):
		status = fiber.StatusUnauthorized
	case businessflow.IsPermissionDenied(err), businessflow.IsUserInactive(err):
		status = fiber.StatusForbidden
	case businessflow.IsCaptchaInvalid(err):
		status = fiber.StatusBadRequest
	case businessflow.IsCaptchaNotAvailable(err):
		status = fiber.StatusNotFound
	case businessflow.IsImportFailed(err):
		status = fiber.StatusUnprocessableEntity
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("%s: %v", fallbackMessage, err)
		return h.ErrorResponse(c, status, fallbackMessage, businessflow.ErrorCode(err, fallbackCode), nil)
	}
	return h.ErrorResponse(c, status, businessflow.ErrorMessage(err, fallbackMessage), businessflow.ErrorCode(err, fallbackCode), nil)
}

func queryString(c fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

// queryReader parses optional query values and remembers the malformed ones
type queryReader struct {
	c       fiber.Ctx
	invalid []string
}

func newQueryReader(c fiber.Ctx) *queryReader {
	return &queryReader{c: c}
}

func (q *queryReader) String(key string) *string {
	return queryString(q.c, key)
}

func (q *queryReader) Float(key string) *float64 {
	v := queryString(q.c, key)
	if v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(*v)
	if err != nil {
		q.invalid = append(q.invalid, key+" must be a number")
		return nil
	}
	return &f
}

func (q *queryReader) Bool(key string) *bool {
	v := queryString(q.c, key)
	if v == nil {
		return nil
	}
	b, err := cast.ToBoolE(*v)
	if err != nil {
		q.invalid = append(q.invalid, key+" must be true or false")
		return nil
	}
	return &b
}

func (q *queryReader) Int(key string, fallback int) int {
	v := queryString(q.c, key)
	if v == nil {
		return fallback
	}
	n, err := cast.ToIntE(*v)
	if err != nil || n < 0 {
		q.invalid = append(q.invalid, key+" must be a non-negative integer")
		return fallback
	}
	return n
}

// Err reports every malformed value seen so far
func (q *queryReader) Err() error {
	if len(q.invalid) == 0 {
		return nil
	}
	return validationFailed(q.invalid)
}

// partListFilter reads the parts filter shared by list, count and export
func partListFilter(q *queryReader) dto.PartListFilter {
	return dto.PartListFilter{
		Search:   q.String("search"),
		Status:   q.String("status"),
		Device:   q.String("device"),
		Category: q.String("category"),
		MinPrice: q.Float("min_price"),
		MaxPrice: q.Float("max_price"),
		InStock:  q.Bool("in_stock"),
	}
}
