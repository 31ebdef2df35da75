// Package businessflow contains the core business logic and use cases for parts pricing
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Validation errors
	ErrValidation         = errors.New("validation failed")
	ErrInvalidLaborLevel  = errors.New("invalid labor level")
	ErrInvalidPricingMode = errors.New("invalid customer type")
	ErrNothingToPrice     = errors.New("nothing to price")
	ErrNegativeBase       = errors.New("total base price must not be negative")
	ErrInvalidCategory    = errors.New("invalid device category")
	ErrPartCodeRequired   = errors.New("part code is required")
	ErrClassNameRequired  = errors.New("formula class name is required")
	ErrModelNameRequired  = errors.New("model name is required")
	ErrNoPartsSelected    = errors.New("no parts selected")

	// Not found errors
	ErrPartNotFound        = errors.New("part not found")
	ErrFormulaNotFound     = errors.New("formula not found")
	ErrDeviceModelNotFound = errors.New("device model not found")
	ErrUserNotFound        = errors.New("user not found")

	// Conflict errors
	ErrPartCodeExists   = errors.New("part code already exists")
	ErrModelNameExists  = errors.New("model name already exists")
	ErrUsernameExists   = errors.New("username already exists")
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")

	// User and auth errors
	ErrUnknownPermission   = errors.New("unknown permission")
	ErrInvalidRole         = errors.New("invalid role")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPermissionDenied    = errors.New("not enough permissions")
	ErrInvalidCredentials  = errors.New("incorrect username or password")
	ErrUserInactive        = errors.New("user is inactive")
	ErrCaptchaInvalid      = errors.New("captcha verification failed")
	ErrCaptchaNotAvailable = errors.New("captcha is disabled")

	// Import errors
	ErrUnsupportedFile         = errors.New("only .xlsx or .xls files are supported")
	ErrImportFailed            = errors.New("failed to import spreadsheet")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// IsValidationError reports whether err is caused by bad caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidLaborLevel) ||
		errors.Is(err, ErrInvalidPricingMode) ||
		errors.Is(err, ErrNothingToPrice) ||
		errors.Is(err, ErrNegativeBase) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrPartCodeRequired) ||
		errors.Is(err, ErrClassNameRequired) ||
		errors.Is(err, ErrModelNameRequired) ||
		errors.Is(err, ErrNoPartsSelected) ||
		errors.Is(err, ErrUnknownPermission) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrUnsupportedFile) ||
		errors.Is(err, ErrUnsupportedExportFormat)
}

// IsNotFound reports whether err refers to a missing part, formula, device model or user.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPartNotFound) ||
		errors.Is(err, ErrFormulaNotFound) ||
		errors.Is(err, ErrDeviceModelNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPartCodeExists) ||
		errors.Is(err, ErrModelNameExists) ||
		errors.Is(err, ErrUsernameExists) ||
		errors.Is(err, ErrCannotDeleteSelf)
}

func IsNothingToPrice(err error) bool {
	return errors.Is(err, ErrNothingToPrice)
}

func IsInvalidLaborLevel(err error) bool {
	return errors.Is(err, ErrInvalidLaborLevel)
}

func IsFormulaNotFound(err error) bool {
	return errors.Is(err, ErrFormulaNotFound)
}

func IsPartNotFound(err error) bool {
	return errors.Is(err, ErrPartNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsUserInactive(err error) bool {
	return errors.Is(err, ErrUserInactive)
}

func IsCaptchaInvalid(err error) bool {
	return errors.Is(err, ErrCaptchaInvalid)
}

func IsCaptchaNotAvailable(err error) bool {
	return errors.Is(err, ErrCaptchaNotAvailable)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsImportFailed(err error) bool {
	return errors.Is(err, ErrImportFailed)
}

// ErrorCode returns the BusinessError code carried by err, or fallback.
func ErrorCode(err error, fallback string) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Code != "" {
		return be.Code
	}
	return fallback
}

// ErrorMessage returns the BusinessError message carried by err, or fallback.
func ErrorMessage(err error, fallback string) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
