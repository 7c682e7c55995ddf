package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Sentinels for the session and checkout error taxonomy.
var (
	ErrAuthentication        = errors.New("authentication failed")
	ErrNetwork               = errors.New("network error")
	ErrBackendRejection      = errors.New("backend rejected request")
	ErrCrossVendor           = errors.New("basket belongs to a different vendor")
	ErrPaymentCancelled      = errors.New("payment cancelled")
	ErrPaymentFailed         = errors.New("payment failed")
	ErrInvalidServerResponse = errors.New("invalid server response")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Authentication creates a 401 error for rejected credentials.
func Authentication(message string) *AppError {
	return &AppError{
		Code:    "AUTHENTICATION_FAILED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrAuthentication,
	}
}

// Network classifies a transport failure. The cause is kept for errors.Is
// checks such as context.DeadlineExceeded.
func Network(cause error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: "the server could not be reached",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrNetwork, cause),
	}
}

// BackendRejection carries a structured backend error. The message is kept
// verbatim so it can be shown to the user as-is.
func BackendRejection(status int, code, message string) *AppError {
	if code == "" {
		code = "BACKEND_REJECTION"
	}
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     ErrBackendRejection,
	}
}

// CrossVendor creates a 409 error for adding an item of another vendor.
func CrossVendor(currentVendorID, incomingVendorID string) *AppError {
	return &AppError{
		Code:    "CROSS_VENDOR_BASKET",
		Message: fmt.Sprintf("basket holds items from vendor %s, cannot add items from vendor %s", currentVendorID, incomingVendorID),
		Status:  http.StatusConflict,
		Err:     ErrCrossVendor,
	}
}

// PaymentCancelled marks a payment the user dismissed.
func PaymentCancelled(message string) *AppError {
	return &AppError{
		Code:    "PAYMENT_CANCELLED",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrPaymentCancelled,
	}
}

// PaymentFailed creates a 422 error for a payment charge failure.
func PaymentFailed(message string) *AppError {
	return &AppError{
		Code:    "PAYMENT_FAILED",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrPaymentFailed,
	}
}

// InvalidServerResponse creates a 502 error for a malformed backend payload.
func InvalidServerResponse(message string) *AppError {
	return &AppError{
		Code:    "INVALID_SERVER_RESPONSE",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     ErrInvalidServerResponse,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrCrossVendor):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPaymentFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidServerResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the text suitable for an end-user alert. Backend and
// payment messages pass through verbatim; anything else collapses to a
// generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "something went wrong, please try again"
}
