package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func parseAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.True(t, errors.Is(err, apperrors.ErrBackendRejection))
	return appErr
}

func TestParseResponseError_TopLevelMessage(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"message":"Delivery is not available in your area"}`)
	appErr := parseAppError(t, ParseResponseError(resp, "orderPricing"))

	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "BACKEND_REJECTION", appErr.Code)
	assert.Equal(t, "Delivery is not available in your area", appErr.Message)
}

func TestParseResponseError_NestedError(t *testing.T) {
	resp := makeResponse(http.StatusConflict, `{"error":{"code":"CART_LOCKED","message":"cart is being checked out"}}`)
	appErr := parseAppError(t, ParseResponseError(resp, "placeOrder"))

	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "CART_LOCKED", appErr.Code)
	assert.Equal(t, "cart is being checked out", appErr.Message)
}

func TestParseResponseError_StringError(t *testing.T) {
	resp := makeResponse(http.StatusUnauthorized, `{"error":"Invalid email or password"}`)
	appErr := parseAppError(t, ParseResponseError(resp, "login"))

	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.Equal(t, "Invalid email or password", appErr.Message)
}

func TestParseResponseError_ServerErrorKeepsMessage(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, `{"message":"Stripe is unavailable"}`)
	appErr := parseAppError(t, ParseResponseError(resp, "placeOrder"))

	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "Stripe is unavailable", appErr.Message)
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "upstream timed out\n")
	appErr := parseAppError(t, ParseResponseError(resp, "postOrder"))

	assert.Equal(t, "upstream timed out", appErr.Message)
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	resp := makeResponse(http.StatusNotFound, "")
	appErr := parseAppError(t, ParseResponseError(resp, "postOrder"))

	assert.Equal(t, "Not Found", appErr.Message)
}
