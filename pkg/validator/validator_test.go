package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type lineRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=99"`
	Kind      string `json:"kind" validate:"omitempty,oneof=customer vendor"`
	VendorRef string `json:"-" validate:"omitempty,uuid"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(loginRequest{Email: "ada@example.com", Password: "secret1"}))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	fields := fieldsOf(t, Validate(loginRequest{}))
	assert.Equal(t, "is required", fields["email"])
	assert.Equal(t, "is required", fields["password"])
	assert.NotContains(t, fields, "Email")
}

func TestValidate_InvalidEmail(t *testing.T) {
	fields := fieldsOf(t, Validate(loginRequest{Email: "not-an-email", Password: "secret1"}))
	assert.Equal(t, "must be a valid email address", fields["email"])
}

func TestValidate_MinLength(t *testing.T) {
	fields := fieldsOf(t, Validate(loginRequest{Email: "ada@example.com", Password: "abc"}))
	assert.Contains(t, fields["password"], "at least 6")
}

func TestValidate_OutOfRange(t *testing.T) {
	fields := fieldsOf(t, Validate(lineRequest{ProductID: "p1", Quantity: 150}))
	assert.Contains(t, fields["quantity"], "99")
}

func TestValidate_OneOf(t *testing.T) {
	fields := fieldsOf(t, Validate(lineRequest{ProductID: "p1", Kind: "admin"}))
	assert.Contains(t, fields["kind"], "one of")
}

func TestValidate_DashTagFallsBackToFieldName(t *testing.T) {
	fields := fieldsOf(t, Validate(lineRequest{ProductID: "p1", VendorRef: "nope"}))
	assert.Equal(t, "must be a valid UUID", fields["VendorRef"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(loginRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'email'")
	assert.Contains(t, err.Error(), "is required")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"email":"ada@example.com","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var dst loginRequest
	require.NoError(t, DecodeAndValidate(httptest.NewRecorder(), req, &dst, 1<<10))
	assert.Equal(t, "ada@example.com", dst.Email)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var dst loginRequest
	err := DecodeAndValidate(httptest.NewRecorder(), req, &dst, 1<<10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"bad"}`))

	var dst loginRequest
	err := DecodeAndValidate(httptest.NewRecorder(), req, &dst, 1<<10)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestDecode_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)

	var dst loginRequest
	assert.ErrorIs(t, Decode(httptest.NewRecorder(), req, &dst, 1<<10), ErrEmptyBody)
}

func TestDecode_BodyOverLimit(t *testing.T) {
	body := `{"email":"` + strings.Repeat("a", 64) + `@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst loginRequest
	err := Decode(httptest.NewRecorder(), req, &dst, 16)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyBody)
	assert.Contains(t, err.Error(), "invalid request body")
}
