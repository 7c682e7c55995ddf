// Package api is the client for the storefront backend's REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
)

// Doer executes HTTP requests. httpclient.Client and
// httpclient.CircuitBreakerClient both satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token of the active identity. It is read
// when each request is built so a login or logout is seen immediately.
type TokenSource interface {
	AccessToken() string
}

// Client calls the backend.
type Client struct {
	baseURL string
	http    Doer
	tokens  TokenSource
	logger  *slog.Logger
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, doer Doer, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		tokens:  tokens,
		logger:  logger,
	}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	UserType domain.Kind `json:"userType"`
}

// RegisterCustomerRequest is the body of POST /auth/registerUser.
type RegisterCustomerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// RegisterVendorRequest is the body of POST /auth/registerVendor.
type RegisterVendorRequest struct {
	Name      string `json:"name"`
	StoreName string `json:"storeName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
	Address   string `json:"address,omitempty"`
}

// AuthResponse is returned by the login and registration endpoints.
type AuthResponse struct {
	UserData domain.Profile   `json:"userData"`
	Tokens   domain.TokenPair `json:"tokens"`
	Message  string           `json:"message"`
}

// PricingRequest is the body of POST /user/orderPricing.
type PricingRequest struct {
	CartID          string          `json:"cartId"`
	DeliveryAddress *domain.Address `json:"deliveryAddress,omitempty"`
}

// PricingResponse carries the backend's totals for a basket.
type PricingResponse struct {
	DeliveryFee   domain.Money `json:"deliveryFee"`
	ServiceCharge domain.Money `json:"serviceCharge"`
	Tips          domain.Money `json:"tips"`
	Subtotal      domain.Money `json:"subtotal"`
	Total         domain.Money `json:"total"`
}

// PlaceOrderResponse is returned by POST /user/placeOrder. Payment holds the
// provider's client secret and is empty when the backend could not create
// the payment intent.
type PlaceOrderResponse struct {
	Payment      string `json:"payment"`
	CustomerID   string `json:"customerId,omitempty"`
	EphemeralKey string `json:"ephemeralKey,omitempty"`
	OrderID      string `json:"order,omitempty"`
}

// Login signs in without authorization.
func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", req, &out, true)
	return out, err
}

// RegisterCustomer creates a customer account.
func (c *Client) RegisterCustomer(ctx context.Context, req RegisterCustomerRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/registerUser", req, &out, true)
	return out, err
}

// RegisterVendor creates a vendor account.
func (c *Client) RegisterVendor(ctx context.Context, req RegisterVendorRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/registerVendor", req, &out, true)
	return out, err
}

// OrderPricing asks the backend to price a basket.
func (c *Client) OrderPricing(ctx context.Context, req PricingRequest) (PricingResponse, error) {
	var out PricingResponse
	err := c.do(ctx, http.MethodPost, "/user/orderPricing", req, &out, false)
	return out, err
}

// PlaceOrder submits the order and returns the payment secrets.
func (c *Client) PlaceOrder(ctx context.Context, details domain.OrderDetails) (PlaceOrderResponse, error) {
	var out PlaceOrderResponse
	err := c.do(ctx, http.MethodPost, "/user/placeOrder", details, &out, false)
	return out, err
}

// PostOrder finalizes an order after the payment went through.
func (c *Client) PostOrder(ctx context.Context, orderID string) error {
	body := struct {
		Order string `json:"order"`
	}{Order: orderID}
	return c.do(ctx, http.MethodPost, "/user/postOrder", body, nil, false)
}

// do sends body as JSON and decodes a 2xx response into out. Transport
// failures come back as NetworkError, non-2xx responses as BackendRejection
// and undecodable 2xx bodies as InvalidServerResponseError.
func (c *Client) do(ctx context.Context, method, path string, body, out any, skipAuth bool) error {
	var reader io.Reader = http.NoBody
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if payload != nil {
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if !skipAuth {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "backend unavailable, circuit open", slog.String("path", path))
		}
		return apperrors.Network(fmt.Errorf("%s %s: %w", method, path, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, path)
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.WarnContext(ctx, "undecodable backend response",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return apperrors.InvalidServerResponse("invalid server response")
	}
	return nil
}
