package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/basket"
	"github.com/utafrali/EcommerceGo/storefront/internal/delivery"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// BasketHandler handles HTTP requests for the basket and the delivery
// selection.
type BasketHandler struct {
	basket   *basket.Aggregator
	delivery *delivery.Store
	logger   *slog.Logger
}

// NewBasketHandler creates a new basket HTTP handler.
func NewBasketHandler(b *basket.Aggregator, d *delivery.Store, logger *slog.Logger) *BasketHandler {
	return &BasketHandler{
		basket:   b,
		delivery: d,
		logger:   logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON body for adding an item. Vendor is needed when
// the basket is empty or being replaced.
type AddItemRequest struct {
	Item   domain.LineItem       `json:"item"`
	Vendor *domain.VendorDetails `json:"vendorDetails,omitempty"`
}

// UpdateQuantityRequest is the JSON body for changing an item's quantity.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// BasketResponse is a basket with its derived totals.
type BasketResponse struct {
	domain.Basket
	TotalItems int          `json:"totalItems"`
	TotalPrice domain.Money `json:"totalPrice"`
}

func basketResponse(b domain.Basket) BasketResponse {
	if b.Items == nil {
		b.Items = []domain.LineItem{}
	}
	return BasketResponse{Basket: b, TotalItems: b.TotalItems(), TotalPrice: b.TotalPrice()}
}

// --- Handlers ---

// GetBasket handles GET /api/v1/basket
func (h *BasketHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	b, err := h.basket.Basket(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, basketResponse(b))
}

// AddItem handles POST /api/v1/basket/items
func (h *BasketHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	b, err := h.basket.AddItem(r.Context(), req.Item, req.Vendor)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, basketResponse(b))
}

// ReplaceBasket handles POST /api/v1/basket/replace
func (h *BasketHandler) ReplaceBasket(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	b, err := h.basket.ReplaceBasket(r.Context(), req.Item, req.Vendor)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, basketResponse(b))
}

// UpdateItemQuantity handles PUT /api/v1/basket/items/{productId}
func (h *BasketHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	b, err := h.basket.UpdateQuantity(r.Context(), chi.URLParam(r, "productId"), *req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, basketResponse(b))
}

// RemoveItem handles DELETE /api/v1/basket/items/{productId}
func (h *BasketHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	b, err := h.basket.RemoveItem(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, basketResponse(b))
}

// ClearBasket handles DELETE /api/v1/basket
func (h *BasketHandler) ClearBasket(w http.ResponseWriter, r *http.Request) {
	if err := h.basket.Clear(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDelivery handles GET /api/v1/delivery
func (h *BasketHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	sel, err := h.delivery.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sel)
}

// SetDelivery handles PUT /api/v1/delivery
func (h *BasketHandler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	var sel delivery.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.delivery.Set(r.Context(), sel); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	saved, err := h.delivery.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, saved)
}
