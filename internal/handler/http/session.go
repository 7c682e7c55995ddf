package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/auth"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// SessionHandler serves login, registration, logout and the navigation
// signals that gate teardown.
type SessionHandler struct {
	sessions   *session.Coordinator
	navigation *session.NavigationGate
	auth       *auth.Service
	logger     *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(
	sessions *session.Coordinator,
	navigation *session.NavigationGate,
	authService *auth.Service,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		navigation: navigation,
		auth:       authService,
		logger:     logger,
	}
}

// --- Response DTOs ---

// SessionResponse describes who is logged in.
type SessionResponse struct {
	Authenticated   bool             `json:"authenticated"`
	Kind            domain.Kind      `json:"kind,omitempty"`
	Identity        *domain.Identity `json:"identity,omitempty"`
	TokenExpired    bool             `json:"tokenExpired"`
	PendingTeardown bool             `json:"pendingTeardown"`
}

// LogoutResponse reports what a logout or settle signal did.
type LogoutResponse struct {
	Result  session.LogoutResult `json:"result"`
	Warning string               `json:"warning,omitempty"`
}

// NavigationRequest is the body of PUT /api/v1/navigation.
type NavigationRequest struct {
	Busy *bool `json:"busy" validate:"required"`
}

// --- Handlers ---

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.current(r))
}

func (h *SessionHandler) current(r *http.Request) SessionResponse {
	var resp SessionResponse
	if id, ok := h.sessions.Active(r.Context()); ok {
		resp.Authenticated = true
		resp.Kind = id.Kind
		resp.Identity = &id
		resp.TokenExpired = id.Expired(time.Now())
	}
	_, resp.PendingTeardown = h.sessions.PendingTeardown()
	return resp
}

// Login handles POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if _, err := h.auth.Login(r.Context(), req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.current(r))
}

// Register handles POST /api/v1/session/register/{kind}
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	switch kind {
	case domain.KindCustomer:
		var req auth.RegisterCustomerInput
		if err := decodeJSON(w, r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
		_, err = h.auth.RegisterCustomer(r.Context(), req)
	case domain.KindVendor:
		var req auth.RegisterVendorInput
		if err := decodeJSON(w, r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
		_, err = h.auth.RegisterVendor(r.Context(), req)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, h.current(r))
}

// Logout handles POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessions.Logout(r.Context())
	h.writeLogout(w, r, result, err)
}

// Settled handles POST /api/v1/session/settled
func (h *SessionHandler) Settled(w http.ResponseWriter, r *http.Request) {
	h.navigation.Settle()
	h.settle(w, r)
}

// Navigation handles PUT /api/v1/navigation
func (h *SessionHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	var req NavigationRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if *req.Busy {
		h.navigation.Begin()
		httputil.WriteData(w, http.StatusOK, LogoutResponse{Result: session.LogoutNone})
		return
	}
	h.navigation.Settle()
	h.settle(w, r)
}

func (h *SessionHandler) settle(w http.ResponseWriter, r *http.Request) {
	completed, err := h.sessions.TransitionSettled(r.Context())
	result := session.LogoutNone
	if completed {
		result = session.LogoutCompleted
	}
	h.writeLogout(w, r, result, err)
}

// writeLogout reports a teardown. Credentials are already gone when the
// result is completed, so a reset failure is a warning, not an error.
func (h *SessionHandler) writeLogout(w http.ResponseWriter, r *http.Request, result session.LogoutResult, err error) {
	if err != nil && result != session.LogoutCompleted {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := LogoutResponse{Result: result}
	if err != nil {
		h.logger.WarnContext(r.Context(), "session state not fully reset",
			slog.String("error", err.Error()),
		)
		resp.Warning = apperrors.UserMessage(err)
	}
	httputil.WriteData(w, http.StatusOK, resp)
}
