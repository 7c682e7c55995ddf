// Package auth runs the login and registration flows against the backend
// and installs the resulting identity through the session coordinator.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/EcommerceGo/storefront/internal/api"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// Backend is the auth part of the backend API.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (api.AuthResponse, error)
	RegisterCustomer(ctx context.Context, req api.RegisterCustomerRequest) (api.AuthResponse, error)
	RegisterVendor(ctx context.Context, req api.RegisterVendorRequest) (api.AuthResponse, error)
}

// Sessions installs identities. *session.Coordinator satisfies it.
type Sessions interface {
	Authenticate(ctx context.Context, kind domain.Kind, profile domain.Profile, tokens domain.TokenPair) error
}

// LoginInput holds the parameters for a login.
type LoginInput struct {
	Kind     domain.Kind `json:"kind" validate:"required,oneof=customer vendor"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
}

// RegisterCustomerInput holds the parameters for a customer sign up.
type RegisterCustomerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterVendorInput holds the parameters for a vendor sign up.
type RegisterVendorInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	StoreName string `json:"storeName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Password  string `json:"password" validate:"required,min=6"`
	Address   string `json:"address,omitempty" validate:"max=300"`
}

// Service runs the auth flows.
type Service struct {
	backend  Backend
	sessions Sessions
	logger   *slog.Logger
}

// NewService creates an auth Service.
func NewService(backend Backend, sessions Sessions, logger *slog.Logger) *Service {
	return &Service{backend: backend, sessions: sessions, logger: logger}
}

// Login signs in as in.Kind. Logging in as one kind logs the other out.
func (s *Service) Login(ctx context.Context, in LoginInput) (domain.Profile, error) {
	if err := validator.Validate(in); err != nil {
		return domain.Profile{}, err
	}
	resp, err := s.backend.Login(ctx, api.LoginRequest{Email: in.Email, Password: in.Password, UserType: in.Kind})
	if err != nil {
		return domain.Profile{}, classify(err)
	}
	return s.install(ctx, in.Kind, resp)
}

// RegisterCustomer creates a customer account and signs in.
func (s *Service) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (domain.Profile, error) {
	if err := validator.Validate(in); err != nil {
		return domain.Profile{}, err
	}
	resp, err := s.backend.RegisterCustomer(ctx, api.RegisterCustomerRequest{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Password: in.Password,
	})
	if err != nil {
		return domain.Profile{}, classify(err)
	}
	return s.install(ctx, domain.KindCustomer, resp)
}

// RegisterVendor creates a vendor account and signs in.
func (s *Service) RegisterVendor(ctx context.Context, in RegisterVendorInput) (domain.Profile, error) {
	if err := validator.Validate(in); err != nil {
		return domain.Profile{}, err
	}
	resp, err := s.backend.RegisterVendor(ctx, api.RegisterVendorRequest{
		Name:      in.Name,
		StoreName: in.StoreName,
		Email:     in.Email,
		Phone:     in.Phone,
		Password:  in.Password,
		Address:   in.Address,
	})
	if err != nil {
		return domain.Profile{}, classify(err)
	}
	return s.install(ctx, domain.KindVendor, resp)
}

func (s *Service) install(ctx context.Context, kind domain.Kind, resp api.AuthResponse) (domain.Profile, error) {
	if resp.Tokens.Empty() {
		return domain.Profile{}, apperrors.InvalidServerResponse("invalid server response")
	}
	if err := s.sessions.Authenticate(ctx, kind, resp.UserData, resp.Tokens); err != nil {
		return domain.Profile{}, err
	}
	s.logger.InfoContext(ctx, "signed in",
		slog.String("kind", string(kind)),
		slog.String("user_id", resp.UserData.ID),
	)
	return resp.UserData, nil
}

// classify turns credential rejections into AuthenticationError, keeping
// the backend's wording.
func classify(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperrors.ErrBackendRejection) {
		switch appErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.Authentication(appErr.Message)
		}
	}
	return err
}
