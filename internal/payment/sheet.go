package payment

import (
	"context"
	"errors"
	"strings"
)

// Sheet is the payment provider's SDK surface: configure the sheet, then
// show it to the user. Both calls block until the provider answers.
type Sheet interface {
	Init(ctx context.Context, cfg SheetConfig) error
	Present(ctx context.Context) error
}

// SheetConfig is passed to Sheet.Init.
type SheetConfig struct {
	ClientSecret        string     `json:"paymentIntentClientSecret"`
	CustomerID          string     `json:"customerId,omitempty"`
	EphemeralKey        string     `json:"customerEphemeralKeySecret,omitempty"`
	MerchantDisplayName string     `json:"merchantDisplayName"`
	ApplePay            *ApplePay  `json:"applePay,omitempty"`
	GooglePay           *GooglePay `json:"googlePay,omitempty"`
	ReturnURL           string     `json:"returnURL,omitempty"`
}

// ApplePay holds the wallet options used on iOS.
type ApplePay struct {
	MerchantCountryCode string `json:"merchantCountryCode"`
}

// GooglePay holds the wallet options used on Android.
type GooglePay struct {
	MerchantCountryCode string `json:"merchantCountryCode"`
	CurrencyCode        string `json:"currencyCode"`
	TestEnv             bool   `json:"testEnv"`
}

// Provider error codes.
const (
	CodeCanceled = "Canceled"
	CodeFailed   = "Failed"
	CodeTimeout  = "Timeout"
)

// ProviderError is an error reported by the payment provider.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// IsCancellation reports whether err means the user dismissed the sheet.
// Providers signal this with the Canceled code or a message mentioning it.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if strings.EqualFold(pe.Code, CodeCanceled) {
			return true
		}
		return strings.Contains(strings.ToLower(pe.Message), "cancel")
	}
	return strings.Contains(strings.ToLower(err.Error()), "cancel")
}

// providerMessage extracts the human readable message of a provider error.
func providerMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}
