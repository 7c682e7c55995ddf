package domain

import "time"

// PaymentState is a state of the payment orchestrator.
type PaymentState string

const (
	PaymentIdle              PaymentState = "idle"
	PaymentPlacing           PaymentState = "placing"
	PaymentSheetInitializing PaymentState = "sheet_initializing"
	PaymentPresenting        PaymentState = "presenting"
	PaymentSucceeded         PaymentState = "succeeded"
	PaymentCancelled         PaymentState = "cancelled"
	PaymentFailed            PaymentState = "failed"
)

// Terminal reports whether s ends an attempt.
func (s PaymentState) Terminal() bool {
	switch s {
	case PaymentSucceeded, PaymentCancelled, PaymentFailed:
		return true
	}
	return false
}

// PaymentAttempt is one run of place order → pay → confirm. Attempts are
// never resumed; a retry starts a new one.
type PaymentAttempt struct {
	ID           string       `json:"id"`
	OrderID      string       `json:"orderId,omitempty"`
	ClientSecret string       `json:"-"`
	CustomerID   string       `json:"customerId,omitempty"`
	EphemeralKey string       `json:"-"`
	State        PaymentState `json:"state"`
	StartedAt    time.Time    `json:"startedAt"`
}

// Outcome is the terminal result of an attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)
