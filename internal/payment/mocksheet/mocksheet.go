// Package mocksheet is a scripted payment sheet for development and tests.
package mocksheet

import (
	"context"
	"fmt"
	"sync"

	"github.com/utafrali/EcommerceGo/storefront/internal/payment"
)

// Outcome scripts what Present reports.
type Outcome string

const (
	Succeed Outcome = "succeed"
	Cancel  Outcome = "cancel"
	Decline Outcome = "decline"
)

// ParseOutcome accepts the values of PAYMENT_MOCK_OUTCOME.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case Succeed, Cancel, Decline:
		return o, nil
	}
	return "", fmt.Errorf("unknown mock payment outcome %q", s)
}

// Sheet implements payment.Sheet without any provider.
type Sheet struct {
	mu         sync.Mutex
	outcome    Outcome
	initErr    error
	block      chan struct{}
	inits      []payment.SheetConfig
	presents   int
	presenting chan struct{}
	signalled  bool
}

var _ payment.Sheet = (*Sheet)(nil)

// New returns a sheet that always reports outcome.
func New(outcome Outcome) *Sheet {
	return &Sheet{outcome: outcome}
}

// FailInit makes every Init return err.
func (s *Sheet) FailInit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initErr = err
}

// Hold makes Present wait until Release is called. Presenting() is closed
// once Present is waiting.
func (s *Sheet) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = make(chan struct{})
	s.presenting = make(chan struct{})
	s.signalled = false
}

// Presenting returns a channel closed when a held Present starts waiting.
func (s *Sheet) Presenting() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presenting
}

// Release lets a held Present return.
func (s *Sheet) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.block != nil {
		close(s.block)
		s.block = nil
	}
}

// Init records cfg.
func (s *Sheet) Init(_ context.Context, cfg payment.SheetConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits = append(s.inits, cfg)
	return s.initErr
}

// Present reports the scripted outcome.
func (s *Sheet) Present(ctx context.Context) error {
	s.mu.Lock()
	s.presents++
	block, outcome := s.block, s.outcome
	if block != nil && !s.signalled {
		close(s.presenting)
		s.signalled = true
	}
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	switch outcome {
	case Cancel:
		return &payment.ProviderError{Code: payment.CodeCanceled, Message: "The payment has been canceled"}
	case Decline:
		return &payment.ProviderError{Code: payment.CodeFailed, Message: "Your card was declined."}
	}
	return nil
}

// Inits returns the configurations passed to Init.
func (s *Sheet) Inits() []payment.SheetConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.SheetConfig(nil), s.inits...)
}

// Presents returns how many times Present was called.
func (s *Sheet) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}
