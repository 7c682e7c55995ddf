// Package bridge hands payment sheet calls to the UI shell, which owns the
// provider SDK. The shell polls for the pending request, runs it natively and
// posts the result back by request ID.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/EcommerceGo/storefront/internal/payment"
)

// ErrUnknownRequest is returned by Resolve for an ID that is not pending.
var ErrUnknownRequest = errors.New("bridge: no pending sheet request with that id")

// Step names the sheet call a request stands for.
type Step string

const (
	StepInit    Step = "init"
	StepPresent Step = "present"
)

// Request is what the shell executes.
type Request struct {
	ID     string               `json:"id"`
	Step   Step                 `json:"step"`
	Config *payment.SheetConfig `json:"config,omitempty"`
}

type pending struct {
	req    Request
	result chan error
}

// Sheet implements payment.Sheet over the control API. At most one request
// is pending since the orchestrator runs one attempt at a time.
type Sheet struct {
	timeout time.Duration

	mu      sync.Mutex
	current *pending
}

var _ payment.Sheet = (*Sheet)(nil)

// New creates a bridge. A call the shell never answers fails with the
// Timeout code after timeout.
func New(timeout time.Duration) *Sheet {
	return &Sheet{timeout: timeout}
}

// Init forwards the sheet configuration to the shell.
func (s *Sheet) Init(ctx context.Context, cfg payment.SheetConfig) error {
	return s.call(ctx, Request{Step: StepInit, Config: &cfg})
}

// Present asks the shell to show the sheet.
func (s *Sheet) Present(ctx context.Context) error {
	return s.call(ctx, Request{Step: StepPresent})
}

// Pending returns the request waiting for the shell, if any.
func (s *Sheet) Pending() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Request{}, false
	}
	return s.current.req, true
}

// Resolve completes the pending request id. A nil perr means the provider
// call succeeded.
func (s *Sheet) Resolve(id string, perr *payment.ProviderError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.req.ID != id {
		return ErrUnknownRequest
	}
	var err error
	if perr != nil {
		err = perr
	}
	s.current.result <- err
	s.current = nil
	return nil
}

func (s *Sheet) call(ctx context.Context, req Request) error {
	req.ID = uuid.NewString()
	p := &pending{req: req, result: make(chan error, 1)}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return fmt.Errorf("bridge: %s requested while %s is pending", req.Step, s.current.req.Step)
	}
	s.current = p
	s.mu.Unlock()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case err := <-p.result:
		return err
	case <-timer.C:
		return s.abandon(p, &payment.ProviderError{Code: payment.CodeTimeout, Message: "the payment sheet did not respond in time"})
	case <-ctx.Done():
		return s.abandon(p, ctx.Err())
	}
}

// abandon withdraws p and returns cause. If the shell resolved p before the
// withdrawal took the lock, its answer wins over cause.
func (s *Sheet) abandon(p *pending, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == p {
		s.current = nil
		return cause
	}
	select {
	case err := <-p.result:
		return err
	default:
		return cause
	}
}
