// Package session holds the SessionCoordinator, the only writer of "which
// identity is active". It keeps the customer and vendor identities mutually
// exclusive and tears down session-scoped state on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/identity"
	"github.com/utafrali/EcommerceGo/storefront/internal/vault"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

var (
	sessionSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_authentications_total",
			Help: "Identities installed, labelled by kind and whether another kind was logged out first",
		},
		[]string{"kind", "replaced_other"},
	)

	sessionLogouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_logouts_total",
			Help: "Logouts, labelled by whether teardown waited for the navigation layer",
		},
		[]string{"mode"},
	)
)

// Scoped is state that only lives as long as a logged in session, such as
// the basket or the delivery selection.
type Scoped interface {
	Reset(ctx context.Context) error
}

// LogoutResult tells the caller whether state was cleared or is waiting for
// the navigation layer to settle.
type LogoutResult string

const (
	LogoutNone      LogoutResult = "none"
	LogoutCompleted LogoutResult = "completed"
	LogoutDeferred  LogoutResult = "deferred"
)

type scopedEntry struct {
	name  string
	state Scoped
}

// Coordinator is the SessionCoordinator.
type Coordinator struct {
	vault  *vault.Vault
	stores map[domain.Kind]*identity.Store
	logger *slog.Logger

	// mu serializes every state change so one kind's teardown always
	// finishes before another kind is installed.
	mu      sync.Mutex
	scoped  []scopedEntry
	nav     Navigator
	pending domain.Kind

	// current mirrors the marker for readers that must not touch the vault,
	// such as the bearer token source.
	current atomic.Value

	listeners listeners
}

// New creates a coordinator over the two identity stores.
func New(v *vault.Vault, customer, vendor *identity.Store, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		vault: v,
		stores: map[domain.Kind]*identity.Store{
			domain.KindCustomer: customer,
			domain.KindVendor:   vendor,
		},
		logger: logger,
	}
	c.current.Store(domain.Kind(""))
	return c
}

// RegisterScoped adds state that is reset whenever a session is torn down.
// Resets run in registration order.
func (c *Coordinator) RegisterScoped(name string, s Scoped) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scoped = append(c.scoped, scopedEntry{name: name, state: s})
}

// SetNavigator registers the navigation layer consulted on logout. A nil
// navigator makes every teardown immediate.
func (c *Coordinator) SetNavigator(n Navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nav = n
}

// Start hydrates both identity stores from the vault and repairs a marker
// that disagrees with the stored credentials. Only the marked kind may keep
// tokens; a marker without credentials is cleared and then no kind does.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, kind := range domain.Kinds {
		if err := c.stores[kind].Hydrate(ctx); err != nil {
			return err
		}
	}

	active, err := c.vault.ActiveKind(ctx)
	if err != nil {
		return err
	}
	if active != "" {
		if _, ok := c.stores[active].Current(); !ok {
			c.logger.WarnContext(ctx, "active kind marker without credentials, clearing",
				slog.String("kind", string(active)))
			if err := c.vault.ClearActiveKind(ctx); err != nil {
				return err
			}
			active = ""
		}
	}

	for _, kind := range domain.Kinds {
		if kind == active {
			continue
		}
		if _, ok := c.stores[kind].Current(); ok {
			c.logger.WarnContext(ctx, "dropping credentials of inactive kind",
				slog.String("kind", string(kind)))
			if err := c.vault.Clear(ctx, kind, false); err != nil {
				return err
			}
		}
	}
	c.current.Store(active)
	return nil
}

// Authenticate installs an identity of kind. An active identity of the other
// kind is logged out first, unconditionally, including its session-scoped
// state. A pending deferred teardown is completed first as well. State built
// while nobody was logged in is reset, so it never leaks into the new
// session. Calling it again with the same kind and tokens changes nothing.
func (c *Coordinator) Authenticate(ctx context.Context, kind domain.Kind, profile domain.Profile, tokens domain.TokenPair) error {
	if !kind.Valid() {
		return apperrors.InvalidInput(fmt.Sprintf("unknown identity kind %q", kind))
	}
	if tokens.Empty() {
		return apperrors.InvalidInput("access token is required")
	}

	var events []Event
	defer func() { c.listeners.emit(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	tornDown := false
	if c.pending != "" {
		if _, err := c.teardownLocked(ctx, c.pending); err != nil {
			return err
		}
		events = append(events, Event{Type: EventLoggedOut, Kind: c.pending})
		c.pending = ""
		tornDown = true
	}

	active, err := c.vault.ActiveKind(ctx)
	if err != nil {
		return err
	}
	if active == "" && !tornDown {
		if err := c.resetScopedLocked(ctx); err != nil {
			c.logger.WarnContext(ctx, "anonymous state not fully reset",
				slog.String("error", err.Error()))
		}
	}

	if active == kind {
		if cur, ok := c.stores[kind].Current(); ok && cur.Tokens == tokens && cur.Profile == profile {
			return nil
		}
	}

	replaced := false
	other := kind.Other()
	if active == other {
		if _, err := c.teardownLocked(ctx, other); err != nil {
			return err
		}
		events = append(events, Event{Type: EventLoggedOut, Kind: other})
		replaced = true
	} else if _, ok := c.stores[other].Current(); ok {
		// Stray credentials without a marker still violate exclusivity.
		if err := c.vault.Clear(ctx, other, false); err != nil {
			return err
		}
	}

	if err := c.vault.Save(ctx, kind, vault.Record{Tokens: tokens, Profile: profile}, true); err != nil {
		return err
	}
	c.current.Store(kind)
	sessionSwitches.WithLabelValues(string(kind), fmt.Sprint(replaced)).Inc()
	c.logger.InfoContext(ctx, "identity authenticated",
		slog.String("kind", string(kind)),
		slog.Bool("replaced_other", replaced),
	)
	events = append(events, Event{Type: EventAuthenticated, Kind: kind})
	return nil
}

// Logout ends the active session. If the navigation layer reports a
// transition in flight, teardown is recorded and performed when
// TransitionSettled is called; otherwise it happens now. Logging out with no
// active identity is a no-op. A non-nil error together with LogoutCompleted
// means credentials are gone but some session-scoped state failed to reset.
func (c *Coordinator) Logout(ctx context.Context) (LogoutResult, error) {
	var events []Event
	defer func() { c.listeners.emit(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != "" {
		return LogoutDeferred, nil
	}

	active, err := c.vault.ActiveKind(ctx)
	if err != nil {
		return LogoutNone, err
	}
	if active == "" {
		return LogoutNone, nil
	}

	if c.nav != nil && c.nav.Busy() {
		c.pending = active
		sessionLogouts.WithLabelValues("deferred").Inc()
		c.logger.InfoContext(ctx, "logout deferred until navigation settles",
			slog.String("kind", string(active)))
		return LogoutDeferred, nil
	}

	resetErr, err := c.teardownLocked(ctx, active)
	if err != nil {
		return LogoutNone, err
	}
	sessionLogouts.WithLabelValues("immediate").Inc()
	events = append(events, Event{Type: EventLoggedOut, Kind: active})
	return LogoutCompleted, resetErr
}

// TransitionSettled is the navigation layer's signal that no screen is mid
// transition. It completes a deferred logout, if any.
func (c *Coordinator) TransitionSettled(ctx context.Context) (bool, error) {
	var events []Event
	defer func() { c.listeners.emit(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == "" {
		return false, nil
	}
	kind := c.pending
	resetErr, err := c.teardownLocked(ctx, kind)
	if err != nil {
		return false, err
	}
	c.pending = ""
	events = append(events, Event{Type: EventLoggedOut, Kind: kind})
	return true, resetErr
}

// RefreshTokens overwrites the active identity's token pair in one vault
// write. Subscribers of the vault, including the bearer token source, see the
// new pair as soon as it returns.
func (c *Coordinator) RefreshTokens(ctx context.Context, tokens domain.TokenPair) error {
	if tokens.Empty() {
		return apperrors.InvalidInput("access token is required")
	}

	var events []Event
	defer func() { c.listeners.emit(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	active, err := c.vault.ActiveKind(ctx)
	if err != nil {
		return err
	}
	if active == "" || c.pending == active {
		return apperrors.Unauthorized("no active session")
	}
	if err := c.vault.SaveTokens(ctx, active, tokens); err != nil {
		return err
	}
	events = append(events, Event{Type: EventTokensRefreshed, Kind: active})
	return nil
}

// ActiveKind reads the persisted active-kind marker. "" means nobody is
// logged in.
func (c *Coordinator) ActiveKind(ctx context.Context) (domain.Kind, error) {
	return c.vault.ActiveKind(ctx)
}

// Active returns the in-memory active identity. A session whose teardown is
// pending still counts as active until it settles.
func (c *Coordinator) Active(ctx context.Context) (domain.Identity, bool) {
	kind, err := c.vault.ActiveKind(ctx)
	if err != nil || kind == "" {
		return domain.Identity{}, false
	}
	return c.stores[kind].Current()
}

// CurrentKind returns the active kind without touching the vault. It is
// meant for log enrichment and request building.
func (c *Coordinator) CurrentKind() domain.Kind {
	return c.current.Load().(domain.Kind)
}

// CurrentUserID returns the active profile's ID without touching the vault.
func (c *Coordinator) CurrentUserID() string {
	kind := c.CurrentKind()
	if kind == "" {
		return ""
	}
	id, ok := c.stores[kind].Current()
	if !ok {
		return ""
	}
	return id.Profile.ID
}

// PendingTeardown reports a deferred logout waiting for TransitionSettled.
func (c *Coordinator) PendingTeardown() (domain.Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.pending != ""
}

// AccessToken returns the bearer token to attach to outgoing requests: the
// active kind's token, or "" when nobody is logged in. A session whose
// teardown is pending stays active until it settles. The identity store
// follows the vault, so a request built after a refresh sees the new token.
func (c *Coordinator) AccessToken() string {
	kind := c.CurrentKind()
	if kind == "" {
		return ""
	}
	return c.stores[kind].AccessToken()
}

// Subscribe registers fn for session events. Events are delivered after the
// state change is committed and the coordinator lock is released.
func (c *Coordinator) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.listeners.add(fn)
}

// teardownLocked clears kind's credentials and the active marker, then resets
// every session-scoped state. A vault failure aborts and is returned as err.
// Reset failures do not stop the remaining resets; they come back joined in
// resetErr once the credentials are already gone.
func (c *Coordinator) teardownLocked(ctx context.Context, kind domain.Kind) (resetErr, err error) {
	if err := c.vault.Clear(ctx, kind, true); err != nil {
		return nil, err
	}
	c.current.Store(domain.Kind(""))

	resetErr = c.resetScopedLocked(ctx)
	c.logger.InfoContext(ctx, "session torn down", slog.String("kind", string(kind)))
	return resetErr, nil
}

// resetScopedLocked resets every session-scoped state, continuing past
// failures and returning them joined.
func (c *Coordinator) resetScopedLocked(ctx context.Context) error {
	var errs []error
	for _, entry := range c.scoped {
		if err := entry.state.Reset(ctx); err != nil {
			c.logger.ErrorContext(ctx, "failed to reset session state",
				slog.String("state", entry.name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("reset %s: %w", entry.name, err))
		}
	}
	return errors.Join(errs...)
}
