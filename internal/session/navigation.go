package session

import "sync/atomic"

// Navigator is the UI navigation layer as seen by the coordinator.
type Navigator interface {
	// Busy reports a screen transition in flight. Teardown waits for
	// TransitionSettled while it is true.
	Busy() bool
}

// NavigationGate is a Navigator driven by messages from the UI shell: the
// shell marks the start of a transition and later reports it settled.
type NavigationGate struct {
	busy atomic.Bool
}

// Busy implements Navigator.
func (g *NavigationGate) Busy() bool { return g.busy.Load() }

// Begin marks a transition in flight.
func (g *NavigationGate) Begin() { g.busy.Store(true) }

// Settle marks the navigation layer idle.
func (g *NavigationGate) Settle() { g.busy.Store(false) }
