package session

import (
	"sync"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

// EventType names a session state change.
type EventType string

const (
	EventAuthenticated   EventType = "authenticated"
	EventLoggedOut       EventType = "logged_out"
	EventTokensRefreshed EventType = "tokens_refreshed"
)

// Event is delivered to subscribers after a committed state change.
type Event struct {
	Type EventType
	Kind domain.Kind
}

type listeners struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]func(Event)
}

func (l *listeners) add(fn func(Event)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(Event))
	}
	l.nextID++
	id := l.nextID
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	l.mu.RLock()
	fns := make([]func(Event), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
