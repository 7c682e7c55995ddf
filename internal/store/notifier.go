package store

import (
	"strings"
	"sync"
)

type subscription struct {
	id     uint64
	prefix string
	fn     func(Change)
}

// Notifier fans committed changes out to subscribers. Backends embed it and
// call Notify after a write succeeds. Callbacks run synchronously on the
// writer's goroutine, in subscription order, and must not write to the same
// store.
type Notifier struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// Subscribe registers fn for keys starting with prefix.
func (n *Notifier) Subscribe(prefix string, fn func(Change)) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription{id: id, prefix: prefix, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, s := range n.subs {
				if s.id == id {
					n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify delivers changes to matching subscribers.
func (n *Notifier) Notify(changes ...Change) {
	n.mu.RLock()
	subs := make([]subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for _, c := range changes {
		for _, s := range subs {
			if strings.HasPrefix(c.Key, s.prefix) {
				s.fn(c)
			}
		}
	}
}

// ChangesFor converts ops into the changes they produce.
func ChangesFor(ops []Op) []Change {
	out := make([]Change, 0, len(ops))
	for _, op := range ops {
		out = append(out, Change{Key: op.Key, Value: op.Value, Deleted: op.Delete})
	}
	return out
}
