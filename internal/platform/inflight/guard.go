// Package inflight rejects a second concurrent trigger of the same
// operation on the same resource.
package inflight

import (
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when the resource already has an operation running.
var ErrBusy = errors.New("operation already in progress")

// Key builds the guard key of an operation on a portal session.
func Key(sessionID, op string) string {
	return sessionID + ":" + op
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Guard holds a weight-1 semaphore per key. Keys are dropped once no
// operation holds or waits on them.
type Guard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{entries: make(map[string]*entry)}
}

// TryAcquire claims key without waiting. The returned release func must be
// called exactly once when the operation completes.
func (g *Guard) TryAcquire(key string) (release func(), err error) {
	g.mu.Lock()
	e, ok := g.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		g.entries[key] = e
	}
	if !e.sem.TryAcquire(1) {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	e.refs++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			e.sem.Release(1)
			e.refs--
			if e.refs == 0 {
				delete(g.entries, key)
			}
		})
	}, nil
}
