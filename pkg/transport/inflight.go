package transport

import (
	"context"
	"sync"
)

// InFlightRegistry holds the cancel functions of running searches so a
// server past its shutdown deadline can abandon them. Entries are keyed
// internally; client supplied request IDs may repeat.
type InFlightRegistry struct {
	mu      sync.Mutex
	next    uint64
	running map[uint64]context.CancelFunc
}

func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{running: make(map[uint64]context.CancelFunc)}
}

// Track derives a cancelable context for one search. The returned func
// must be called when the search ends; it releases the entry and the
// context.
func (r *InFlightRegistry) Track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	key := r.next
	r.next++
	r.running[key] = cancel
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		delete(r.running, key)
		r.mu.Unlock()
		cancel()
	}
}

// CancelAll cancels every running search and returns how many there were.
func (r *InFlightRegistry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.running)
	for key, cancel := range r.running {
		cancel()
		delete(r.running, key)
	}
	return n
}

// Len returns the number of running searches.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}
