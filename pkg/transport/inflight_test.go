package transport

import (
	"context"
	"sync"
	"testing"
)

func TestInFlightTrack(t *testing.T) {
	r := NewInFlightRegistry()

	ctx, done := r.Track(context.Background())
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	done()
	if r.Len() != 0 {
		t.Errorf("Len = %d after done, want 0", r.Len())
	}
	if ctx.Err() == nil {
		t.Error("context still live after done")
	}
	if r.CancelAll() != 0 {
		t.Error("CancelAll found a finished search")
	}
}

func TestInFlightCancelAll(t *testing.T) {
	r := NewInFlightRegistry()

	var ctxs []context.Context
	var dones []func()
	for range 3 {
		ctx, done := r.Track(context.Background())
		ctxs = append(ctxs, ctx)
		dones = append(dones, done)
	}

	if n := r.CancelAll(); n != 3 {
		t.Errorf("CancelAll = %d, want 3", n)
	}
	for i, ctx := range ctxs {
		if ctx.Err() != context.Canceled {
			t.Errorf("search %d: ctx.Err() = %v, want Canceled", i, ctx.Err())
		}
	}

	// Finishing after cancellation is harmless.
	for _, done := range dones {
		done()
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestInFlightSameRequestID(t *testing.T) {
	r := NewInFlightRegistry()
	parent := ContextWithRequestID(context.Background(), "retry-7")

	_, first := r.Track(parent)
	second, done := r.Track(parent)
	first()

	if r.Len() != 1 || second.Err() != nil {
		t.Errorf("finishing one search affected another with the same request id")
	}
	done()
}

func TestInFlightConcurrent(t *testing.T) {
	r := NewInFlightRegistry()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, done := r.Track(context.Background())
			done()
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}
