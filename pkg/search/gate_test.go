package search_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rhuss/coursesearch/pkg/search"
)

func TestRegistryGate(t *testing.T) {
	store := newCourseStore()
	store.SetModule("forum", true)
	store.SetModule("wiki", false)
	g := search.NewRegistryGate(store)
	ctx := context.Background()

	tests := []struct {
		module string
		want   bool
	}{
		{"", true},
		{"forum", true},
		{"wiki", false},
		{"lti", false},
	}
	for _, tt := range tests {
		got, err := g.Available(ctx, tt.module)
		if err != nil {
			t.Fatalf("Available(%q): %v", tt.module, err)
		}
		if got != tt.want {
			t.Errorf("Available(%q) = %v, want %v", tt.module, got, tt.want)
		}
	}
}

func countingGate(answer bool, err error) (search.Gate, *atomic.Int32) {
	var n atomic.Int32
	return search.GateFunc(func(context.Context, string) (bool, error) {
		n.Add(1)
		return answer, err
	}), &n
}

func TestCachedGateMemoizes(t *testing.T) {
	next, calls := countingGate(true, nil)
	g := search.NewCachedGate(next, time.Minute)
	ctx := context.Background()

	for range 3 {
		ok, err := g.Available(ctx, "forum")
		if err != nil || !ok {
			t.Fatalf("Available = %v, %v", ok, err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("next gate called %d times, want 1", n)
	}

	g.(*search.CachedGate).Purge()
	if _, err := g.Available(ctx, "forum"); err != nil {
		t.Fatalf("Available: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("after Purge next gate called %d times, want 2", n)
	}
}

func TestCachedGateExpires(t *testing.T) {
	next, calls := countingGate(false, nil)
	g := search.NewCachedGate(next, 20*time.Millisecond)
	ctx := context.Background()

	g.Available(ctx, "wiki")
	time.Sleep(60 * time.Millisecond)
	g.Available(ctx, "wiki")

	if n := calls.Load(); n != 2 {
		t.Errorf("next gate called %d times, want 2 after expiry", n)
	}
}

func TestCachedGateDoesNotCacheErrors(t *testing.T) {
	next, calls := countingGate(false, errors.New("registry offline"))
	g := search.NewCachedGate(next, time.Minute)
	ctx := context.Background()

	for range 2 {
		if _, err := g.Available(ctx, "forum"); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("next gate called %d times, want 2", n)
	}
}

func TestCachedGateDisabled(t *testing.T) {
	next, _ := countingGate(true, nil)
	if _, ok := search.NewCachedGate(next, 0).(*search.CachedGate); ok {
		t.Error("zero ttl should return the wrapped gate")
	}
}
