package search

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rhuss/coursesearch/pkg/debug"
)

// Gate decides whether an activity type is installed and enabled. An empty
// module name is always available.
type Gate interface {
	Available(ctx context.Context, module string) (bool, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, module string) (bool, error)

// Available calls f.
func (f GateFunc) Available(ctx context.Context, module string) (bool, error) {
	return f(ctx, module)
}

// RegistryGate answers availability from the module registry in the store.
type RegistryGate struct {
	store Store
}

// Ensure RegistryGate implements Gate at compile time.
var _ Gate = (*RegistryGate)(nil)

// NewRegistryGate returns a gate backed by store.
func NewRegistryGate(store Store) *RegistryGate {
	return &RegistryGate{store: store}
}

// Available implements Gate.
func (g *RegistryGate) Available(ctx context.Context, module string) (bool, error) {
	if module == "" {
		return true, nil
	}
	return g.store.ModuleEnabled(ctx, module)
}

// CachedGate memoizes availability answers of another gate for a bounded
// time. Lookup errors are not cached.
type CachedGate struct {
	next  Gate
	cache *expirable.LRU[string, bool]
}

// Ensure CachedGate implements Gate at compile time.
var _ Gate = (*CachedGate)(nil)

// defaultGateCacheSize comfortably exceeds the number of activity types.
const defaultGateCacheSize = 128

// NewCachedGate wraps next with an expiring cache. A non-positive ttl
// disables caching and returns next unchanged.
func NewCachedGate(next Gate, ttl time.Duration) Gate {
	if ttl <= 0 {
		return next
	}
	return &CachedGate{
		next:  next,
		cache: expirable.NewLRU[string, bool](defaultGateCacheSize, nil, ttl),
	}
}

// Available implements Gate.
func (g *CachedGate) Available(ctx context.Context, module string) (bool, error) {
	if module == "" {
		return true, nil
	}
	if ok, hit := g.cache.Get(module); hit {
		return ok, nil
	}
	ok, err := g.next.Available(ctx, module)
	if err != nil {
		return false, err
	}
	g.cache.Add(module, ok)
	debug.Log("gate", "cached availability", "module", module, "available", ok)
	return ok, nil
}

// Purge drops every cached answer.
func (g *CachedGate) Purge() {
	g.cache.Purge()
}
