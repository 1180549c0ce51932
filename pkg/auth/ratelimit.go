package auth

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimiter decides whether an identity may make another request.
type RateLimiter interface {
	Allow(ctx context.Context, id *Identity) error
}

// Limit is a request budget: RequestsPerMinute sustained, Burst at once.
// A zero Burst allows one minute's worth of requests at once.
type Limit struct {
	RequestsPerMinute int
	Burst             int
}

func (l Limit) unlimited() bool { return l.RequestsPerMinute <= 0 }

func (l Limit) bucket() *rate.Limiter {
	burst := l.Burst
	if burst <= 0 {
		burst = l.RequestsPerMinute
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.RequestsPerMinute)), burst)
}

const (
	bucketIdleTTL  = 10 * time.Minute
	bucketCapacity = 10000
)

// InProcessLimiter keeps a token bucket per subject and role. Buckets of
// callers that went quiet are evicted.
type InProcessLimiter struct {
	roles    map[string]Limit
	fallback Limit
	buckets  *expirable.LRU[string, *rate.Limiter]
}

// NewInProcessLimiter returns a limiter applying roles[role] to each
// caller, or fallback for roles without an entry.
func NewInProcessLimiter(roles map[string]Limit, fallback Limit) *InProcessLimiter {
	return &InProcessLimiter{
		roles:    roles,
		fallback: fallback,
		buckets:  expirable.NewLRU[string, *rate.Limiter](bucketCapacity, nil, bucketIdleTTL),
	}
}

// Allow takes one token from the caller's bucket.
func (l *InProcessLimiter) Allow(_ context.Context, id *Identity) error {
	role := id.EffectiveRole()
	limit, ok := l.roles[role]
	if !ok {
		limit = l.fallback
	}
	if limit.unlimited() {
		return nil
	}

	key := role + "/" + id.Subject
	b, ok := l.buckets.Get(key)
	if !ok {
		b = limit.bucket()
		l.buckets.Add(key, b)
	}
	if !b.Allow() {
		return ErrTooManyRequests
	}
	return nil
}
