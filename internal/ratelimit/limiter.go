package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing requests locally, charging each request its
// declared weight against a token bucket of `requests` per `period`.
type RateLimiter struct {
	limiter *rate.Limiter
	metrics *Metrics
}

// Metrics tracks statistics about rate limiter usage.
type Metrics struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	deniedRequests  atomic.Int64
	consumedWeight  atomic.Int64
}

// New creates a new RateLimiter with the specified number of weight units allowed per period.
func New(requests int, period time.Duration) *RateLimiter {
	rps := float64(requests) / period.Seconds()
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), requests),
		metrics: &Metrics{},
	}
}

// clamp keeps n within the bucket size; WaitN fails outright for larger n.
func (r *RateLimiter) clamp(weight int) int {
	if weight < 1 {
		return 1
	}
	if burst := r.limiter.Burst(); weight > burst {
		return burst
	}
	return weight
}

// Wait blocks until weight units are available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context, weight int) error {
	r.metrics.totalRequests.Add(1)
	n := r.clamp(weight)
	if err := r.limiter.WaitN(ctx, n); err != nil {
		r.metrics.deniedRequests.Add(1)
		return err
	}
	r.metrics.allowedRequests.Add(1)
	r.metrics.consumedWeight.Add(int64(n))
	return nil
}

// Metrics returns a snapshot of the current rate limiter statistics.
func (r *RateLimiter) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:   r.metrics.totalRequests.Load(),
		AllowedRequests: r.metrics.allowedRequests.Load(),
		DeniedRequests:  r.metrics.deniedRequests.Load(),
		ConsumedWeight:  r.metrics.consumedWeight.Load(),
	}
}

// MetricsSnapshot is a point-in-time capture of rate limiter statistics.
type MetricsSnapshot struct {
	// TotalRequests is the total number of rate limit checks performed.
	TotalRequests int64
	// AllowedRequests is the number of requests that were allowed.
	AllowedRequests int64
	// DeniedRequests is the number of requests that were denied or cancelled while waiting.
	DeniedRequests int64
	// ConsumedWeight is the sum of weight charged for allowed requests.
	ConsumedWeight int64
}
