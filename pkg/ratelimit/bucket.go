// Package ratelimit implements the two admission gates in front of the
// Raider.IO API: a token-bucket rate limiter bounding sustained requests per
// second and a counting semaphore capping in-flight requests. Both gates are
// explicitly constructed and injected; neither may be bypassed by any request
// path, retries included.
package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// Prometheus metrics for token admissions.
var (
	admissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guildstatus_admissions_total",
		Help: "Total requests admitted through the token bucket",
	})

	admissionWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guildstatus_admission_wait_seconds",
		Help:    "Time spent waiting for a rate limit token",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// Bucket is a token-bucket rate limiter shared by all concurrent fetches.
// Tokens refill continuously at the configured rate and accumulate up to one
// second of burst capacity. Token state is guarded inside rate.Limiter; a
// token is never double-spent by concurrent admitters.
type Bucket struct {
	limiter *rate.Limiter
}

// NewBucket creates a bucket admitting requestsPerSecond sustained requests
// with burst capacity equal to one second of tokens. A zero or negative rate
// disables throttling entirely: every admission proceeds immediately.
func NewBucket(requestsPerSecond float64) *Bucket {
	if requestsPerSecond <= 0 {
		return &Bucket{limiter: rate.NewLimiter(rate.Inf, 1)}
	}

	burst := int(math.Ceil(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}

	return &Bucket{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Admit blocks until one token is available, then consumes it. It never fails
// on its own; the only error is the context expiring while waiting.
func (b *Bucket) Admit(ctx context.Context) error {
	start := time.Now()

	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	admissionWaitSeconds.Observe(time.Since(start).Seconds())
	admissionsTotal.Inc()
	return nil
}

// Unthrottled reports whether the bucket was configured with no rate bound.
func (b *Bucket) Unthrottled() bool {
	return b.limiter.Limit() == rate.Inf
}

// Rate returns the sustained admission rate in requests per second.
// Returns +Inf for an unthrottled bucket.
func (b *Bucket) Rate() float64 {
	return float64(b.limiter.Limit())
}
