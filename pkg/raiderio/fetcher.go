package raiderio

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guildwatch/guildstatus/pkg/ratelimit"
)

// Prometheus metrics for fetch outcomes and retries.
var (
	fetchOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildstatus_fetch_outcomes_total",
		Help: "Terminal fetch outcomes by status",
	}, []string{"status"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildstatus_fetch_retries_total",
		Help: "Retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guildstatus_fetch_retry_backoff_seconds",
		Help:    "Backoff duration between retry attempts",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guildstatus_fetch_retry_exhausted_total",
		Help: "Fetches that spent all retry attempts without success",
	})
)

// minAttemptWindow is the least remaining deadline worth starting another
// upstream attempt for.
const minAttemptWindow = 25 * time.Millisecond

// Cache is the optional key-value collaborator consulted before calling the
// API and populated after a successful fetch. Implementations report a miss
// with ok=false; errors are backend failures and fall through to a live
// fetch.
type Cache interface {
	Get(ctx context.Context, id GuildID) (profile *GuildProfile, ok bool, err error)
	Put(ctx context.Context, id GuildID, profile *GuildProfile, ttl time.Duration) error
}

// FetcherConfig holds the retry and cache policy for the unit fetcher.
type FetcherConfig struct {
	// RetryLimit is the number of extra attempts after the first one.
	// Only transient failures are retried.
	RetryLimit int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the backoff between retries.
	BackoffMultiplier float64

	// CacheTTL is how long successful profiles stay cached.
	CacheTTL time.Duration
}

// DefaultFetcherConfig returns the default retry policy.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		RetryLimit:        2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		CacheTTL:          5 * time.Minute,
	}
}

// Fetcher resolves one guild identifier to a terminal Outcome. Every upstream
// attempt, retries included, is admitted through the concurrency slot pool
// and the token bucket; a retry is a brand-new admitted request, never a
// bypass.
type Fetcher struct {
	client *Client
	bucket *ratelimit.Bucket
	slots  *ratelimit.Semaphore
	cache  Cache
	config FetcherConfig
	logger zerolog.Logger
}

// NewFetcher creates a unit fetcher. cache may be nil to disable caching.
func NewFetcher(client *Client, bucket *ratelimit.Bucket, slots *ratelimit.Semaphore, cache Cache, cfg FetcherConfig) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if bucket == nil {
		return nil, fmt.Errorf("rate limit bucket is required")
	}
	if slots == nil {
		return nil, fmt.Errorf("concurrency semaphore is required")
	}
	if cfg.RetryLimit < 0 {
		return nil, fmt.Errorf("retry limit must be >= 0 (got %d)", cfg.RetryLimit)
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2.0
	}

	return &Fetcher{
		client: client,
		bucket: bucket,
		slots:  slots,
		cache:  cache,
		config: cfg,
		logger: log.With().Str("component", "fetcher").Logger(),
	}, nil
}

// Fetch resolves one guild to a terminal Outcome. It never returns an error:
// failures are converted into outcome data for the aggregate report. The
// context carries the overall deadline; once it expires the guild resolves
// to StatusTimedOut.
func (f *Fetcher) Fetch(ctx context.Context, id GuildID) Outcome {
	if profile, ok := f.cacheLookup(ctx, id); ok {
		fetchOutcomesTotal.WithLabelValues(StatusSuccess.String()).Inc()
		return Outcome{
			Guild:     id,
			Status:    StatusSuccess,
			Profile:   profile,
			FromCache: true,
		}
	}

	var lastErr error
	attempts := 0
	backoff := f.config.InitialBackoff

	for attempt := 0; attempt <= f.config.RetryLimit; attempt++ {
		if !f.attemptFits(ctx) {
			return f.terminal(Outcome{
				Guild:    id,
				Status:   StatusTimedOut,
				Err:      context.DeadlineExceeded,
				Attempts: attempts,
			})
		}

		profile, err := f.attempt(ctx, id)

		var apiErr *APIError
		if err == nil || errors.As(err, &apiErr) {
			attempts++
		}

		if err == nil {
			f.cacheStore(ctx, id, profile)
			if attempt > 0 {
				f.logger.Info().
					Str("guild", id.String()).
					Int("attempt", attempts).
					Msg("Fetch succeeded after retry")
			}
			return f.terminal(Outcome{
				Guild:    id,
				Status:   StatusSuccess,
				Profile:  profile,
				Attempts: attempts,
			})
		}

		// Overall deadline expired during admission or the call itself.
		if ctx.Err() != nil {
			return f.terminal(Outcome{
				Guild:    id,
				Status:   StatusTimedOut,
				Err:      err,
				Attempts: attempts,
			})
		}

		class := ErrorClassNetwork
		if apiErr != nil {
			class = apiErr.Class
		}

		if !isTransient(class) {
			return f.terminal(Outcome{
				Guild:    id,
				Status:   StatusPermanent,
				Err:      err,
				Attempts: attempts,
			})
		}

		lastErr = err
		if attempt == f.config.RetryLimit {
			break
		}

		retriesTotal.WithLabelValues(string(class)).Inc()

		// Jitter the backoff by +-20% to avoid retry alignment.
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.Observe(jitter.Seconds())

		f.logger.Debug().
			Str("guild", id.String()).
			Str("error_class", string(class)).
			Int("attempt", attempts).
			Dur("backoff", jitter).
			Msg("Retrying fetch after backoff")

		select {
		case <-ctx.Done():
			return f.terminal(Outcome{
				Guild:    id,
				Status:   StatusTimedOut,
				Err:      ctx.Err(),
				Attempts: attempts,
			})
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * f.config.BackoffMultiplier)
		if backoff > f.config.MaxBackoff {
			backoff = f.config.MaxBackoff
		}
	}

	retryExhaustedTotal.Inc()
	f.logger.Warn().
		Str("guild", id.String()).
		Int("attempts", attempts).
		Err(lastErr).
		Msg("Retry attempts exhausted")

	return f.terminal(Outcome{
		Guild:    id,
		Status:   StatusTransient,
		Err:      fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempts, lastErr),
		Attempts: attempts,
	})
}

// attempt performs one admitted upstream call: slot first, then token, then
// the HTTP request. The slot is released on every exit path.
func (f *Fetcher) attempt(ctx context.Context, id GuildID) (*GuildProfile, error) {
	release, err := f.slots.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := f.bucket.Admit(ctx); err != nil {
		return nil, err
	}

	return f.client.FetchGuild(ctx, id)
}

// attemptFits reports whether enough of the overall deadline remains to be
// worth starting another upstream attempt.
func (f *Fetcher) attemptFits(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= minAttemptWindow
}

// cacheLookup consults the cache collaborator. Backend errors are logged and
// treated as a miss.
func (f *Fetcher) cacheLookup(ctx context.Context, id GuildID) (*GuildProfile, bool) {
	if f.cache == nil {
		return nil, false
	}

	profile, ok, err := f.cache.Get(ctx, id)
	if err != nil {
		f.logger.Warn().Err(err).Str("guild", id.String()).Msg("Cache get error")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	f.logger.Debug().Str("guild", id.String()).Msg("Cache hit")
	return profile, true
}

// cacheStore populates the cache after a successful fetch, best effort.
func (f *Fetcher) cacheStore(ctx context.Context, id GuildID, profile *GuildProfile) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Put(ctx, id, profile, f.config.CacheTTL); err != nil {
		f.logger.Warn().Err(err).Str("guild", id.String()).Msg("Cache put error")
	}
}

// terminal records the outcome metric and returns the outcome unchanged.
func (f *Fetcher) terminal(out Outcome) Outcome {
	fetchOutcomesTotal.WithLabelValues(out.Status.String()).Inc()
	return out
}
