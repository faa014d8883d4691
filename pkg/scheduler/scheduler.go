// Package scheduler orchestrates the concurrent, rate-limited fetch pipeline:
// it turns an ordered list of guild identifiers into one aggregate report
// under an overall deadline. All units are submitted immediately; throttling
// emerges solely from the shared admission gates inside the unit fetcher,
// never from pacing between submissions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

// Prometheus metrics for pipeline runs.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildstatus_runs_total",
		Help: "Pipeline runs by overall classification",
	}, []string{"classification"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guildstatus_run_duration_seconds",
		Help:    "Pipeline run duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	runGuilds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guildstatus_run_guilds",
		Help:    "Guilds resolved per pipeline run",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})
)

// detachGrace is how long after the deadline the scheduler keeps waiting for
// in-flight units to observe cancellation before detaching from them.
// Cancellation of the underlying HTTP call is best effort: a transport that
// cannot abort is abandoned and its late result discarded.
const detachGrace = 250 * time.Millisecond

// UnitFetcher resolves one guild identifier to a terminal outcome. The
// production implementation is raiderio.Fetcher.
type UnitFetcher interface {
	Fetch(ctx context.Context, id raiderio.GuildID) raiderio.Outcome
}

// Scheduler runs the fetch pipeline. It holds no per-run state and is safe
// for concurrent use.
type Scheduler struct {
	fetcher  UnitFetcher
	deadline time.Duration
	logger   zerolog.Logger
}

// New creates a scheduler. The deadline bounds every Run as a whole;
// configuration errors are detected here, before any work starts.
func New(fetcher UnitFetcher, deadline time.Duration) (*Scheduler, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("unit fetcher is required")
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("overall deadline must be positive (got %v)", deadline)
	}

	return &Scheduler{
		fetcher:  fetcher,
		deadline: deadline,
		logger:   log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// indexedOutcome correlates a finished unit back to its input position.
type indexedOutcome struct {
	index   int
	outcome raiderio.Outcome
}

// Run resolves every identifier to a terminal outcome and assembles the
// aggregate report in input order. It returns only after every identifier is
// terminal; individual failures never fail the run. Units still unresolved
// shortly after the deadline are recorded as timed out and detached from.
func (s *Scheduler) Run(ctx context.Context, ids []raiderio.GuildID) (*Report, error) {
	start := time.Now()

	if len(ids) == 0 {
		return Summarize(nil), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	s.logger.Info().
		Int("guilds", len(ids)).
		Dur("deadline", s.deadline).
		Msg("Starting pipeline run")

	// Every unit is launched at once; the buffered channel lets detached
	// stragglers finish without blocking anyone.
	results := make(chan indexedOutcome, len(ids))
	for i, id := range ids {
		go func(i int, id raiderio.GuildID) {
			results <- indexedOutcome{index: i, outcome: s.fetcher.Fetch(runCtx, id)}
		}(i, id)
	}

	outcomes := make([]raiderio.Outcome, len(ids))
	resolved := make([]bool, len(ids))
	detach := time.After(s.deadline + detachGrace)
	pending := len(ids)

collect:
	for pending > 0 {
		select {
		case r := <-results:
			outcomes[r.index] = r.outcome
			resolved[r.index] = true
			pending--

		case <-detach:
			s.logger.Warn().
				Int("unresolved", pending).
				Msg("Deadline grace elapsed, detaching from in-flight units")
			break collect
		}
	}

	// Invariant: every submitted identifier appears exactly once in the
	// report. Anything still unresolved is terminal as timed out.
	for i := range outcomes {
		if !resolved[i] {
			outcomes[i] = raiderio.Outcome{
				Guild:  ids[i],
				Status: raiderio.StatusTimedOut,
				Err:    context.DeadlineExceeded,
			}
		}
	}

	report := Summarize(outcomes)
	report.Elapsed = time.Since(start)

	runsTotal.WithLabelValues(report.Classification.String()).Inc()
	runDuration.Observe(report.Elapsed.Seconds())
	runGuilds.Observe(float64(len(ids)))

	s.logger.Info().
		Int("guilds", len(ids)).
		Int("successes", report.Successes).
		Int("transient", report.Transients).
		Int("permanent", report.Permanents).
		Int("timed_out", report.TimedOut).
		Str("classification", report.Classification.String()).
		Dur("elapsed", report.Elapsed).
		Msg("Pipeline run complete")

	return report, nil
}

// Deadline returns the configured overall deadline.
func (s *Scheduler) Deadline() time.Duration {
	return s.deadline
}
