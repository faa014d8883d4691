package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/guildwatch/guildstatus/internal/testutil"
	"github.com/guildwatch/guildstatus/pkg/raiderio"
	"github.com/guildwatch/guildstatus/pkg/ratelimit"
)

// newPipeline wires a real fetcher against the mock server with the given
// admission limits.
func newPipeline(t *testing.T, mock *testutil.MockRaiderIO, rps float64, concurrency int, fetcherCfg raiderio.FetcherConfig) *raiderio.Fetcher {
	t.Helper()

	client, err := raiderio.NewClient(raiderio.Config{
		BaseURL:   mock.URL(),
		UserAgent: "guild-status-test/1.0",
		Raid:      "manaforge-omega",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	bucket := ratelimit.NewBucket(rps)
	slots, err := ratelimit.NewSemaphore(concurrency)
	if err != nil {
		t.Fatalf("NewSemaphore() error = %v", err)
	}

	fetcher, err := raiderio.NewFetcher(client, bucket, slots, nil, fetcherCfg)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	return fetcher
}

func TestPipeline_FullRunUnderDeadline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing-sensitive pipeline test in short mode")
	}

	mock := testutil.NewMockRaiderIO()
	defer mock.Close()
	mock.SetDelay(50 * time.Millisecond)

	fetcher := newPipeline(t, mock, 50, 25, raiderio.FetcherConfig{RetryLimit: 0})
	sched, err := New(fetcher, 5*time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids := testIDs(61)
	report, err := sched.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 61 calls at 50 rps with 25 slots of 50ms each finish comfortably
	// inside the deadline.
	if report.Classification != AllSucceeded {
		t.Fatalf("Classification = %v, want AllSucceeded (failed: %+v)", report.Classification, report.Failed())
	}
	if report.Elapsed >= 5*time.Second {
		t.Errorf("Elapsed = %v, want well under the 5s deadline", report.Elapsed)
	}
	if got := mock.RequestCount(); got != 61 {
		t.Errorf("upstream requests = %d, want exactly 61", got)
	}
	if peak := mock.MaxInFlight(); peak > 25 {
		t.Errorf("peak in-flight = %d, want <= 25", peak)
	}
	for i, out := range report.Outcomes {
		if out.Guild != ids[i] {
			t.Errorf("Outcomes[%d].Guild = %v, want %v", i, out.Guild, ids[i])
		}
		if out.Profile == nil || out.Profile.Name != ids[i].Name {
			t.Errorf("Outcomes[%d] missing profile for %v", i, ids[i])
		}
	}
}

func TestPipeline_PartialSuccessWithRetries(t *testing.T) {
	mock := testutil.NewMockRaiderIO()
	defer mock.Close()
	mock.SetGuildStatus("guild-003", 500)

	fetcher := newPipeline(t, mock, 0, 10, raiderio.FetcherConfig{
		RetryLimit:     2,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})
	sched, err := New(fetcher, 5*time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids := testIDs(10)
	report, err := sched.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Classification != PartialSuccess {
		t.Fatalf("Classification = %v, want PartialSuccess", report.Classification)
	}
	if report.Successes != 9 || report.Transients != 1 {
		t.Errorf("counts = %d/%d (success/transient), want 9/1", report.Successes, report.Transients)
	}

	var failing raiderio.Outcome
	for _, out := range report.Outcomes {
		if out.Guild.Name == "guild-003" {
			failing = out
		}
	}
	if failing.Status != raiderio.StatusTransient {
		t.Errorf("failing guild status = %v, want transient", failing.Status)
	}
	if failing.Attempts != 3 {
		t.Errorf("failing guild attempts = %d, want 3 (initial + 2 retries)", failing.Attempts)
	}
	if !errors.Is(failing.Err, raiderio.ErrRetryExhausted) {
		t.Errorf("failing guild error = %v, want ErrRetryExhausted", failing.Err)
	}

	// 9 healthy guilds once each, the failing guild three times.
	if got := mock.RequestCount(); got != 12 {
		t.Errorf("upstream requests = %d, want 12", got)
	}
}

func TestPipeline_UnthrottledStillBoundedByConcurrency(t *testing.T) {
	mock := testutil.NewMockRaiderIO()
	defer mock.Close()
	mock.SetDelay(30 * time.Millisecond)

	fetcher := newPipeline(t, mock, 0, 8, raiderio.FetcherConfig{RetryLimit: 0})
	sched, err := New(fetcher, 5*time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sched.Run(context.Background(), testIDs(40))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Classification != AllSucceeded {
		t.Fatalf("Classification = %v, want AllSucceeded", report.Classification)
	}
	if peak := mock.MaxInFlight(); peak > 8 {
		t.Errorf("peak in-flight = %d, want <= 8 even with rate limiting disabled", peak)
	}
}

func TestPipeline_DeadlineProducesTimedOutOutcomes(t *testing.T) {
	mock := testutil.NewMockRaiderIO()
	defer mock.Close()
	mock.SetDelay(2 * time.Second)

	fetcher := newPipeline(t, mock, 0, 10, raiderio.FetcherConfig{RetryLimit: 0})
	sched, err := New(fetcher, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	report, err := sched.Run(context.Background(), testIDs(5))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run() took %v, want return shortly after the deadline", elapsed)
	}
	if report.TimedOut != 5 {
		t.Errorf("TimedOut = %d, want 5", report.TimedOut)
	}
	if report.Classification != AllFailed {
		t.Errorf("Classification = %v, want AllFailed", report.Classification)
	}
}

func TestPipeline_PermanentFailuresDoNotRetry(t *testing.T) {
	mock := testutil.NewMockRaiderIO()
	defer mock.Close()
	for i := 0; i < 3; i++ {
		mock.SetGuildStatus(fmt.Sprintf("guild-%03d", i), 404)
	}

	fetcher := newPipeline(t, mock, 0, 5, raiderio.FetcherConfig{
		RetryLimit:     3,
		InitialBackoff: 5 * time.Millisecond,
	})
	sched, err := New(fetcher, 5*time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sched.Run(context.Background(), testIDs(3))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Permanents != 3 {
		t.Errorf("Permanents = %d, want 3", report.Permanents)
	}
	if got := mock.RequestCount(); got != 3 {
		t.Errorf("upstream requests = %d, want 3 (no retries on 404)", got)
	}
}
