package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

// fetchFunc adapts a function to the UnitFetcher interface.
type fetchFunc func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome

func (f fetchFunc) Fetch(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
	return f(ctx, id)
}

func testIDs(n int) []raiderio.GuildID {
	ids := make([]raiderio.GuildID, n)
	for i := range ids {
		ids[i] = raiderio.GuildID{Region: "eu", Realm: "tarren-mill", Name: fmt.Sprintf("guild-%03d", i)}
	}
	return ids
}

func successOutcome(id raiderio.GuildID) raiderio.Outcome {
	return raiderio.Outcome{
		Guild:    id,
		Status:   raiderio.StatusSuccess,
		Profile:  &raiderio.GuildProfile{Name: id.Name, Realm: id.Realm},
		Attempts: 1,
	}
}

func TestNew_Validation(t *testing.T) {
	ok := fetchFunc(func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
		return successOutcome(id)
	})

	tests := []struct {
		name     string
		fetcher  UnitFetcher
		deadline time.Duration
		wantErr  bool
	}{
		{name: "valid", fetcher: ok, deadline: time.Second},
		{name: "nil fetcher", fetcher: nil, deadline: time.Second, wantErr: true},
		{name: "zero deadline", fetcher: ok, deadline: 0, wantErr: true},
		{name: "negative deadline", fetcher: ok, deadline: -time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fetcher, tt.deadline)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_PreservesInputOrder(t *testing.T) {
	// Completion order is scrambled by random sleeps; the report must
	// still follow input order.
	fetcher := fetchFunc(func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
		time.Sleep(time.Duration(rand.Intn(30)) * time.Millisecond)
		return successOutcome(id)
	})

	sched, err := New(fetcher, 5*time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids := testIDs(40)
	report, err := sched.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Outcomes) != len(ids) {
		t.Fatalf("len(Outcomes) = %d, want %d", len(report.Outcomes), len(ids))
	}
	for i, out := range report.Outcomes {
		if out.Guild != ids[i] {
			t.Errorf("Outcomes[%d].Guild = %v, want %v", i, out.Guild, ids[i])
		}
	}
	if report.Classification != AllSucceeded {
		t.Errorf("Classification = %v, want AllSucceeded", report.Classification)
	}
}

func TestRun_EveryIdentifierExactlyOnce(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
		return successOutcome(id)
	})

	sched, err := New(fetcher, time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids := testIDs(25)
	report, err := sched.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	seen := make(map[raiderio.GuildID]int)
	for _, out := range report.Outcomes {
		seen[out.Guild]++
	}
	for _, id := range ids {
		if seen[id] != 1 {
			t.Errorf("identifier %v appears %d times in report, want exactly 1", id, seen[id])
		}
	}
}

func TestRun_DeadlineResolvesUnfinishedAsTimedOut(t *testing.T) {
	// Units respect cancellation: they block until the run context ends.
	fetcher := fetchFunc(func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
		<-ctx.Done()
		return raiderio.Outcome{Guild: id, Status: raiderio.StatusTimedOut, Err: ctx.Err()}
	})

	sched, err := New(fetcher, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	report, err := sched.Run(context.Background(), testIDs(10))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run() took %v, want return shortly after the 100ms deadline", elapsed)
	}
	if report.TimedOut != 10 {
		t.Errorf("TimedOut = %d, want 10", report.TimedOut)
	}
	if report.Classification != AllFailed {
		t.Errorf("Classification = %v, want AllFailed", report.Classification)
	}
}

func TestRun_DetachesFromUnitsThatIgnoreCancellation(t *testing.T) {
	// A unit that never observes the context must not hang the run: after
	// the grace period its slot resolves to timed out and the run returns.
	fetcher := fetchFunc(func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
		time.Sleep(3 * time.Second)
		return successOutcome(id)
	})

	sched, err := New(fetcher, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids := testIDs(3)
	start := time.Now()
	report, err := sched.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run() took %v, want detach well before straggler completion", elapsed)
	}
	if len(report.Outcomes) != len(ids) {
		t.Fatalf("len(Outcomes) = %d, want %d", len(report.Outcomes), len(ids))
	}
	for i, out := range report.Outcomes {
		if out.Status != raiderio.StatusTimedOut {
			t.Errorf("Outcomes[%d].Status = %v, want timed out", i, out.Status)
		}
		if out.Guild != ids[i] {
			t.Errorf("Outcomes[%d].Guild = %v, want %v", i, out.Guild, ids[i])
		}
	}
}

func TestRun_MixedOutcomes(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
		switch id.Name {
		case "guild-001":
			return raiderio.Outcome{Guild: id, Status: raiderio.StatusTransient, Err: raiderio.ErrRetryExhausted}
		case "guild-002":
			return raiderio.Outcome{Guild: id, Status: raiderio.StatusPermanent}
		default:
			return successOutcome(id)
		}
	})

	sched, err := New(fetcher, time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sched.Run(context.Background(), testIDs(10))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Successes != 8 || report.Transients != 1 || report.Permanents != 1 {
		t.Errorf("counts = %d/%d/%d (success/transient/permanent), want 8/1/1",
			report.Successes, report.Transients, report.Permanents)
	}
	if report.Classification != PartialSuccess {
		t.Errorf("Classification = %v, want PartialSuccess", report.Classification)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, id raiderio.GuildID) raiderio.Outcome {
		return successOutcome(id)
	})

	sched, err := New(fetcher, time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sched.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Outcomes) != 0 {
		t.Errorf("len(Outcomes) = %d, want 0", len(report.Outcomes))
	}
	if report.Classification != AllSucceeded {
		t.Errorf("Classification = %v, want AllSucceeded for empty run", report.Classification)
	}
}

func TestSummarize_Counts(t *testing.T) {
	id := raiderio.GuildID{Region: "eu", Realm: "r", Name: "g"}
	tests := []struct {
		name     string
		outcomes []raiderio.Outcome
		want     Classification
	}{
		{
			name: "all succeeded",
			outcomes: []raiderio.Outcome{
				{Guild: id, Status: raiderio.StatusSuccess},
				{Guild: id, Status: raiderio.StatusSuccess},
			},
			want: AllSucceeded,
		},
		{
			name: "partial",
			outcomes: []raiderio.Outcome{
				{Guild: id, Status: raiderio.StatusSuccess},
				{Guild: id, Status: raiderio.StatusTimedOut},
			},
			want: PartialSuccess,
		},
		{
			name: "all failed",
			outcomes: []raiderio.Outcome{
				{Guild: id, Status: raiderio.StatusTransient},
				{Guild: id, Status: raiderio.StatusPermanent},
			},
			want: AllFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Summarize(tt.outcomes)
			if report.Classification != tt.want {
				t.Errorf("Classification = %v, want %v", report.Classification, tt.want)
			}
			total := report.Successes + report.Transients + report.Permanents + report.TimedOut
			if total != len(tt.outcomes) {
				t.Errorf("summed counts = %d, want %d", total, len(tt.outcomes))
			}
		})
	}
}
