package scheduler

import (
	"time"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

// Classification is the overall outcome of one pipeline run.
type Classification int

const (
	// AllSucceeded means every guild resolved to a successful profile.
	AllSucceeded Classification = iota

	// PartialSuccess means some guilds succeeded and some failed.
	PartialSuccess

	// AllFailed means no guild resolved successfully.
	AllFailed
)

// String returns the classification name for logs.
func (c Classification) String() string {
	switch c {
	case AllSucceeded:
		return "all_succeeded"
	case PartialSuccess:
		return "partial_success"
	case AllFailed:
		return "all_failed"
	default:
		return "unknown"
	}
}

// Report is the aggregate result of one run. Outcomes preserve the input
// order of the identifiers regardless of completion order; every submitted
// identifier appears exactly once. The report is immutable after assembly.
type Report struct {
	Outcomes []raiderio.Outcome

	Successes  int
	Transients int
	Permanents int
	TimedOut   int

	Classification Classification
	Elapsed        time.Duration
}

// Summarize fills in counts and the overall classification for a set of
// resolved outcomes. Pure function: no I/O and no failure modes.
func Summarize(outcomes []raiderio.Outcome) *Report {
	report := &Report{Outcomes: outcomes}

	for _, out := range outcomes {
		switch out.Status {
		case raiderio.StatusSuccess:
			report.Successes++
		case raiderio.StatusTransient:
			report.Transients++
		case raiderio.StatusPermanent:
			report.Permanents++
		case raiderio.StatusTimedOut:
			report.TimedOut++
		}
	}

	switch {
	case report.Successes == len(outcomes):
		// An empty run counts as all succeeded.
		report.Classification = AllSucceeded
	case report.Successes == 0:
		report.Classification = AllFailed
	default:
		report.Classification = PartialSuccess
	}

	return report
}

// Profiles returns the successfully fetched profiles in input order.
func (r *Report) Profiles() []*raiderio.GuildProfile {
	profiles := make([]*raiderio.GuildProfile, 0, r.Successes)
	for _, out := range r.Outcomes {
		if out.Status == raiderio.StatusSuccess && out.Profile != nil {
			profiles = append(profiles, out.Profile)
		}
	}
	return profiles
}

// Failed returns the outcomes that did not resolve successfully, in input
// order.
func (r *Report) Failed() []raiderio.Outcome {
	failed := make([]raiderio.Outcome, 0, len(r.Outcomes)-r.Successes)
	for _, out := range r.Outcomes {
		if out.Status != raiderio.StatusSuccess {
			failed = append(failed, out)
		}
	}
	return failed
}
