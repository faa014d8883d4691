package raiderio

// Status is the terminal classification of one guild fetch.
type Status int

const (
	// StatusSuccess means the API returned a parseable profile.
	StatusSuccess Status = iota

	// StatusTransient means every attempt failed with a retryable error
	// (timeout, connection reset, 429, 5xx).
	StatusTransient

	// StatusPermanent means the fetch failed with an error a retry cannot
	// fix (4xx other than 429, unparseable payload).
	StatusPermanent

	// StatusTimedOut means the overall deadline elapsed before the guild
	// could be resolved.
	StatusTimedOut
)

// String returns the status name for logs and metrics labels.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTransient:
		return "transient"
	case StatusPermanent:
		return "permanent"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result for one guild. The fetcher always returns
// an Outcome, never an error: failure is data for the aggregate report.
type Outcome struct {
	Guild     GuildID
	Status    Status
	Profile   *GuildProfile // non-nil only for StatusSuccess
	Err       error         // non-nil for failure statuses
	Attempts  int           // upstream attempts made (0 for cache hits)
	FromCache bool
}
