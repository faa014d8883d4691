package cache

import (
	"time"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

// Entry is the stored form of a cached guild profile. Redis key expiry is
// the source of truth for eviction; Expires is carried in the payload so a
// stale entry read through a client without TTL support is still rejected.
type Entry struct {
	// Profile is the cached guild profile.
	Profile *raiderio.GuildProfile `json:"profile"`

	// CachedAt is when we stored this entry.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
