// Package raiderio provides the Raider.IO HTTP client and the rate-limited
// unit fetcher used by the aggregation pipeline.
package raiderio

import (
	"fmt"
	"time"
)

// GuildID identifies one guild tracked against the Raider.IO API.
// Equality is by value; it is the correlation key for fetch outcomes.
type GuildID struct {
	Region string `json:"region"`
	Realm  string `json:"realm"`
	Name   string `json:"name"`
}

// String returns the canonical region/realm/name form.
func (id GuildID) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Region, id.Realm, id.Name)
}

// GuildProfile is the parsed guild payload for one raid tier.
type GuildProfile struct {
	// Name and Realm as reported by the API (may differ in casing from
	// the requested identifier).
	Name  string `json:"name"`
	Realm string `json:"realm"`

	// Progress is the progression summary for the configured raid,
	// e.g. "5/8 M". Empty when the guild has no recorded progression.
	Progress string `json:"progress"`

	// WorldRank is the mythic world rank. 0 means unranked.
	WorldRank int `json:"world_rank"`

	// FetchedAt is when this profile was retrieved from the API.
	FetchedAt time.Time `json:"fetched_at"`
}
