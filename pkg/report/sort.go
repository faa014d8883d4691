package report

import (
	"sort"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

// SortGuilds orders profiles best first: world-ranked guilds ascending by
// rank, then unranked guilds by progression (difficulty before boss count).
// The input slice is not modified.
func SortGuilds(profiles []*raiderio.GuildProfile) []*raiderio.GuildProfile {
	sorted := make([]*raiderio.GuildProfile, len(profiles))
	copy(sorted, profiles)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		rankedA := a.WorldRank > 0
		rankedB := b.WorldRank > 0

		switch {
		case rankedA && rankedB:
			return a.WorldRank < b.WorldRank
		case rankedA:
			// Ranked guilds come before unranked ones.
			return true
		case rankedB:
			return false
		default:
			return CompareProgression(a.Progress, b.Progress) > 0
		}
	})

	return sorted
}
