package report

import (
	"fmt"
	"strings"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

const defaultDisplayLimit = 10

// FormatGuildList renders profiles as a monospace table. limit caps the
// number of rows (0 means the default of 10); showAll renders everything.
// Profiles are rendered in the given order, so callers sort first.
func FormatGuildList(profiles []*raiderio.GuildProfile, limit int, showAll bool) string {
	if len(profiles) == 0 {
		return "No guild data available."
	}

	displayCount := len(profiles)
	if !showAll {
		if limit <= 0 {
			limit = defaultDisplayLimit
		}
		if limit < displayCount {
			displayCount = limit
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Guild Rankings (Showing %d of %d):\n", displayCount, len(profiles))
	b.WriteString("Rank Guild Name                               Server               Progress  World Rank\n")
	b.WriteString("---- ---------------------------------------- -------------------- --------- -----------\n")

	for i, profile := range profiles[:displayCount] {
		worldRank := "Unranked"
		if profile.WorldRank > 0 {
			worldRank = fmt.Sprintf("#%d", profile.WorldRank)
		}

		fmt.Fprintf(&b, "%-4s %s %s %s %s\n",
			fmt.Sprintf("#%d", i+1),
			truncateAndPad(profile.Name, 40),
			truncateAndPad(profile.Realm, 20),
			truncateAndPad(profile.Progress, 9),
			truncateAndPad(worldRank, 11),
		)
	}

	return b.String()
}

// truncateAndPad fits s into exactly width cells for monospace alignment.
// Rune-aware so non-ASCII guild names do not break the columns.
func truncateAndPad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		if width <= 3 {
			return string(runes[:width])
		}
		return string(runes[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-len(runes))
}
