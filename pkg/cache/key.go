package cache

import (
	"strings"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

// keyPrefix namespaces guild profile entries in a shared Redis instance.
const keyPrefix = "guildstatus:profile"

// Key generates a deterministic cache key for a guild identifier.
// Format: guildstatus:profile:region:realm:name, lowercased with spaces
// folded to dashes so "Tarren Mill" and "tarren-mill" share an entry.
//
// Example:
//
//	guildstatus:profile:eu:tarren-mill:echo
func Key(id raiderio.GuildID) string {
	parts := []string{keyPrefix, normalize(id.Region), normalize(id.Realm), normalize(id.Name)}
	return strings.Join(parts, ":")
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
