package guildstore

import "github.com/guildwatch/guildstatus/pkg/raiderio"

// ID converts a roster row into a fetchable guild identifier.
func (g GuildRow) ID() raiderio.GuildID {
	return raiderio.GuildID{Region: g.Region, Realm: g.Realm, Name: g.Name}
}

// IDs converts a roster listing into the scheduler's input, preserving
// order.
func IDs(rows []GuildRow) []raiderio.GuildID {
	ids := make([]raiderio.GuildID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID()
	}
	return ids
}
