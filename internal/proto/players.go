package proto

import (
	"strconv"
	"strings"
)

const (
	entrySeparator = "|"
	valueSeparator = ","
)

// EncodePlayers renders the ROOM player list as id,name,ready,score,alive
// entries joined by '|'. An empty list encodes as the empty string.
func EncodePlayers(players []PlayerEntry) string {
	entries := make([]string, 0, len(players))
	for _, p := range players {
		entries = append(entries, strings.Join([]string{
			strconv.Itoa(p.ID),
			p.Name,
			flag(p.Ready),
			strconv.Itoa(p.Score),
			flag(p.Alive),
		}, valueSeparator))
	}
	return strings.Join(entries, entrySeparator)
}

// DecodePlayers parses a ROOM player list. Blank entries and entries without
// at least an id and a name are skipped. Missing trailing values default to
// not ready, zero score and alive.
func DecodePlayers(raw string) []PlayerEntry {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var players []PlayerEntry
	for _, entry := range strings.Split(raw, entrySeparator) {
		values := strings.Split(strings.TrimSpace(entry), valueSeparator)
		if len(values) < 2 {
			continue
		}
		p := PlayerEntry{
			ID:    ParseInt(values[0], 0),
			Name:  strings.TrimSpace(values[1]),
			Alive: true,
		}
		if len(values) > 2 {
			p.Ready = ParseBool(values[2])
		}
		if len(values) > 3 {
			p.Score = ParseInt(values[3], 0)
		}
		if len(values) > 4 {
			p.Alive = ParseBool(values[4])
		}
		players = append(players, p)
	}
	return players
}
