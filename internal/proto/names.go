package proto

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeName normalizes a display name so it can travel inside a ROOM
// player list: NFC form, no separators or control characters, at most
// MaxNameLength runes. The result may be empty.
func SanitizeName(raw string) string {
	name := norm.NFC.String(strings.TrimSpace(raw))
	var b strings.Builder
	count := 0
	for _, r := range name {
		if count == MaxNameLength {
			break
		}
		switch {
		case r == ':' || r == '|' || r == ',':
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
		count++
	}
	return strings.TrimSpace(b.String())
}

// PlayerName is SanitizeName with the server's fallback for empty names.
func PlayerName(raw string) string {
	if name := SanitizeName(raw); name != "" {
		return name
	}
	return DefaultPlayerName
}
