package renderer

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// placeholder stands in for characters the core PDF fonts cannot draw.
const placeholder = '?'

var coreFontReplacer = strings.NewReplacer(
	"—", "-",
	"–", "-",
	"…", "...",
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
	"\u00a0", " ",
	"\u200b", "",
)

// replaceUnsupported maps typographic punctuation to ASCII and every other
// rune outside Windows-1252 to the placeholder. The result is still UTF-8.
func replaceUnsupported(s string) string {
	s = coreFontReplacer.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteRune(r)
		} else {
			b.WriteRune(placeholder)
		}
	}
	return b.String()
}

// toCoreFont returns s encoded as Windows-1252 bytes, the encoding the
// core PDF fonts expect.
func toCoreFont(s string) string {
	safe := replaceUnsupported(s)
	out, err := charmap.Windows1252.NewEncoder().String(safe)
	if err != nil {
		return strings.Map(func(r rune) rune {
			if r > 0x7e {
				return placeholder
			}
			return r
		}, safe)
	}
	return out
}
