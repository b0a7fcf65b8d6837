package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.BrazilianPortuguese)

// Name title-cases a display name: first letter of each word uppercased, the
// rest lowercased, surrounding and repeated whitespace collapsed. Empty input
// yields "".
func Name(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(fields, " "))
}

// Origin trims an origin label. Labels arrive from account configuration
// rather than end users, so casing is preserved as sent.
func Origin(raw string) string {
	return strings.TrimSpace(raw)
}
