package utils

import (
	"html"
	"strings"
	"unicode"
)

// SanitizeString trims input and escapes HTML.
func SanitizeString(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

// SanitizeText sanitizes free text such as driver comments, keeping line
// breaks and tabs.
func SanitizeText(input string) string {
	escaped := SanitizeString(input)

	var result strings.Builder
	for _, r := range escaped {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
