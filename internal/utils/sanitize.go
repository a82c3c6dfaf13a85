package utils

import (
	"strings"
	"unicode"
)

// SanitizeFilename keeps alphanumerics, spaces, hyphens and underscores and
// drops everything else, then trims surrounding whitespace. Course and lesson
// titles pass through this before being used as media path segments.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
