package parts

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Normalize strips whitespace and hyphens from a part number and case-folds
// it. Lookup tables and probes must both go through Normalize so matching
// stays symmetric.
func Normalize(partNumber string) string {
	var b strings.Builder
	b.Grow(len(partNumber))
	for _, r := range partNumber {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	// Casers keep state, so one is made per call.
	return cases.Fold().String(b.String())
}

// Equal reports whether two part numbers match after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
