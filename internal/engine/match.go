package engine

import (
	"regexp"
	"strings"
)

// unitSuffix matches the "(i/q)" suffix appended by Expand to multi-quantity
// units, so transcript phrases can match against the original line name.
var unitSuffix = regexp.MustCompile(`\s*\(\d+/\d+\)$`)

// Normalize lowercases and trims a name. All identity comparisons in the
// engine happen on normalized names.
func Normalize(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// Match reports whether two names refer to the same thing: equal after
// normalization, or one contains the other. "john" matches "johnny" and
// "al" matches "sally". Unmatched names degrade silently at every call site.
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// StripUnitSuffix removes the "(i/q)" suffix from an expanded item name.
// Names without a suffix are returned unchanged.
func StripUnitSuffix(name string) string {
	return unitSuffix.ReplaceAllString(name, "")
}

// MatchItem reports whether a transcript phrase refers to an atomic item.
// The item's unit suffix is stripped before the fuzzy comparison, so "soda"
// claims every unit of "Soda (1/3)".."Soda (3/3)".
func MatchItem(phrase, itemName string) bool {
	return Match(phrase, StripUnitSuffix(itemName))
}
