// Package parse normalizes the raw MovieLens catalog fields: title/year
// splitting, genre list cleanup and decade derivation.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// titleYearPattern matches titles ending in a 4-digit year in parentheses,
// e.g. "Toy Story (1995)".
var titleYearPattern = regexp.MustCompile(`^(.+)\s+\((\d{4})\)$`)

// Title splits a raw catalog title into a cleaned title and release year.
// Titles without a parseable "(YYYY)" suffix return the trimmed original
// and a nil year; malformed input never produces an error.
func Title(raw string) (string, *int) {
	trimmed := strings.TrimSpace(raw)

	m := titleYearPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return trimmed, nil
	}

	year, err := strconv.Atoi(m[2])
	if err != nil {
		// Unreachable given the \d{4} group, but degrade to "no year"
		// rather than guessing.
		return trimmed, nil
	}

	return strings.TrimSpace(m[1]), &year
}

// Decade floors a release year to its decade (1995 -> 1990).
// A nil year yields a nil decade.
func Decade(year *int) *int {
	if year == nil {
		return nil
	}
	d := (*year / 10) * 10
	return &d
}
