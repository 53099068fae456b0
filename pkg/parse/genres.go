package parse

import "strings"

// noGenresSentinel is the literal MovieLens uses for movies without genres.
const noGenresSentinel = "(no genres listed)"

// Genres splits a pipe-joined genre string into a trimmed list, dropping
// the "(no genres listed)" sentinel case-insensitively. Order and
// duplicates are preserved; an empty input yields an empty list.
func Genres(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	parts := strings.Split(raw, "|")
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		g := strings.TrimSpace(p)
		if g == "" || strings.EqualFold(g, noGenresSentinel) {
			continue
		}
		genres = append(genres, g)
	}
	return genres
}
