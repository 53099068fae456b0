package models

// Movie is a raw catalog row from movies.csv, untouched after extraction.
// Title still carries the "(YYYY)" suffix and Genres the pipe-joined list.
type Movie struct {
	MovieID int    `json:"movie_id"`
	Title   string `json:"title"`
	Genres  string `json:"genres"`
}

// Rating is a raw row from ratings.csv.
type Rating struct {
	UserID    int     `json:"user_id"`
	MovieID   int     `json:"movie_id"`
	Rating    float64 `json:"rating"`
	Timestamp int64   `json:"timestamp"`
}

// EnrichedMovie is the merged record written to the movies table: parsed
// title/year, OMDb director, aggregated rating and derived decade.
// Year, AvgRating and Decade are nil when the source data cannot supply
// them; Director always falls back to "Unknown" instead of null.
type EnrichedMovie struct {
	MovieID   int      `json:"movie_id"`
	Title     string   `json:"title"`
	Year      *int     `json:"year,omitempty"`
	Director  string   `json:"director"`
	AvgRating *float64 `json:"rating,omitempty"`
	Genres    string   `json:"genres"`
	Decade    *int     `json:"decade,omitempty"`
}
