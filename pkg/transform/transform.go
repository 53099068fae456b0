// Package transform merges parsed catalog rows, OMDb enrichment and
// aggregated rating statistics into the records the loader persists.
package transform

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/models"
	"github.com/dh1921/movie-pipeline/pkg/omdb"
	"github.com/dh1921/movie-pipeline/pkg/parse"
)

// UnknownDirector is the sentinel stored when enrichment cannot supply a
// director. The movies table never holds a null director.
const UnknownDirector = "Unknown"

// Enricher resolves a title/year pair to OMDb metadata. Satisfied by
// *omdb.Client; tests substitute a fake.
type Enricher interface {
	Lookup(ctx context.Context, title string, year *int) (omdb.Result, error)
}

// Transformer applies the per-movie merge. Movies are processed strictly
// one at a time because the enrichment service is rate-limited.
type Transformer struct {
	enricher Enricher
	logger   *zap.Logger
}

// New creates a Transformer using the given enricher.
func New(enricher Enricher, logger *zap.Logger) *Transformer {
	return &Transformer{
		enricher: enricher,
		logger:   logger.Named("transform"),
	}
}

// Transform produces exactly one EnrichedMovie per input movie. Average
// ratings are aggregated once over the whole rating set up front, keeping
// the pass linear in catalog size.
func (t *Transformer) Transform(ctx context.Context, movies []models.Movie, ratings []models.Rating) ([]models.EnrichedMovie, error) {
	averages := AverageRatings(ratings)

	enriched := make([]models.EnrichedMovie, 0, len(movies))
	for _, movie := range movies {
		record, err := t.merge(ctx, movie, averages)
		if err != nil {
			return nil, fmt.Errorf("failed to transform movie %d: %w", movie.MovieID, err)
		}
		enriched = append(enriched, record)
	}

	t.logger.Info("Transformed catalog", zap.Int("movies", len(enriched)))
	return enriched, nil
}

func (t *Transformer) merge(ctx context.Context, movie models.Movie, averages map[int]float64) (models.EnrichedMovie, error) {
	title, year := parse.Title(movie.Title)
	genres := parse.Genres(movie.Genres)

	result, err := t.enricher.Lookup(ctx, title, year)
	if err != nil {
		return models.EnrichedMovie{}, err
	}

	director := UnknownDirector
	if result.Found && result.Director != "" {
		director = result.Director
	}

	var avg *float64
	if mean, ok := averages[movie.MovieID]; ok {
		rounded := roundRating(mean)
		avg = &rounded
	}

	return models.EnrichedMovie{
		MovieID:   movie.MovieID,
		Title:     title,
		Year:      year,
		Director:  director,
		AvgRating: avg,
		Genres:    strings.Join(genres, ", "),
		Decade:    parse.Decade(year),
	}, nil
}

// AverageRatings computes the mean rating per movie ID in one pass over
// the full rating set. Movies with no ratings are absent from the map.
func AverageRatings(ratings []models.Rating) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range ratings {
		sums[r.MovieID] += r.Rating
		counts[r.MovieID]++
	}

	averages := make(map[int]float64, len(sums))
	for id, sum := range sums {
		averages[id] = sum / float64(counts[id])
	}
	return averages
}

// roundRating rounds to one decimal place, half away from zero
// (math.Round semantics): 4.25 -> 4.3.
func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
