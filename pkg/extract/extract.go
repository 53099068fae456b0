// Package extract loads the raw movies and ratings CSV files and applies
// the optional deterministic catalog sample.
package extract

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/apperrors"
	"github.com/dh1921/movie-pipeline/pkg/config"
	"github.com/dh1921/movie-pipeline/pkg/models"
)

// Extractor reads the two input files wholesale at run start. Sampling is
// purely a cost-control knob for OMDb API usage: a fixed-size random
// sample of movies, deterministic for a given seed, with ratings filtered
// to the sampled movie IDs so referential consistency holds without any
// database constraint.
type Extractor struct {
	moviesPath  string
	ratingsPath string
	sample      config.SampleConfig
	logger      *zap.Logger
}

// New creates an Extractor from pipeline configuration.
func New(cfg *config.Config, logger *zap.Logger) *Extractor {
	return &Extractor{
		moviesPath:  cfg.MoviesCSV,
		ratingsPath: cfg.RatingsCSV,
		sample:      cfg.Sample,
		logger:      logger.Named("extract"),
	}
}

// Extract loads both tables, sampled per configuration. Requesting a
// sample larger than the catalog is a fatal configuration error.
func (e *Extractor) Extract() ([]models.Movie, []models.Rating, error) {
	movies, err := e.readMovies()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract movies: %w", err)
	}

	ratings, err := e.readRatings()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract ratings: %w", err)
	}

	if e.sample.Enabled {
		movies, ratings, err = e.applySample(movies, ratings)
		if err != nil {
			return nil, nil, err
		}
	}

	e.logger.Info("Extracted input data",
		zap.Int("movies", len(movies)),
		zap.Int("ratings", len(ratings)),
		zap.Bool("sampled", e.sample.Enabled))
	return movies, ratings, nil
}

func (e *Extractor) readMovies() ([]models.Movie, error) {
	rows, cols, err := readCSV(e.moviesPath, "movieId", "title", "genres")
	if err != nil {
		return nil, err
	}

	movies := make([]models.Movie, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[cols["movieId"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid movieId %q: %w", i+1, row[cols["movieId"]], err)
		}
		movies = append(movies, models.Movie{
			MovieID: id,
			Title:   row[cols["title"]],
			Genres:  row[cols["genres"]],
		})
	}
	return movies, nil
}

func (e *Extractor) readRatings() ([]models.Rating, error) {
	rows, cols, err := readCSV(e.ratingsPath, "userId", "movieId", "rating", "timestamp")
	if err != nil {
		return nil, err
	}

	ratings := make([]models.Rating, 0, len(rows))
	for i, row := range rows {
		userID, err := strconv.Atoi(row[cols["userId"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid userId %q: %w", i+1, row[cols["userId"]], err)
		}
		movieID, err := strconv.Atoi(row[cols["movieId"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid movieId %q: %w", i+1, row[cols["movieId"]], err)
		}
		rating, err := strconv.ParseFloat(row[cols["rating"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid rating %q: %w", i+1, row[cols["rating"]], err)
		}
		ts, err := strconv.ParseInt(row[cols["timestamp"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp %q: %w", i+1, row[cols["timestamp"]], err)
		}
		ratings = append(ratings, models.Rating{
			UserID:    userID,
			MovieID:   movieID,
			Rating:    rating,
			Timestamp: ts,
		})
	}
	return ratings, nil
}

// applySample reduces the catalog to a fixed-size random sample and the
// ratings to those referencing a sampled movie.
func (e *Extractor) applySample(movies []models.Movie, ratings []models.Rating) ([]models.Movie, []models.Rating, error) {
	if e.sample.Size > len(movies) {
		return nil, nil, fmt.Errorf("requested %d of %d movies: %w",
			e.sample.Size, len(movies), apperrors.ErrSampleTooLarge)
	}

	sampled := make([]models.Movie, len(movies))
	copy(sampled, movies)

	rng := rand.New(rand.NewSource(e.sample.Seed))
	rng.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})
	sampled = sampled[:e.sample.Size]

	keep := make(map[int]struct{}, len(sampled))
	for _, m := range sampled {
		keep[m.MovieID] = struct{}{}
	}

	filtered := make([]models.Rating, 0, len(ratings))
	for _, r := range ratings {
		if _, ok := keep[r.MovieID]; ok {
			filtered = append(filtered, r)
		}
	}

	return sampled, filtered, nil
}

// readCSV reads a whole CSV file and resolves the required columns by
// header name, case-insensitively. Column order in the file is a
// configuration concern, not part of the contract.
func readCSV(path string, required ...string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file, header row required", path)
	}

	header := records[0]
	cols := make(map[string]int, len(required))
	for _, name := range required {
		idx := -1
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, nil, fmt.Errorf("%s: column %q: %w", path, name, apperrors.ErrMissingColumn)
		}
		cols[name] = idx
	}

	return records[1:], cols, nil
}
