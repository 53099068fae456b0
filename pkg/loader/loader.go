// Package loader persists merged movie records and raw ratings into
// PostgreSQL with idempotent upsert semantics.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/database"
	"github.com/dh1921/movie-pipeline/pkg/models"
)

// pgForeignKeyViolation is the PostgreSQL error code for FK violations,
// surfaced when a rating references a movie missing from the batch.
const pgForeignKeyViolation = "23503"

// Loader writes one pipeline run's output in a single transaction: either
// the whole batch becomes visible or the store is left untouched. Rows are
// keyed by natural identity (movie_id; user_id+movie_id), so re-running
// with the same input updates in place instead of duplicating.
type Loader interface {
	Load(ctx context.Context, run models.RunRecord, movies []models.EnrichedMovie, ratings []models.Rating) error
}

type loader struct {
	db     *database.DB
	logger *zap.Logger
}

// New creates a PostgreSQL-backed Loader.
func New(db *database.DB, logger *zap.Logger) Loader {
	return &loader{
		db:     db,
		logger: logger.Named("loader"),
	}
}

func (l *loader) Load(ctx context.Context, run models.RunRecord, movies []models.EnrichedMovie, ratings []models.Rating) error {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	for _, m := range movies {
		_, err := tx.Exec(ctx, `
			INSERT INTO movies (movie_id, title, year, director, rating, genres, decade)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (movie_id) DO UPDATE SET
				title    = EXCLUDED.title,
				year     = EXCLUDED.year,
				director = EXCLUDED.director,
				rating   = EXCLUDED.rating,
				genres   = EXCLUDED.genres,
				decade   = EXCLUDED.decade`,
			m.MovieID, m.Title, m.Year, m.Director, m.AvgRating, m.Genres, m.Decade,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert movie %d: %w", m.MovieID, err)
		}
	}

	// Colliding (user_id, movie_id) keys keep the later timestamp.
	for _, r := range ratings {
		_, err := tx.Exec(ctx, `
			INSERT INTO ratings (user_id, movie_id, rating, rated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, movie_id) DO UPDATE SET
				rating   = EXCLUDED.rating,
				rated_at = EXCLUDED.rated_at
			WHERE ratings.rated_at <= EXCLUDED.rated_at`,
			r.UserID, r.MovieID, r.Rating, r.Timestamp,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return fmt.Errorf("rating (%d, %d) references a movie not in this batch: %w",
					r.UserID, r.MovieID, err)
			}
			return fmt.Errorf("failed to upsert rating (%d, %d): %w", r.UserID, r.MovieID, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pipeline_runs (id, started_at, finished_at, movies_loaded, ratings_loaded, sampled)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.StartedAt, run.FinishedAt, run.MoviesLoaded, run.RatingsLoaded, run.Sampled,
	)
	if err != nil {
		return fmt.Errorf("failed to record pipeline run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}

	l.logger.Info("Data loaded successfully",
		zap.String("run_id", run.ID.String()),
		zap.Int("movies", len(movies)),
		zap.Int("ratings", len(ratings)))
	return nil
}
