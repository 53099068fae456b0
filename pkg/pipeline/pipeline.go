// Package pipeline sequences the ETL stages: extract the raw tables,
// transform them through parsing/enrichment/merge, and load the result
// into PostgreSQL. It is the sole caller of the stage components.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/loader"
	"github.com/dh1921/movie-pipeline/pkg/models"
)

// Extractor loads the raw movie and rating tables.
type Extractor interface {
	Extract() ([]models.Movie, []models.Rating, error)
}

// Transformer merges raw rows and enrichment into loadable records.
type Transformer interface {
	Transform(ctx context.Context, movies []models.Movie, ratings []models.Rating) ([]models.EnrichedMovie, error)
}

// Pipeline runs one Extract -> Transform -> Load pass per invocation.
// There are no retries at this level: enrichment failures are absorbed
// inside the transform stage, and a loader failure fails the run.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	store       loader.Loader
	sampled     bool
	logger      *zap.Logger
}

// New wires the pipeline stages together. sampled is recorded on the run's
// audit row.
func New(extractor Extractor, transformer Transformer, store loader.Loader, sampled bool, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		store:       store,
		sampled:     sampled,
		logger:      logger.Named("pipeline"),
	}
}

// Run executes one full pass and returns the run's audit record.
func (p *Pipeline) Run(ctx context.Context) (models.RunRecord, error) {
	run := models.RunRecord{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Sampled:   p.sampled,
	}
	logger := p.logger.With(zap.String("run_id", run.ID.String()))

	logger.Info("Extracting data")
	movies, ratings, err := p.extractor.Extract()
	if err != nil {
		return run, fmt.Errorf("extract stage failed: %w", err)
	}

	logger.Info("Transforming data")
	enriched, err := p.transformer.Transform(ctx, movies, ratings)
	if err != nil {
		return run, fmt.Errorf("transform stage failed: %w", err)
	}

	logger.Info("Loading data to PostgreSQL")
	run.MoviesLoaded = len(enriched)
	run.RatingsLoaded = len(ratings)
	run.FinishedAt = time.Now().UTC()
	if err := p.store.Load(ctx, run, enriched, ratings); err != nil {
		return run, fmt.Errorf("load stage failed: %w", err)
	}

	logger.Info("ETL complete",
		zap.Int("movies", run.MoviesLoaded),
		zap.Int("ratings", run.RatingsLoaded),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	return run, nil
}
