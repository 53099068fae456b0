package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/config"
	"github.com/dh1921/movie-pipeline/pkg/database"
	"github.com/dh1921/movie-pipeline/pkg/extract"
	"github.com/dh1921/movie-pipeline/pkg/loader"
	"github.com/dh1921/movie-pipeline/pkg/omdb"
	"github.com/dh1921/movie-pipeline/pkg/pipeline"
	"github.com/dh1921/movie-pipeline/pkg/transform"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Pre-flight: placeholder credentials abort before any network or
	// database activity.
	if err := cfg.ValidateCredentials(); err != nil {
		log.Fatalf("Please update your credentials and API key before running: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // stdout sync errors are harmless at exit

	logger.Info("Starting movie-pipeline",
		zap.String("version", Version),
		zap.String("env", cfg.Env),
		zap.String("movies_csv", cfg.MoviesCSV),
		zap.String("ratings_csv", cfg.RatingsCSV),
		zap.Bool("sample", cfg.Sample.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Pipeline failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	connStr := cfg.Database.ConnectionString()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// golang-migrate needs a database/sql handle.
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		return err
	}

	cache, err := omdb.OpenCache(cfg.OMDb.CacheFile, logger)
	if err != nil {
		return err
	}

	p := pipeline.New(
		extract.New(cfg, logger),
		transform.New(omdb.NewClient(cfg.OMDb, cache, logger), logger),
		loader.New(db, logger),
		cfg.Sample.Enabled,
		logger,
	)

	_, err = p.Run(ctx)
	return err
}

// newLogger builds a development logger locally and a production logger
// everywhere else.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
