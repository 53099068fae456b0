package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/dh1921/movie-pipeline/pkg/apperrors"
)

// Config holds all configuration for the pipeline.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (database password, OMDb API key) must only come from environment
// variables.
type Config struct {
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// Input files, read wholesale at run start.
	MoviesCSV  string `yaml:"movies_csv" env:"MOVIES_CSV" env-default:"movies.csv"`
	RatingsCSV string `yaml:"ratings_csv" env:"RATINGS_CSV" env-default:"ratings.csv"`

	// Sampling limits OMDb API usage during development runs.
	Sample SampleConfig `yaml:"sample"`

	// OMDb enrichment service configuration.
	OMDb OMDbConfig `yaml:"omdb"`

	// Database configuration (PostgreSQL).
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// SampleConfig controls the deterministic catalog sample.
type SampleConfig struct {
	Enabled bool  `yaml:"enabled" env:"SAMPLE_ENABLED" env-default:"true"`
	Size    int   `yaml:"size" env:"SAMPLE_SIZE" env-default:"20"`
	Seed    int64 `yaml:"seed" env:"SAMPLE_SEED" env-default:"1"`
}

// OMDbConfig holds OMDb API client configuration.
type OMDbConfig struct {
	BaseURL        string `yaml:"base_url" env:"OMDB_BASE_URL" env-default:"http://www.omdbapi.com/"`
	APIKey         string `yaml:"-" env:"OMDB_API_KEY"` // Secret - not in YAML
	CacheFile      string `yaml:"cache_file" env:"OMDB_CACHE_FILE" env-default:"omdb_cache.json"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"OMDB_TIMEOUT_SECONDS" env-default:"10"`
	ThrottleMillis int    `yaml:"throttle_millis" env:"OMDB_THROTTLE_MILLIS" env-default:"200"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"movies"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"movie_db"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// Load reads configuration from the given YAML file with environment
// variable overrides. Secrets (PGPASSWORD, OMDB_API_KEY) must come from
// environment variables (yaml:"-" fields).
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if cfg.Sample.Enabled && cfg.Sample.Size <= 0 {
		return nil, fmt.Errorf("sample size must be positive when sampling is enabled, got %d", cfg.Sample.Size)
	}

	return cfg, nil
}

// ValidateCredentials runs the pre-flight credential check. A missing or
// placeholder API key or database password aborts the run before any
// network or database activity.
func (c *Config) ValidateCredentials() error {
	if isPlaceholder(c.OMDb.APIKey) {
		return fmt.Errorf("OMDB_API_KEY: %w", apperrors.ErrMissingCredentials)
	}
	if isPlaceholder(c.Database.Password) {
		return fmt.Errorf("PGPASSWORD: %w", apperrors.ErrMissingCredentials)
	}
	return nil
}

// isPlaceholder reports whether a credential is unset or still carries a
// template value like "YOUR_API_KEY".
func isPlaceholder(value string) bool {
	return value == "" || strings.HasPrefix(strings.ToUpper(value), "YOUR")
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
