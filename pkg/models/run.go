package models

import (
	"time"

	"github.com/google/uuid"
)

// RunRecord is the audit row written to pipeline_runs alongside each load,
// in the same transaction as the data it describes.
type RunRecord struct {
	ID            uuid.UUID `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	MoviesLoaded  int       `json:"movies_loaded"`
	RatingsLoaded int       `json:"ratings_loaded"`
	Sampled       bool      `json:"sampled"`
}
