// Package recorder stores daily bars and ranking runs.
package recorder

import (
	"context"
	"errors"
	"time"

	"BhavSentinel/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// RunRecord is one completed pipeline run and its ranked output.
type RunRecord struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Metadata   model.IngestMetadata
	Results    []model.ScoreBreakdown
}

// Recorder persists bars and runs. Implementations are safe for concurrent use.
type Recorder interface {
	// SaveBars upserts on (symbol, session date), so re-ingesting a file is harmless.
	SaveBars(ctx context.Context, bars []model.PriceBar) error
	// LoadSeries returns the latest limit bars for symbol in ascending date
	// order. limit <= 0 returns the full history.
	LoadSeries(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error)
	RecordRun(ctx context.Context, run *RunRecord) error
	// LatestRun returns ErrNotFound before the first run.
	LatestRun(ctx context.Context) (*RunRecord, error)
	Close() error
}

func sessionDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
