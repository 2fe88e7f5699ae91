package store

import (
	"context"
	"errors"
	"time"

	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
)

// ErrNotFound is returned when a query matches no stored rows.
var ErrNotFound = errors.New("no data for query")

// Store is the contract between the pipeline, the retention sweeper, and the
// dashboard. The remote table is the sole system of record; every write is an
// upsert keyed on the window timestamp, so re-running a window overwrites
// rather than duplicates.
type Store interface {
	UpsertReading(ctx context.Context, r intensity.IntensityReading) error
	UpsertGeneration(ctx context.Context, g intensity.GenerationSnapshot) error
	UpsertRegional(ctx context.Context, s intensity.RegionalSnapshot) error

	// DeleteOlderThan removes rows from all tables with a window timestamp
	// before cutoff and reports how many went. Idempotent.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	LatestReading(ctx context.Context) (intensity.IntensityReading, error)
	ReadingsRange(ctx context.Context, from, to time.Time) ([]intensity.IntensityReading, error)
	LatestGeneration(ctx context.Context) (intensity.GenerationSnapshot, error)
	LatestRegional(ctx context.Context) (intensity.RegionalSnapshot, error)

	Close() error
}
