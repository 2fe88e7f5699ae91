package store

import (
	"context"
	"testing"
	"time"

	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
)

func day(n int) time.Time {
	return time.Date(2024, 3, n, 12, 0, 0, 0, time.UTC)
}

// TestUpsertLastWriteWins verifies the upsert contract: writing the same
// window twice keeps exactly one row with the latest value.
func TestUpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	window := day(1)
	if err := st.UpsertReading(ctx, intensity.IntensityReading{RecordedAt: window, Value: 120}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.UpsertReading(ctx, intensity.IntensityReading{RecordedAt: window, Value: 115}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	readings, err := st.ReadingsRange(ctx, window.Add(-time.Hour), window.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("expected exactly one row for the window, got %d", len(readings))
	}
	if readings[0].Value != 115 {
		t.Errorf("expected latest value 115, got %v", readings[0].Value)
	}
}

// TestRetentionWindow covers the day-10 scenario: with a 7-day window, rows
// from days 1 and 2 are deleted, rows from day 4 onward survive.
func TestRetentionWindow(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	for _, n := range []int{1, 2, 4, 6, 9} {
		if err := st.UpsertReading(ctx, intensity.IntensityReading{RecordedAt: day(n), Value: 100}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	cutoff := day(10).Add(-7 * 24 * time.Hour)
	deleted, err := st.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 rows deleted, got %d", deleted)
	}

	readings, err := st.ReadingsRange(ctx, day(1), day(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 surviving rows, got %d", len(readings))
	}
	if !readings[0].RecordedAt.Equal(day(4)) {
		t.Errorf("expected oldest surviving row at day 4, got %v", readings[0].RecordedAt)
	}
}

// TestSweepIdempotent verifies running the sweeper twice back-to-back is a
// no-op the second time.
func TestSweepIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if err := st.UpsertReading(ctx, intensity.IntensityReading{RecordedAt: day(1), Value: 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.UpsertGeneration(ctx, intensity.GenerationSnapshot{RecordedAt: day(1), Mix: []intensity.FuelShare{{Fuel: "wind", Percent: 100}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cutoff := day(5)
	first, err := st.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != 2 {
		t.Errorf("expected 2 rows deleted on first sweep, got %d", first)
	}

	second, err := st.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != 0 {
		t.Errorf("expected no-op on second sweep, got %d deletions", second)
	}
}

func TestLatestEmptyStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if _, err := st.LatestReading(ctx); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.LatestGeneration(ctx); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.LatestRegional(ctx); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestReturnsNewest(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	for _, n := range []int{3, 1, 2} {
		if err := st.UpsertReading(ctx, intensity.IntensityReading{RecordedAt: day(n), Value: float64(n)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	latest, err := st.LatestReading(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !latest.RecordedAt.Equal(day(3)) {
		t.Errorf("expected newest row, got %v", latest.RecordedAt)
	}
}
