package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store with
// the same upsert-by-window semantics as the Postgres store. It backs tests
// and local runs without a hosted database.
type MemoryStore struct {
	mu sync.RWMutex

	// keyed by the window timestamp (UTC unix nanos)
	readings    map[int64]intensity.IntensityReading
	generations map[int64]intensity.GenerationSnapshot
	regionals   map[int64]intensity.RegionalSnapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		readings:    make(map[int64]intensity.IntensityReading),
		generations: make(map[int64]intensity.GenerationSnapshot),
		regionals:   make(map[int64]intensity.RegionalSnapshot),
	}
}

func (s *MemoryStore) UpsertReading(_ context.Context, r intensity.IntensityReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[r.RecordedAt.UTC().UnixNano()] = r
	return nil
}

func (s *MemoryStore) UpsertGeneration(_ context.Context, g intensity.GenerationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[g.RecordedAt.UTC().UnixNano()] = g
	return nil
}

func (s *MemoryStore) UpsertRegional(_ context.Context, snap intensity.RegionalSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regionals[snap.RecordedAt.UTC().UnixNano()] = snap
	return nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := cutoff.UTC().UnixNano()
	var deleted int64

	for key := range s.readings {
		if key < limit {
			delete(s.readings, key)
			deleted++
		}
	}
	for key := range s.generations {
		if key < limit {
			delete(s.generations, key)
			deleted++
		}
	}
	for key := range s.regionals {
		if key < limit {
			delete(s.regionals, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) LatestReading(_ context.Context) (intensity.IntensityReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := newestKey(s.readings)
	if !ok {
		return intensity.IntensityReading{}, ErrNotFound
	}
	return s.readings[key], nil
}

func (s *MemoryStore) ReadingsRange(_ context.Context, from, to time.Time) ([]intensity.IntensityReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]int64, 0, len(s.readings))
	lo, hi := from.UTC().UnixNano(), to.UTC().UnixNano()
	for key := range s.readings {
		if key >= lo && key <= hi {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	readings := make([]intensity.IntensityReading, 0, len(keys))
	for _, key := range keys {
		readings = append(readings, s.readings[key])
	}
	return readings, nil
}

func (s *MemoryStore) LatestGeneration(_ context.Context) (intensity.GenerationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := newestKey(s.generations)
	if !ok {
		return intensity.GenerationSnapshot{}, ErrNotFound
	}
	return s.generations[key], nil
}

func (s *MemoryStore) LatestRegional(_ context.Context) (intensity.RegionalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := newestKey(s.regionals)
	if !ok {
		return intensity.RegionalSnapshot{}, ErrNotFound
	}
	return s.regionals[key], nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func newestKey[V any](m map[int64]V) (int64, bool) {
	var newest int64
	found := false
	for key := range m {
		if !found || key > newest {
			newest = key
			found = true
		}
	}
	return newest, found
}
