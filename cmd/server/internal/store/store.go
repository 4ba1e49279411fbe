package store

import (
	"sync"
	"time"

	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Update carries the fields of a write. A nil field is carried over unchanged
// from the current snapshot, so callers can write partial updates.
type Update struct {
	Stocks       []models.Instrument
	Indices      map[string]models.Index
	Sectors      []models.SectorAggregate
	ChartHistory []models.ChartPoint
}

// SnapshotStore holds exactly one current snapshot. Writes build a fresh
// Snapshot value and swap the pointer under lock; readers share the previous
// value, which is never mutated after the swap. That gives atomic-replace
// semantics: no reader ever observes a half-merged snapshot.
type SnapshotStore struct {
	mu      sync.RWMutex
	current *models.Snapshot
	clock   Clock
}

// New creates a store seeded with an initial snapshot. The seed must be
// structurally valid; the bootstrap path feeds it generator output so reads
// never return empty data.
func New(initial *models.Snapshot, clock Clock) *SnapshotStore {
	if clock == nil {
		clock = systemClock{}
	}
	return &SnapshotStore{current: initial, clock: clock}
}

// Read returns the current snapshot. Safe for any number of concurrent
// callers. The returned value is shared and must not be mutated; use Clone
// before modifying.
func (s *SnapshotStore) Read() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Write merges the update into the current snapshot and stamps LastUpdate.
func (s *SnapshotStore) Write(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &models.Snapshot{
		Stocks:       s.current.Stocks,
		Indices:      s.current.Indices,
		Sectors:      s.current.Sectors,
		ChartHistory: s.current.ChartHistory,
		LastUpdate:   s.clock.Now(),
	}
	if u.Stocks != nil {
		next.Stocks = u.Stocks
	}
	if u.Indices != nil {
		next.Indices = u.Indices
	}
	if u.Sectors != nil {
		next.Sectors = u.Sectors
	}
	if u.ChartHistory != nil {
		next.ChartHistory = u.ChartHistory
	}
	s.current = next
}

// Replace swaps in a whole snapshot, keeping only its own LastUpdate stamping.
func (s *SnapshotStore) Replace(snap *models.Snapshot) {
	s.Write(Update{
		Stocks:       snap.Stocks,
		Indices:      snap.Indices,
		Sectors:      snap.Sectors,
		ChartHistory: snap.ChartHistory,
	})
}
