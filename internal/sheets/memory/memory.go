package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"skledger/internal/core"
)

// Store keeps period records in process memory. Records are copied on the
// way in and out so callers never share state with the store.
type Store struct {
	mu      sync.Mutex
	periods map[core.PeriodKey]core.PeriodRecord
	saves   int
}

func New() *Store {
	return &Store{periods: make(map[core.PeriodKey]core.PeriodRecord)}
}

// NewFromFile seeds the store from a JSON object keyed by period key, e.g.
// {"2025-Q1": {"schema": ..., "metadata": ..., "entries": [...]}}.
// A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed map[core.PeriodKey]core.PeriodRecord
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for k, rec := range seed {
		s.periods[k] = rec.Clone()
	}
	return s, nil
}

// Load returns a copy of the stored record.
func (s *Store) Load(_ context.Context, key core.PeriodKey) (core.PeriodRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.periods[key]
	if !ok {
		return core.PeriodRecord{}, false, nil
	}
	return rec.Clone(), true, nil
}

// Save replaces the stored record.
func (s *Store) Save(_ context.Context, key core.PeriodKey, rec core.PeriodRecord) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[key] = rec.Clone()
	s.saves++
	return nil
}

// ListPeriods returns stored keys, oldest first.
func (s *Store) ListPeriods(_ context.Context) ([]core.PeriodKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]core.PeriodKey, 0, len(s.periods))
	for k := range s.periods {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b core.PeriodKey) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return keys, nil
}

// Saves returns how many saves the store has accepted.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
