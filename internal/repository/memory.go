package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps logs in process memory. It is used when no database is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	games   map[string]GameRecord
	records map[string][]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:   make(map[string]GameRecord),
		records: make(map[string][]Record),
	}
}

func (s *MemoryStore) CreateGame(_ context.Context, rec GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[rec.ID]; exists {
		return fmt.Errorf("game %s: %w", rec.ID, ErrConflict)
	}
	s.games[rec.ID] = rec
	return nil
}

func (s *MemoryStore) GetGame(_ context.Context, id string) (GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.games[id]
	if !ok {
		return GameRecord{}, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) ListGames(_ context.Context) ([]GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]GameRecord, 0, len(s.games))
	for _, rec := range s.games {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[rec.GameID]; !ok {
		return fmt.Errorf("game %s: %w", rec.GameID, ErrNotFound)
	}
	if n := len(s.records[rec.GameID]); rec.Seq != n {
		return fmt.Errorf("record %d appended to a log of %d: %w", rec.Seq, n, ErrConflict)
	}
	s.records[rec.GameID] = append(s.records[rec.GameID], rec)
	return nil
}

func (s *MemoryStore) Records(_ context.Context, gameID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.games[gameID]; !ok {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	return append([]Record(nil), s.records[gameID]...), nil
}

func (s *MemoryStore) Truncate(_ context.Context, gameID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if keep < 0 {
		keep = 0
	}
	if keep < len(s.records[gameID]) {
		s.records[gameID] = s.records[gameID][:keep:keep]
	}
	return nil
}

func (s *MemoryStore) Close() {}
