package behavior

import (
	"context"
	"sync"
	"time"
)

// Store holds one behavioral baseline per student. Get must return nil (not
// an error) when no baseline exists yet; analyzers treat that as "no
// information". Update is called by the service after an attempt's outcome is
// known, never during scoring, so a baseline can never contain the attempt
// currently under judgment. Callers serialize Update per student.
type Store interface {
	Get(ctx context.Context, studentID int64) (*Pattern, error)
	Update(ctx context.Context, studentID int64, attempt Attempt) error
	Prune(ctx context.Context, studentID int64, before time.Time) error
}

// MemoryStore is the in-process Store used when no external store is
// configured. History per student is capped at maxHistory attempts.
type MemoryStore struct {
	mu         sync.RWMutex
	patterns   map[int64]*Pattern
	maxHistory int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		patterns:   make(map[int64]*Pattern),
		maxHistory: maxHistory,
	}
}

// Get returns a copy of the student's baseline, or nil if none exists.
func (s *MemoryStore) Get(_ context.Context, studentID int64) (*Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern, ok := s.patterns[studentID]
	if !ok {
		return nil, nil
	}
	return pattern.Clone(), nil
}

// Update records an attempt, creating the baseline lazily on first use.
func (s *MemoryStore) Update(_ context.Context, studentID int64, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pattern, ok := s.patterns[studentID]
	if !ok {
		pattern = NewPattern(studentID)
		s.patterns[studentID] = pattern
	}
	pattern.Record(attempt, s.maxHistory)
	return nil
}

// Prune drops attempts older than before from the student's history. The day
// and hour sets are left intact; they summarize long-term habits.
func (s *MemoryStore) Prune(_ context.Context, studentID int64, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pattern, ok := s.patterns[studentID]
	if !ok {
		return nil
	}

	kept := pattern.Attempts[:0]
	for _, a := range pattern.Attempts {
		if !a.Timestamp.Before(before) {
			kept = append(kept, a)
		}
	}
	pattern.Attempts = kept
	return nil
}
