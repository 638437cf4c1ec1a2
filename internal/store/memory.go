package store

import (
	"context"
	"sync"

	"github.com/amishk599/jobsieve/internal/model"
)

// MemoryStore keeps fingerprinted records for a single run.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.JobRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.JobRecord)}
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (model.JobRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[fingerprint]
	return rec, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, rec model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Fingerprint] = rec
	return nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Close() error { return nil }
