package store

import (
	"context"
	"sync"

	"github.com/mailwatch/phishfilter/internal/core"
)

// MemoryStore is an in-memory implementation of the ResultStore interface,
// used by the CLI and by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*core.AnalysisResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]*core.AnalysisResult),
	}
}

// Save stores the result, replacing any previous entry for the same email.
func (s *MemoryStore) Save(ctx context.Context, result *core.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *result
	s.results[result.EmailID] = &copied
	return nil
}

// Get retrieves the stored result for an email.
func (s *MemoryStore) Get(ctx context.Context, emailID string) (*core.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[emailID]
	if !ok {
		return nil, core.ErrResultNotFound
	}

	copied := *result
	return &copied, nil
}
