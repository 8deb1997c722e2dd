// Package memory provides an in-memory result store for tests and local
// development.
package memory

import (
	"context"
	"sync"

	"github.com/bracekit/linkextract/internal/extract"
)

// ResultStore keeps extraction results in a map guarded by a mutex.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]extract.ExtractedResult
}

// NewResultStore creates an empty in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]extract.ExtractedResult),
	}
}

// Get returns the stored result for key; absence is not an error.
func (s *ResultStore) Get(_ context.Context, key string) (extract.ExtractedResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[key]
	return result, ok, nil
}

// Put upserts the result under key, last writer wins.
func (s *ResultStore) Put(_ context.Context, key string, result extract.ExtractedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = result
	return nil
}

// Len reports the number of stored records.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
