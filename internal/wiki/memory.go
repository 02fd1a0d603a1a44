package wiki

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps pages in memory. It backs dry runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	pages     map[string]string
	summaries map[string]string
}

// NewMemoryStore creates a store preloaded with pages.
func NewMemoryStore(pages map[string]string) *MemoryStore {
	s := &MemoryStore{
		pages:     make(map[string]string, len(pages)),
		summaries: make(map[string]string),
	}
	for id, text := range pages {
		s.pages[id] = text
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pages[id], nil
}

func (s *MemoryStore) Set(_ context.Context, id, text, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[id] = text
	s.summaries[id] = summary
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[id]
	return ok, nil
}

func (s *MemoryStore) List(_ context.Context, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.pages {
		if namespace == "" || strings.HasPrefix(id, namespace+":") {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Summary returns the edit summary of the last write to id.
func (s *MemoryStore) Summary(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaries[id]
}

func (s *MemoryStore) Close() error {
	return nil
}
