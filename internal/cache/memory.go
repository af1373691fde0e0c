package cache

import (
	"fmt"
	"time"

	"github.com/amishk599/applypilot/internal/model"
)

// MemoryStore keeps cache entries in memory, preserving insertion order.
// Used in dry-run mode and tests; nothing survives the process.
type MemoryStore struct {
	entries []model.CacheEntry
	index   map[string]int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func (s *MemoryStore) Insert(e model.CacheEntry) error {
	if _, exists := s.index[e.ID]; exists {
		return fmt.Errorf("cache entry %s already exists", e.ID)
	}
	s.index[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) Get(id string) (model.CacheEntry, error) {
	i, ok := s.index[id]
	if !ok {
		return model.CacheEntry{}, fmt.Errorf("cache entry %s not found", id)
	}
	return s.entries[i], nil
}

func (s *MemoryStore) ListByType(qtype model.QuestionType) ([]model.CacheEntry, error) {
	var out []model.CacheEntry
	for _, e := range s.entries {
		if e.QuestionType == qtype {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) All() ([]model.CacheEntry, error) {
	out := make([]model.CacheEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) IncrementUsage(id string, when time.Time) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("cache entry %s not found", id)
	}
	s.entries[i].UsageCount++
	s.entries[i].LastUsed = when
	return nil
}

func (s *MemoryStore) SetRating(id string, rating int) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("cache entry %s not found", id)
	}
	r := rating
	s.entries[i].Rating = &r
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].ID] = j
	}
	return nil
}

func (s *MemoryStore) DeleteAll() error {
	s.entries = nil
	s.index = make(map[string]int)
	return nil
}
