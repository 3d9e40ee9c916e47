package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/optx/lattice-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu     sync.RWMutex
	models map[string]*model.ModelSpec
	quotes []model.Quote
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models: make(map[string]*model.ModelSpec),
	}
}

func (s *MemoryStore) CreateModel(_ context.Context, m *model.ModelSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.models[m.ID]; exists {
		return fmt.Errorf("model %s already exists", m.ID)
	}

	// Store a copy to avoid external mutation.
	copy := *m
	s.models[m.ID] = &copy
	return nil
}

func (s *MemoryStore) GetModel(_ context.Context, id string) (*model.ModelSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: model %s", ErrNotFound, id)
	}
	copy := *m
	return &copy, nil
}

func (s *MemoryStore) ListModels(_ context.Context) ([]model.ModelSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make([]model.ModelSpec, 0, len(s.models))
	for _, m := range s.models {
		models = append(models, *m)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].CreatedAt.After(models[j].CreatedAt)
	})
	return models, nil
}

func (s *MemoryStore) InsertQuote(_ context.Context, q *model.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes = append(s.quotes, *q)
	return nil
}

func (s *MemoryStore) GetQuotesByModel(_ context.Context, modelID string) ([]model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Quote
	for _, q := range s.quotes {
		if q.ModelID == modelID {
			result = append(result, q)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetQuotesByTicker(_ context.Context, ticker string) ([]model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Quote
	for _, q := range s.quotes {
		if q.Ticker == ticker {
			result = append(result, q)
		}
	}
	return result, nil
}
