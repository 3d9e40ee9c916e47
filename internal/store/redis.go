package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/optx/lattice-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Model specs are immutable once created, so they cache indefinitely
// within the TTL; quote lists are invalidated whenever a quote lands.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, populate or invalidate cache) ---

func (s *CachedStore) CreateModel(ctx context.Context, m *model.ModelSpec) error {
	if err := s.primary.CreateModel(ctx, m); err != nil {
		return err
	}
	s.cacheModel(ctx, m)
	return nil
}

func (s *CachedStore) InsertQuote(ctx context.Context, q *model.Quote) error {
	if err := s.primary.InsertQuote(ctx, q); err != nil {
		return err
	}
	// Invalidate quote lists this record belongs to; next read re-populates.
	s.rdb.Del(ctx, modelQuotesKey(q.ModelID))
	if q.Ticker != "" {
		s.rdb.Del(ctx, tickerQuotesKey(q.Ticker))
	}
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetModel(ctx context.Context, id string) (*model.ModelSpec, error) {
	data, err := s.rdb.Get(ctx, modelKey(id)).Bytes()
	if err == nil {
		var m model.ModelSpec
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheModel(ctx, m)
	return m, nil
}

func (s *CachedStore) GetQuotesByModel(ctx context.Context, modelID string) ([]model.Quote, error) {
	data, err := s.rdb.Get(ctx, modelQuotesKey(modelID)).Bytes()
	if err == nil {
		var quotes []model.Quote
		if json.Unmarshal(data, &quotes) == nil {
			return quotes, nil
		}
	}

	quotes, err := s.primary.GetQuotesByModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(quotes); err == nil {
		s.rdb.Set(ctx, modelQuotesKey(modelID), data, s.ttl)
	}
	return quotes, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListModels(ctx context.Context) ([]model.ModelSpec, error) {
	return s.primary.ListModels(ctx)
}

func (s *CachedStore) GetQuotesByTicker(ctx context.Context, ticker string) ([]model.Quote, error) {
	return s.primary.GetQuotesByTicker(ctx, ticker)
}

// --- Cache helpers ---

func (s *CachedStore) cacheModel(ctx context.Context, m *model.ModelSpec) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, modelKey(m.ID), data, s.ttl)
	}
}

func modelKey(id string) string { return fmt.Sprintf("model:%s", id) }

func modelQuotesKey(id string) string { return fmt.Sprintf("quotes:model:%s", id) }

func tickerQuotesKey(t string) string { return fmt.Sprintf("quotes:ticker:%s", t) }
