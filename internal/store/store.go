// Package store defines the persistence interface for the pricing engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/optx/lattice-engine/internal/model"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Model operations ---

	// CreateModel persists a built lattice model's parameters.
	CreateModel(ctx context.Context, spec *model.ModelSpec) error

	// GetModel retrieves a model spec by its ID.
	GetModel(ctx context.Context, id string) (*model.ModelSpec, error)

	// ListModels returns all stored model specs, newest first.
	ListModels(ctx context.Context) ([]model.ModelSpec, error)

	// --- Immutable quote ledger ---

	// InsertQuote appends an immutable pricing record.
	InsertQuote(ctx context.Context, quote *model.Quote) error

	// GetQuotesByModel returns all quotes priced against a model.
	GetQuotesByModel(ctx context.Context, modelID string) ([]model.Quote, error)

	// GetQuotesByTicker returns all quotes for a contract ticker.
	GetQuotesByTicker(ctx context.Context, ticker string) ([]model.Quote, error)
}
