package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/optx/lattice-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision;
// model parameters are DOUBLE PRECISION since they only feed float math.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateModel(ctx context.Context, m *model.ModelSpec) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lattice_models (id, rate, carry, periods, ttm, sigma, up_factor, down_factor, prob, futures_rate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.Rate, m.Carry, m.Periods, m.TTM, m.Sigma,
		m.Up, m.Down, m.Prob, m.FuturesRate, m.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetModel(ctx context.Context, id string) (*model.ModelSpec, error) {
	var m model.ModelSpec

	err := s.pool.QueryRow(ctx,
		`SELECT id, rate, carry, periods, ttm, sigma,
		        up_factor, down_factor, prob, futures_rate, created_at
		 FROM lattice_models WHERE id = $1`, id).
		Scan(&m.ID, &m.Rate, &m.Carry, &m.Periods, &m.TTM, &m.Sigma,
			&m.Up, &m.Down, &m.Prob, &m.FuturesRate, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: model %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get model %s: %w", id, err)
	}

	return &m, nil
}

func (s *PostgresStore) ListModels(ctx context.Context) ([]model.ModelSpec, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, rate, carry, periods, ttm, sigma,
		        up_factor, down_factor, prob, futures_rate, created_at
		 FROM lattice_models ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []model.ModelSpec
	for rows.Next() {
		var m model.ModelSpec
		if err := rows.Scan(&m.ID, &m.Rate, &m.Carry, &m.Periods, &m.TTM, &m.Sigma,
			&m.Up, &m.Down, &m.Prob, &m.FuturesRate, &m.CreatedAt); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

func (s *PostgresStore) InsertQuote(ctx context.Context, q *model.Quote) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quotes (id, model_id, ticker, style, spot, strike, horizon, price, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8::NUMERIC, $9)`,
		q.ID, q.ModelID, q.Ticker, q.Style,
		q.Spot.String(), q.Strike.String(), q.Horizon, q.Price.String(),
		q.Timestamp,
	)
	return err
}

func (s *PostgresStore) GetQuotesByModel(ctx context.Context, modelID string) ([]model.Quote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, model_id, ticker, style,
		        spot::TEXT, strike::TEXT, horizon, price::TEXT, timestamp
		 FROM quotes WHERE model_id = $1 ORDER BY timestamp`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuotes(rows)
}

func (s *PostgresStore) GetQuotesByTicker(ctx context.Context, ticker string) ([]model.Quote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, model_id, ticker, style,
		        spot::TEXT, strike::TEXT, horizon, price::TEXT, timestamp
		 FROM quotes WHERE ticker = $1 ORDER BY timestamp`, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// scanQuotes reads pgx rows into Quote slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanQuotes(rows pgxRows) ([]model.Quote, error) {
	var quotes []model.Quote
	for rows.Next() {
		var q model.Quote
		var spotS, strikeS, priceS string

		if err := rows.Scan(&q.ID, &q.ModelID, &q.Ticker, &q.Style,
			&spotS, &strikeS, &q.Horizon, &priceS, &q.Timestamp); err != nil {
			return nil, err
		}

		q.Spot, _ = decimal.NewFromString(spotS)
		q.Strike, _ = decimal.NewFromString(strikeS)
		q.Price, _ = decimal.NewFromString(priceS)

		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
