// Package model defines the core domain types shared across the pricing engine.
// All monetary values use shopspring/decimal — never float64 for money. Model
// parameters (rates, volatility, probabilities) are float64 because they feed
// transcendental math, not ledgers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ModelSpec is the persisted record of a built lattice model: the inputs
// (Rate and Carry continuously compounded, TTM in years, Periods lattice
// steps, Sigma annualized volatility) plus the derived per-step factors
// (Up, Down, the risk-neutral Prob, and FuturesRate = exp((r-b)*T)), so a
// stored model can be inspected and rebuilt deterministically without
// re-deriving anything.
type ModelSpec struct {
	ID          string    `json:"id" db:"id"`
	Rate        float64   `json:"rate" db:"rate"`
	Carry       float64   `json:"carry" db:"carry"`
	Periods     int       `json:"periods" db:"periods"`
	TTM         float64   `json:"ttm" db:"ttm"`
	Sigma       float64   `json:"sigma" db:"sigma"`
	Up          float64   `json:"up" db:"up"`
	Down        float64   `json:"down" db:"down"`
	Prob        float64   `json:"prob" db:"prob"`
	FuturesRate float64   `json:"futures_rate" db:"futures_rate"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Quote is an immutable record of one pricing run against a model.
// Once created, these are never modified or deleted. Ticker is optional,
// Style holds a lattice.Style value, and Horizon is the number of periods
// the quote was priced over.
type Quote struct {
	ID        string          `json:"id" db:"id"`
	ModelID   string          `json:"model_id" db:"model_id"`
	Ticker    string          `json:"ticker,omitempty" db:"ticker"`
	Style     string          `json:"style" db:"style"`
	Spot      decimal.Decimal `json:"spot" db:"spot"`
	Strike    decimal.Decimal `json:"strike" db:"strike"`
	Horizon   int             `json:"horizon" db:"horizon"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}
