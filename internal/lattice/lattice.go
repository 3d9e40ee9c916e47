// Package lattice implements a recombining binomial (Cox-Ross-Rubinstein)
// lattice for pricing European and American options on stock or futures
// underlyings.
//
// The model derives discrete per-step up/down factors and a risk-neutral
// probability from continuous Black-Scholes inputs:
//
//	u = exp(sigma * sqrt(T/n)),  d = 1/u  (so u*d = 1, the tree recombines)
//	q = (Rb - d) / (u - d),      Rb = exp((r - b) * T/n)
//
// where r is the risk-free rate and b the continuous cost-of-carry. For
// b = 0 the Rb formula collapses to the plain (R - d)/(u - d) rule, so a
// single formula covers zero, positive, and negative carry.
//
// All monetary values use shopspring/decimal at the API boundary — never
// float64 for money. Internal transcendental math and lattice fills use
// float64, with reported prices immediately converted to decimal.
//
// Reference: Cox, J., Ross, S., Rubinstein, M. (1979)
// "Option Pricing: A Simplified Approach"
package lattice

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidParameter is returned for inputs the model rejects
	// outright: non-positive period counts, maturities, or volatilities,
	// horizons exceeding the model's period count, and empty or unknown
	// style sets.
	ErrInvalidParameter = errors.New("lattice: invalid parameter")

	// ErrDegenerateModel is returned when a parameter combination produces
	// a numerically degenerate tree: u == d (division by zero in the
	// probability formula) or a risk-neutral probability outside [0, 1].
	// Degeneracy is surfaced rather than clamped — a clamped q silently
	// misprices every node.
	ErrDegenerateModel = errors.New("lattice: degenerate model")
)

// PriceScale is the number of decimal places for reported option prices.
var PriceScale int32 = 8

// Style identifies an option exercise style and payoff direction.
type Style string

// The closed set of supported option styles.
const (
	EuropeanCall Style = "EUROPEAN_CALL"
	EuropeanPut  Style = "EUROPEAN_PUT"
	AmericanCall Style = "AMERICAN_CALL"
	AmericanPut  Style = "AMERICAN_PUT"
)

// AllStyles lists every supported style.
var AllStyles = []Style{EuropeanCall, EuropeanPut, AmericanCall, AmericanPut}

// styleTags maps legacy short tags to styles. The short tags are the
// historical two-letter flags (call/put x european/american).
var styleTags = map[string]Style{
	"ce":            EuropeanCall,
	"pe":            EuropeanPut,
	"ca":            AmericanCall,
	"pa":            AmericanPut,
	"european_call": EuropeanCall,
	"european_put":  EuropeanPut,
	"american_call": AmericanCall,
	"american_put":  AmericanPut,
}

// ParseStyle resolves a style tag ("ce", "pe", "ca", "pa" or a full name
// like "EUROPEAN_CALL") into a Style. Unknown tags are rejected.
func ParseStyle(tag string) (Style, error) {
	if s, ok := styleTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown option style %q", ErrInvalidParameter, tag)
}

// IsCall reports whether the style pays max(S - X, 0) at exercise.
func (s Style) IsCall() bool {
	return s == EuropeanCall || s == AmericanCall
}

// IsAmerican reports whether the style permits early exercise.
func (s Style) IsAmerican() bool {
	return s == AmericanCall || s == AmericanPut
}

func (s Style) valid() bool {
	switch s {
	case EuropeanCall, EuropeanPut, AmericanCall, AmericanPut:
		return true
	}
	return false
}

// Model is an immutable binomial lattice model. It is built once by
// NewModel and only read thereafter; pricing calls never mutate it, so a
// single Model may serve any number of concurrent pricing requests.
//
// The rate lattice holds the multiplicative ratio to the initial
// underlying price after j total steps with i down-moves:
//
//	sRate[i][j] = u^(j-i) * d^i,  0 <= i <= j <= Periods
//
// The futures lattice is the rate lattice's terminal column backward-
// inducted with weights (q, 1-q) and no discounting — the ratio for a
// futures-style underlying.
type Model struct {
	Rate    float64 // risk-free rate r
	Carry   float64 // cost-of-carry b
	Periods int     // period count n
	TTM     float64 // time to maturity in years
	Sigma   float64 // volatility

	R    float64 // per-period growth exp(r*T/n)
	RInv float64 // 1/R, the per-period discount factor
	Rb   float64 // per-period carry-adjusted growth exp((r-b)*T/n)
	U    float64 // up factor
	D    float64 // down factor, 1/U
	Q    float64 // risk-neutral up-probability
	QInv float64 // 1 - Q

	sRate *TriMatrix
	fRate *TriMatrix
}

// NewModel builds a lattice model from continuous-time parameters.
// Preconditions: periods >= 1, ttm > 0, sigma > 0; violations return
// ErrInvalidParameter. Parameter combinations that push the risk-neutral
// probability outside [0, 1] (large sigma relative to T/n drift, or the
// reverse) return ErrDegenerateModel.
func NewModel(rate, carry float64, periods int, ttm, sigma float64) (*Model, error) {
	if periods < 1 {
		return nil, fmt.Errorf("%w: periods must be >= 1, got %d", ErrInvalidParameter, periods)
	}
	if math.IsNaN(ttm) || ttm <= 0 {
		return nil, fmt.Errorf("%w: time to maturity must be positive, got %g", ErrInvalidParameter, ttm)
	}
	if math.IsNaN(sigma) || sigma <= 0 {
		return nil, fmt.Errorf("%w: volatility must be positive, got %g", ErrInvalidParameter, sigma)
	}
	if math.IsNaN(rate) || math.IsNaN(carry) {
		return nil, fmt.Errorf("%w: rate and carry must be finite", ErrInvalidParameter)
	}

	dt := ttm / float64(periods)
	u := math.Exp(sigma * math.Sqrt(dt))
	d := 1 / u
	if u-d == 0 || math.IsInf(u, 0) {
		return nil, fmt.Errorf("%w: up/down factors collapsed (u=%g, d=%g)", ErrDegenerateModel, u, d)
	}

	r := math.Exp(rate * dt)
	rb := math.Exp((rate - carry) * dt)
	q := (rb - d) / (u - d)
	if math.IsNaN(q) || q < 0 || q > 1 {
		return nil, fmt.Errorf("%w: risk-neutral probability %g outside [0,1]", ErrDegenerateModel, q)
	}

	m := &Model{
		Rate:    rate,
		Carry:   carry,
		Periods: periods,
		TTM:     ttm,
		Sigma:   sigma,
		R:       r,
		RInv:    1 / r,
		Rb:      rb,
		U:       u,
		D:       d,
		Q:       q,
		QInv:    1 - q,
		sRate:   NewTriMatrix(periods),
		fRate:   NewTriMatrix(periods),
	}

	// Rate lattice: ratio after j steps with i down-moves.
	for i := 0; i <= periods; i++ {
		for j := i; j <= periods; j++ {
			m.sRate.Set(i, j, math.Pow(u, float64(j-i))*math.Pow(d, float64(i)))
		}
	}

	// Futures lattice: terminal column copied, then backward-inducted
	// with no discounting (scalar = 1).
	for i := 0; i <= periods; i++ {
		m.fRate.Set(i, periods, m.sRate.At(i, periods))
	}
	inductColumns(m.fRate, periods, 1, q, 1-q, nil)

	return m, nil
}

// RateAt returns the price ratio at node (i downs, j steps).
func (m *Model) RateAt(i, j int) float64 {
	return m.sRate.At(i, j)
}

// FuturesAt returns the futures-adjusted ratio at node (i downs, j steps).
func (m *Model) FuturesAt(i, j int) float64 {
	return m.fRate.At(i, j)
}

// FuturesRate returns the model-implied futures rate at time zero,
// fRate[0][0]. Analytically this equals Rb^Periods = exp((r-b)*T).
func (m *Model) FuturesRate() float64 {
	return m.fRate.At(0, 0)
}

// RateColumns returns the rate lattice as jagged columns.
func (m *Model) RateColumns() [][]float64 {
	return m.sRate.Columns()
}

// FuturesColumns returns the futures lattice as jagged columns.
func (m *Model) FuturesColumns() [][]float64 {
	return m.fRate.Columns()
}
