package lattice

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ValueLattice holds the option value at every node of a priced contract.
// Cell (0, 0) is the option's present value; intermediate columns are kept
// because downstream composition (chooser and compound instruments) needs
// the full value surface, not only the root.
type ValueLattice struct {
	horizon int
	cells   *TriMatrix
}

// Horizon returns the number of periods the lattice covers.
func (v *ValueLattice) Horizon() int {
	return v.horizon
}

// At returns the option value at node (i downs, j steps).
func (v *ValueLattice) At(i, j int) float64 {
	return v.cells.At(i, j)
}

// Root returns the option's present value, rounded to PriceScale.
func (v *ValueLattice) Root() decimal.Decimal {
	return decimal.NewFromFloat(v.cells.At(0, 0)).Round(PriceScale)
}

// Columns returns the value lattice as jagged columns.
func (v *ValueLattice) Columns() [][]float64 {
	return v.cells.Columns()
}

// Price runs backward induction over the model's full period count for
// each requested style. See PriceToHorizon.
func (m *Model) Price(spot, strike decimal.Decimal, styles ...Style) (map[Style]*ValueLattice, error) {
	return m.PriceToHorizon(spot, strike, m.Periods, styles...)
}

// PriceToHorizon prices the requested styles over the first horizon
// periods of the model. A horizon shorter than the model's period count
// lets one model price options of varying maturities; horizon must satisfy
// 0 <= horizon <= Periods (never silently clamped). At least one style is
// required and every style must be known — validation happens before any
// lattice is computed, so a call either returns all requested lattices or
// none.
//
// Non-positive spot or strike values are not rejected: they produce
// degenerate but well-defined payoffs (e.g. a call on a worthless
// underlying is worth zero everywhere).
func (m *Model) PriceToHorizon(spot, strike decimal.Decimal, horizon int, styles ...Style) (map[Style]*ValueLattice, error) {
	if horizon < 0 || horizon > m.Periods {
		return nil, fmt.Errorf("%w: horizon %d outside [0,%d]", ErrInvalidParameter, horizon, m.Periods)
	}
	if len(styles) == 0 {
		return nil, fmt.Errorf("%w: at least one option style is required", ErrInvalidParameter)
	}
	for _, st := range styles {
		if !st.valid() {
			return nil, fmt.Errorf("%w: unknown option style %q", ErrInvalidParameter, st)
		}
	}

	s := spot.InexactFloat64()
	x := strike.InexactFloat64()

	out := make(map[Style]*ValueLattice, len(styles))
	for _, st := range styles {
		out[st] = m.priceOne(s, x, horizon, st)
	}
	return out, nil
}

// Chooser composes a chooser option from already-priced call and put value
// lattices sharing a horizon: at column chooseAt the holder selects the
// more valuable side, and the seeded column is discounted back to time
// zero through the usual induction.
func (m *Model) Chooser(call, put *ValueLattice, chooseAt int) (*ValueLattice, error) {
	if call == nil || put == nil {
		return nil, fmt.Errorf("%w: chooser requires both call and put lattices", ErrInvalidParameter)
	}
	if call.Horizon() != put.Horizon() {
		return nil, fmt.Errorf("%w: chooser lattices have mismatched horizons %d and %d",
			ErrInvalidParameter, call.Horizon(), put.Horizon())
	}
	if chooseAt < 0 || chooseAt > call.Horizon() {
		return nil, fmt.Errorf("%w: choose column %d outside [0,%d]",
			ErrInvalidParameter, chooseAt, call.Horizon())
	}

	cells := NewTriMatrix(chooseAt)
	for i := 0; i <= chooseAt; i++ {
		cells.Set(i, chooseAt, math.Max(call.At(i, chooseAt), put.At(i, chooseAt)))
	}
	inductColumns(cells, chooseAt, m.RInv, m.Q, m.QInv, nil)

	return &ValueLattice{horizon: chooseAt, cells: cells}, nil
}

// priceOne builds one value lattice. European payoff depends only on the
// terminal node, so only the terminal column is seeded and induction fills
// the rest. American styles inject an early-exercise override comparing
// the node's intrinsic value against the already-discounted continuation
// value at that exact node.
func (m *Model) priceOne(spot, strike float64, horizon int, style Style) *ValueLattice {
	cells := NewTriMatrix(horizon)
	isCall := style.IsCall()

	for i := 0; i <= horizon; i++ {
		cells.Set(i, horizon, m.intrinsicAt(spot, strike, i, horizon, isCall))
	}

	var override func(i, j int, cont float64) float64
	if style.IsAmerican() {
		override = func(i, j int, cont float64) float64 {
			return math.Max(m.intrinsicAt(spot, strike, i, j, isCall), cont)
		}
	}
	inductColumns(cells, horizon, m.RInv, m.Q, m.QInv, override)

	return &ValueLattice{horizon: horizon, cells: cells}
}

// intrinsicAt is the immediate exercise payoff at node (i, j) for an
// underlying worth spot * rateAt(i, j).
func (m *Model) intrinsicAt(spot, strike float64, i, j int, isCall bool) float64 {
	price := spot * m.sRate.At(i, j)
	if isCall {
		return math.Max(price-strike, 0)
	}
	return math.Max(strike-price, 0)
}

// inductColumns applies the canonical two-leaf backward recurrence
//
//	cells[i][j] = scalar * (q*cells[i][j+1] + qInv*cells[i+1][j+1])
//
// for columns j = from-1 down to 0, given column `from` is already seeded.
// scalar is the per-step discount (RInv for option values, 1 for the
// futures ratio lattice). When override is non-nil it is applied to each
// node's continuation value — the early-exercise hook for American styles.
func inductColumns(cells *TriMatrix, from int, scalar, q, qInv float64, override func(i, j int, cont float64) float64) {
	for j := from - 1; j >= 0; j-- {
		for i := j; i >= 0; i-- {
			cont := scalar * (q*cells.At(i, j+1) + qInv*cells.At(i+1, j+1))
			if override != nil {
				cont = override(i, j, cont)
			}
			cells.Set(i, j, cont)
		}
	}
}
