package parity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/optx/lattice-engine/internal/lattice"
)

func mustModel(t *testing.T, rate, carry float64, periods int, ttm, sigma float64) *lattice.Model {
	t.Helper()
	m, err := lattice.NewModel(rate, carry, periods, ttm, sigma)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func priceStyles(t *testing.T, m *lattice.Model, spot, strike float64, styles ...lattice.Style) map[lattice.Style]*lattice.ValueLattice {
	t.Helper()
	out, err := m.Price(decimal.NewFromFloat(spot), decimal.NewFromFloat(strike), styles...)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	return out
}

func TestCheckPutCall_Holds(t *testing.T) {
	tests := []struct {
		name                    string
		rate, carry, ttm, sigma float64
		periods                 int
		spot, strike            float64
	}{
		{"baseline", 0.02, 0.01, 0.25, 0.3, 15, 100, 100},
		{"zero carry", 0.05, 0, 1, 0.2, 50, 120, 95},
		{"negative carry", 0.03, -0.02, 0.5, 0.4, 25, 80, 100},
	}
	checker := NewChecker(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustModel(t, tt.rate, tt.carry, tt.periods, tt.ttm, tt.sigma)
			out := priceStyles(t, m, tt.spot, tt.strike, lattice.EuropeanCall, lattice.EuropeanPut)
			err := checker.CheckPutCall(m, out[lattice.EuropeanCall], out[lattice.EuropeanPut],
				tt.spot, tt.strike, m.Periods)
			if err != nil {
				t.Errorf("parity should hold: %v", err)
			}
		})
	}
}

func TestCheckPutCall_ShorterHorizon(t *testing.T) {
	m := mustModel(t, 0.02, 0.01, 15, 0.25, 0.3)
	out, err := m.PriceToHorizon(decimal.NewFromInt(100), decimal.NewFromInt(100), 10,
		lattice.EuropeanCall, lattice.EuropeanPut)
	if err != nil {
		t.Fatalf("PriceToHorizon: %v", err)
	}
	checker := NewChecker(0)
	if err := checker.CheckPutCall(m, out[lattice.EuropeanCall], out[lattice.EuropeanPut], 100, 100, 10); err != nil {
		t.Errorf("parity should hold at horizon 10: %v", err)
	}
}

func TestCheckPutCall_DetectsViolation(t *testing.T) {
	m := mustModel(t, 0.02, 0, 15, 0.25, 0.3)
	out := priceStyles(t, m, 100, 100, lattice.EuropeanCall, lattice.EuropeanPut)

	checker := NewChecker(0)
	// An American put in the European put's slot breaks the identity: its
	// early-exercise premium shows up as a parity residual.
	badPut := priceStyles(t, m, 100, 150, lattice.AmericanPut)[lattice.AmericanPut]
	err := checker.CheckPutCall(m, out[lattice.EuropeanCall], badPut, 100, 100, m.Periods)
	if !errors.Is(err, ErrParityViolated) {
		t.Errorf("expected ErrParityViolated, got %v", err)
	}
}

func TestCheckPutCall_MismatchedHorizon(t *testing.T) {
	m := mustModel(t, 0.02, 0, 15, 0.25, 0.3)
	out := priceStyles(t, m, 100, 100, lattice.EuropeanCall, lattice.EuropeanPut)

	checker := NewChecker(0)
	err := checker.CheckPutCall(m, out[lattice.EuropeanCall], out[lattice.EuropeanPut], 100, 100, 5)
	if !errors.Is(err, ErrParityViolated) {
		t.Errorf("expected ErrParityViolated for horizon mismatch, got %v", err)
	}
}

func TestCheckEarlyExercise_Holds(t *testing.T) {
	m := mustModel(t, 0.05, 0, 20, 1, 0.3)
	out := priceStyles(t, m, 100, 110, lattice.EuropeanPut, lattice.AmericanPut)

	checker := NewChecker(0)
	if err := checker.CheckEarlyExercise(out[lattice.AmericanPut], out[lattice.EuropeanPut]); err != nil {
		t.Errorf("american put should dominate european: %v", err)
	}
}

func TestCheckEarlyExercise_DetectsInversion(t *testing.T) {
	m := mustModel(t, 0.05, 0, 20, 1, 0.3)
	out := priceStyles(t, m, 100, 150, lattice.EuropeanPut, lattice.AmericanPut)

	checker := NewChecker(0)
	// Swapped arguments: the european lattice cannot dominate a deep
	// in-the-money american put.
	err := checker.CheckEarlyExercise(out[lattice.EuropeanPut], out[lattice.AmericanPut])
	if !errors.Is(err, ErrEarlyExerciseNegative) {
		t.Errorf("expected ErrEarlyExerciseNegative, got %v", err)
	}
}

func TestNewChecker_DefaultTolerance(t *testing.T) {
	if c := NewChecker(0); c.Tolerance != DefaultTolerance {
		t.Errorf("zero tolerance should default, got %g", c.Tolerance)
	}
	if c := NewChecker(-1); c.Tolerance != DefaultTolerance {
		t.Errorf("negative tolerance should default, got %g", c.Tolerance)
	}
	if c := NewChecker(1e-6); c.Tolerance != 1e-6 {
		t.Errorf("explicit tolerance should stick, got %g", c.Tolerance)
	}
}
