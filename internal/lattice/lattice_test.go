package lattice

import (
	"errors"
	"math"
	"testing"
)

// --- Constructor tests ---

func TestNewModel_Valid(t *testing.T) {
	m, err := NewModel(0.02, 0.01, 15, 0.25, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Periods != 15 {
		t.Errorf("expected 15 periods, got %d", m.Periods)
	}
	if m.Q <= 0 || m.Q >= 1 {
		t.Errorf("expected q in (0,1), got %g", m.Q)
	}
	if math.Abs(m.Q+m.QInv-1) > 1e-15 {
		t.Errorf("q + qInv should equal 1, got %g", m.Q+m.QInv)
	}
}

func TestNewModel_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		carry   float64
		periods int
		ttm     float64
		sigma   float64
	}{
		{"zero periods", 0.02, 0, 0, 0.25, 0.3},
		{"negative periods", 0.02, 0, -3, 0.25, 0.3},
		{"zero maturity", 0.02, 0, 10, 0, 0.3},
		{"negative maturity", 0.02, 0, 10, -1, 0.3},
		{"zero volatility", 0.02, 0, 10, 0.25, 0},
		{"negative volatility", 0.02, 0, 10, 0.25, -0.3},
		{"NaN maturity", 0.02, 0, 10, math.NaN(), 0.3},
		{"NaN volatility", 0.02, 0, 10, 0.25, math.NaN()},
		{"NaN rate", math.NaN(), 0, 10, 0.25, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(tt.rate, tt.carry, tt.periods, tt.ttm, tt.sigma)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestNewModel_DegenerateProbability(t *testing.T) {
	// Drift overwhelming volatility pushes q outside [0,1]; the model
	// must reject rather than clamp. Large positive carry drags rb below
	// d, a large rate pushes rb above u.
	tests := []struct {
		name  string
		rate  float64
		carry float64
	}{
		{"q below zero", 0, 5},
		{"q above one", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(tt.rate, tt.carry, 1, 4, 0.5)
			if !errors.Is(err, ErrDegenerateModel) {
				t.Errorf("expected ErrDegenerateModel, got %v", err)
			}
		})
	}
}

func TestNewModel_Recombination(t *testing.T) {
	// u*d = 1 must hold for every built model across a parameter grid.
	sigmas := []float64{0.05, 0.2, 0.5, 1.0}
	ttms := []float64{0.1, 0.25, 1, 5}
	periodCounts := []int{1, 2, 15, 100}

	for _, sigma := range sigmas {
		for _, ttm := range ttms {
			for _, n := range periodCounts {
				m, err := NewModel(0.03, 0, n, ttm, sigma)
				if errors.Is(err, ErrDegenerateModel) {
					// Long steps with low volatility legitimately push q
					// past 1; the rejection itself is covered by
					// TestNewModel_DegenerateProbability.
					continue
				}
				if err != nil {
					t.Fatalf("NewModel(sigma=%g, ttm=%g, n=%d): %v", sigma, ttm, n, err)
				}
				if math.Abs(m.U*m.D-1) > 1e-12 {
					t.Errorf("u*d should be 1 (sigma=%g, ttm=%g, n=%d), got %.15f",
						sigma, ttm, n, m.U*m.D)
				}
			}
		}
	}
}

func TestNewModel_CarryBranchCollapses(t *testing.T) {
	// With b = 0, Rb = R, so the carry formula must reproduce the
	// zero-carry probability (R-d)/(u-d) exactly.
	m, err := NewModel(0.04, 0, 20, 0.5, 0.25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Rb != m.R {
		t.Errorf("Rb should equal R when carry is zero: Rb=%g R=%g", m.Rb, m.R)
	}
	want := (m.R - m.D) / (m.U - m.D)
	if math.Abs(m.Q-want) > 1e-15 {
		t.Errorf("q should match the zero-carry formula: got %g want %g", m.Q, want)
	}
}

func TestNewModel_NegativeCarry(t *testing.T) {
	// b < 0 uses the same Rb formula; the model must come out well-defined.
	m, err := NewModel(0.02, -0.03, 12, 0.5, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Q <= 0 || m.Q >= 1 {
		t.Errorf("expected q in (0,1) for moderate negative carry, got %g", m.Q)
	}
	if m.Rb <= m.R {
		t.Errorf("negative carry should raise the growth factor: Rb=%g R=%g", m.Rb, m.R)
	}
}

// --- Rate lattice tests ---

func TestModel_RateLattice(t *testing.T) {
	m, err := NewModel(0.02, 0, 4, 1, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.RateAt(0, 0) != 1 {
		t.Errorf("root ratio should be 1, got %g", m.RateAt(0, 0))
	}

	// Spot checks against the closed form u^(j-i) * d^i.
	for j := 0; j <= 4; j++ {
		for i := 0; i <= j; i++ {
			want := math.Pow(m.U, float64(j-i)) * math.Pow(m.D, float64(i))
			if math.Abs(m.RateAt(i, j)-want) > 1e-12 {
				t.Errorf("rate(%d,%d) = %g, want %g", i, j, m.RateAt(i, j), want)
			}
		}
	}

	// Recombination: one up then one down lands back at ratio 1.
	if math.Abs(m.RateAt(1, 2)-1) > 1e-12 {
		t.Errorf("up-down node should recombine to ratio 1, got %g", m.RateAt(1, 2))
	}
}

func TestModel_FuturesRateClosedForm(t *testing.T) {
	// Each induction step takes expectation with weights (q, 1-q), and
	// E[step ratio] = q*u + (1-q)*d = Rb, so fRate[0][0] = Rb^n = exp((r-b)*T).
	tests := []struct {
		rate, carry, ttm, sigma float64
		periods                 int
	}{
		{0.02, 0.01, 0.25, 0.3, 15},
		{0.05, 0, 1, 0.2, 50},
		{0.03, -0.02, 0.5, 0.4, 25},
	}
	for _, tt := range tests {
		m, err := NewModel(tt.rate, tt.carry, tt.periods, tt.ttm, tt.sigma)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := math.Exp((tt.rate - tt.carry) * tt.ttm)
		if math.Abs(m.FuturesRate()-want) > 1e-9 {
			t.Errorf("futures rate = %.12f, want %.12f (r=%g b=%g)",
				m.FuturesRate(), want, tt.rate, tt.carry)
		}
	}
}

func TestModel_FuturesLatticeTerminalColumn(t *testing.T) {
	m, err := NewModel(0.02, 0.01, 6, 0.5, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The futures lattice's terminal column is a copy of the rate lattice's.
	for i := 0; i <= 6; i++ {
		if m.FuturesAt(i, 6) != m.RateAt(i, 6) {
			t.Errorf("terminal futures cell (%d,6) should copy the rate lattice", i)
		}
	}
}

// --- Style tests ---

func TestParseStyle(t *testing.T) {
	tests := []struct {
		tag  string
		want Style
	}{
		{"ce", EuropeanCall},
		{"pe", EuropeanPut},
		{"ca", AmericanCall},
		{"pa", AmericanPut},
		{"CE", EuropeanCall},
		{" pa ", AmericanPut},
		{"EUROPEAN_CALL", EuropeanCall},
		{"american_put", AmericanPut},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.tag)
		if err != nil {
			t.Errorf("ParseStyle(%q): unexpected error %v", tt.tag, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStyle(%q) = %s, want %s", tt.tag, got, tt.want)
		}
	}
}

func TestParseStyle_Unknown(t *testing.T) {
	for _, tag := range []string{"", "cc", "straddle", "EUROPEAN"} {
		if _, err := ParseStyle(tag); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("ParseStyle(%q): expected ErrInvalidParameter, got %v", tag, err)
		}
	}
}

func TestStyle_Predicates(t *testing.T) {
	if !EuropeanCall.IsCall() || AmericanPut.IsCall() {
		t.Error("IsCall misclassifies styles")
	}
	if !AmericanCall.IsAmerican() || EuropeanPut.IsAmerican() {
		t.Error("IsAmerican misclassifies styles")
	}
}

// --- TriMatrix tests ---

func TestTriMatrix_SetGet(t *testing.T) {
	tm := NewTriMatrix(3)
	if tm.N() != 3 {
		t.Fatalf("expected N=3, got %d", tm.N())
	}
	v := 0.0
	for j := 0; j <= 3; j++ {
		for i := 0; i <= j; i++ {
			v++
			tm.Set(i, j, v)
		}
	}
	v = 0.0
	for j := 0; j <= 3; j++ {
		for i := 0; i <= j; i++ {
			v++
			if tm.At(i, j) != v {
				t.Errorf("cell (%d,%d) = %g, want %g", i, j, tm.At(i, j), v)
			}
		}
	}
}

func TestTriMatrix_ColumnIsCopy(t *testing.T) {
	tm := NewTriMatrix(2)
	tm.Set(0, 2, 7)
	col := tm.Column(2)
	if len(col) != 3 {
		t.Fatalf("column 2 should have 3 cells, got %d", len(col))
	}
	col[0] = 99
	if tm.At(0, 2) != 7 {
		t.Error("mutating a returned column must not affect the matrix")
	}
}

func TestTriMatrix_LowerTrianglePanics(t *testing.T) {
	tm := NewTriMatrix(4)
	defer func() {
		if recover() == nil {
			t.Error("reading below the diagonal should panic")
		}
	}()
	tm.At(3, 1)
}
