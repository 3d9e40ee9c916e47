// Package parity implements no-arbitrage sanity checks on priced lattices.
//
// Backward induction is linear, so a European call and put priced on the
// same model and horizon must satisfy put-call parity exactly (up to float
// accumulation). American values can never sit below their European
// counterparts. Violations indicate a corrupted lattice or a mispriced
// request and are surfaced as errors for the caller to log or reject on.
package parity

import (
	"errors"
	"fmt"
	"math"

	"github.com/optx/lattice-engine/internal/lattice"
)

var (
	// ErrParityViolated is returned when a call/put pair breaks put-call
	// parity beyond the configured tolerance.
	ErrParityViolated = errors.New("parity: put-call parity violated")

	// ErrEarlyExerciseNegative is returned when an American value lattice
	// sits below its European counterpart anywhere.
	ErrEarlyExerciseNegative = errors.New("parity: american value below european")
)

// DefaultTolerance bounds the acceptable absolute parity residual. The
// identity is exact in real arithmetic; the tolerance only absorbs float
// accumulation over the induction.
const DefaultTolerance = 1e-9

// Checker validates priced lattices against no-arbitrage identities.
type Checker struct {
	// Tolerance is the maximum absolute residual accepted by CheckPutCall.
	Tolerance float64
}

// NewChecker creates a checker with the given tolerance; non-positive
// values fall back to DefaultTolerance.
func NewChecker(tolerance float64) *Checker {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Checker{Tolerance: tolerance}
}

// CheckPutCall verifies the parity identity for European lattices priced
// on m over the given horizon:
//
//	call - put = spot*exp(-b*tau) - strike*RInv^horizon
//
// where tau = horizon * TTM/Periods. With zero carry this is the textbook
// spot - strike*discount form. Returns nil when the residual is within
// tolerance.
func (c *Checker) CheckPutCall(m *lattice.Model, call, put *lattice.ValueLattice, spot, strike float64, horizon int) error {
	if call == nil || put == nil {
		return fmt.Errorf("%w: missing call or put lattice", ErrParityViolated)
	}
	if call.Horizon() != horizon || put.Horizon() != horizon {
		return fmt.Errorf("%w: lattice horizons %d/%d do not match %d",
			ErrParityViolated, call.Horizon(), put.Horizon(), horizon)
	}

	tau := float64(horizon) * m.TTM / float64(m.Periods)
	forward := spot*math.Exp(-m.Carry*tau) - strike*math.Pow(m.RInv, float64(horizon))
	residual := (call.At(0, 0) - put.At(0, 0)) - forward

	if math.Abs(residual) > c.Tolerance {
		return fmt.Errorf("%w: residual %.3e exceeds tolerance %.3e (C=%g P=%g forward=%g)",
			ErrParityViolated, residual, c.Tolerance, call.At(0, 0), put.At(0, 0), forward)
	}
	return nil
}

// CheckEarlyExercise verifies that the American value dominates the
// European one at every shared node. The early-exercise override is a
// pointwise max, so any negative premium means the lattices were not
// priced from the same inputs.
func (c *Checker) CheckEarlyExercise(american, european *lattice.ValueLattice) error {
	if american == nil || european == nil {
		return fmt.Errorf("%w: missing lattice", ErrEarlyExerciseNegative)
	}
	if american.Horizon() != european.Horizon() {
		return fmt.Errorf("%w: horizons %d and %d differ",
			ErrEarlyExerciseNegative, american.Horizon(), european.Horizon())
	}

	for j := 0; j <= american.Horizon(); j++ {
		for i := 0; i <= j; i++ {
			if american.At(i, j) < european.At(i, j)-c.Tolerance {
				return fmt.Errorf("%w: node (%d,%d) american=%g european=%g",
					ErrEarlyExerciseNegative, i, j, american.At(i, j), european.At(i, j))
			}
		}
	}
	return nil
}
