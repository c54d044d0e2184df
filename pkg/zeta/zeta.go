// Package zeta evaluates the Riemann zeta function on the critical line
// s = 0.5 + it.
//
// Two summation methods are provided: Euler-Maclaurin, accurate for any t and
// used by default, and Riemann-Siegel, which is cheaper for large t but only
// valid for t >= 2π. Evaluators never panic on numeric trouble; they return an
// error wrapping ErrNumericFailure so the caller can skip the sample.
package zeta

import (
	"errors"
	"fmt"
	"math"
)

// CriticalLine is the fixed real part of every argument we evaluate.
const CriticalLine = 0.5

const (
	// MinDigits and MaxDigits bound the decimal precision budget. complex128
	// carries just under 16 significant digits, so anything above 15 cannot be
	// honoured and is rejected up front.
	MinDigits     = 6
	MaxDigits     = 15
	DefaultDigits = 15
)

var (
	// ErrNumericFailure is returned when a sum does not converge or produces a
	// non-finite value.
	ErrNumericFailure = errors.New("zeta: numeric failure")
	// ErrInvalidPrecision is returned for a precision budget outside
	// [MinDigits, MaxDigits].
	ErrInvalidPrecision = errors.New("zeta: invalid precision")
)

// Evaluator computes zeta(0.5 + it).
type Evaluator interface {
	Evaluate(t float64) (complex128, error)
}

// Method names an evaluation strategy.
type Method string

const (
	MethodEulerMaclaurin Method = "euler-maclaurin"
	MethodRiemannSiegel  Method = "riemann-siegel"
	MethodAuto           Method = "auto"
)

// DefaultCrossover is the t above which MethodAuto switches to Riemann-Siegel.
const DefaultCrossover = 10_000.0

// New returns the evaluator for method at the given precision budget.
func New(method Method, digits int) (Evaluator, error) {
	return NewWithSum(method, digits, nil)
}

// NewWithSum is New with the Euler-Maclaurin direct sum delegated to sum,
// which may run it in parallel or on other machines. A nil sum is serial.
func NewWithSum(method Method, digits int, sum SumFunc) (Evaluator, error) {
	if err := CheckDigits(digits); err != nil {
		return nil, err
	}
	em := &EulerMaclaurinEvaluator{Digits: digits, Sum: sum}
	switch method {
	case MethodEulerMaclaurin, "":
		return em, nil
	case MethodRiemannSiegel:
		return RiemannSiegelEvaluator{}, nil
	case MethodAuto:
		return &Auto{Low: em, High: RiemannSiegelEvaluator{}, Crossover: DefaultCrossover}, nil
	default:
		return nil, fmt.Errorf("zeta: unknown method %q", method)
	}
}

// CheckDigits validates a precision budget.
func CheckDigits(digits int) error {
	if digits < MinDigits || digits > MaxDigits {
		return fmt.Errorf("%w: %d digits (want %d..%d)", ErrInvalidPrecision, digits, MinDigits, MaxDigits)
	}
	return nil
}

// Auto uses Low below Crossover and High at or above it.
type Auto struct {
	Low       Evaluator
	High      Evaluator
	Crossover float64
}

func (a *Auto) Evaluate(t float64) (complex128, error) {
	if math.Abs(t) < a.Crossover {
		return a.Low.Evaluate(t)
	}
	return a.High.Evaluate(t)
}

// Func adapts a plain function to the Evaluator interface.
type Func func(t float64) (complex128, error)

func (f Func) Evaluate(t float64) (complex128, error) { return f(t) }

func isBad(z complex128) bool {
	return math.IsNaN(real(z)) || math.IsNaN(imag(z)) ||
		math.IsInf(real(z), 0) || math.IsInf(imag(z), 0)
}

// finite turns a non-finite result into ErrNumericFailure.
func finite(z complex128, t float64) (complex128, error) {
	if isBad(z) {
		return 0, fmt.Errorf("%w: non-finite value at t=%g", ErrNumericFailure, t)
	}
	return z, nil
}
