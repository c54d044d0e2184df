package zeta

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Constants for the Euler-Maclaurin summation
const (
	MinN = 10
	MaxN = 1_000_000
)

// bernoulli holds B2, B4, ..., B30.
var bernoulli = [...]float64{
	1.0 / 6,
	-1.0 / 30,
	1.0 / 42,
	-1.0 / 30,
	5.0 / 66,
	-691.0 / 2730,
	7.0 / 6,
	-3617.0 / 510,
	43867.0 / 798,
	-174611.0 / 330,
	854513.0 / 138,
	-236364091.0 / 2730,
	8553103.0 / 6,
	-23749461029.0 / 870,
	8615841276005.0 / 14322,
}

// EulerMaclaurinEvaluator sums zeta(s) directly up to N-1 and closes the tail
// with the integral term, the half term and Bernoulli corrections until a
// correction drops below 10^-Digits.
type EulerMaclaurinEvaluator struct {
	Digits int
	// Sum computes the direct part. Nil means a serial compensated sum.
	Sum SumFunc
}

// SumFunc returns sum_{k=start}^{end-1} k^(-s).
type SumFunc func(s complex128, start, end int) (complex128, error)

func serialSum(s complex128, start, end int) (complex128, error) {
	return directSum(s, start, end), nil
}

// Evaluate returns zeta(0.5 + it).
func (e *EulerMaclaurinEvaluator) Evaluate(t float64) (complex128, error) {
	digits := e.Digits
	if digits == 0 {
		digits = DefaultDigits
	}
	sum := e.Sum
	if sum == nil {
		sum = serialSum
	}
	z, _, _, err := eulerMaclaurin(complex(CriticalLine, t), digits, sum)
	if err != nil {
		return 0, err
	}
	return finite(z, t)
}

// EulerMaclaurin computes zeta(s) at the default precision. It returns the
// value, the number of correction terms used and the size of the last
// correction. On failure the value is NaN.
func EulerMaclaurin(s complex128) (complex128, int, float64) {
	z, iter, diff, err := eulerMaclaurin(s, DefaultDigits, serialSum)
	if err != nil {
		return cmplx.NaN(), iter, diff
	}
	return z, iter, diff
}

// Terms returns the N used for s: the direct sum covers 1..N-1. N grows with
// |s| so the Bernoulli corrections keep shrinking.
func Terms(s complex128) (int, error) {
	N := MinN + int(math.Ceil(cmplx.Abs(s)))
	if N > MaxN {
		return 0, fmt.Errorf("%w: |s|=%g needs more than %d terms", ErrNumericFailure, cmplx.Abs(s), MaxN)
	}
	return N, nil
}

func eulerMaclaurin(s complex128, digits int, direct SumFunc) (complex128, int, float64, error) {
	if s == 1 {
		return 0, 0, 0, fmt.Errorf("%w: pole at s=1", ErrNumericFailure)
	}
	N, err := Terms(s)
	if err != nil {
		return 0, 0, 0, err
	}

	sum, err := direct(s, 1, N)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: direct sum: %v", ErrNumericFailure, err)
	}

	// Tail: N^(1-s)/(s-1) + N^(-s)/2
	nf := float64(N)
	nPowS := power(nf, s) // N^(-s)
	sum += nPowS*complex(nf, 0)/(s-1) + 0.5*nPowS

	// Bernoulli corrections:
	// T_k = B_2k/(2k)! * s(s+1)...(s+2k-2) * N^(-s-2k+1)
	tol := math.Pow(10, -float64(digits))
	prod := s
	pow := nPowS / complex(nf, 0)
	fact := 2.0
	prev := math.Inf(1)
	var diff float64
	for k := 1; k <= len(bernoulli); k++ {
		term := complex(bernoulli[k-1]/fact, 0) * prod * pow
		diff = cmplx.Abs(term)
		if diff > prev {
			return 0, k, diff, fmt.Errorf("%w: corrections diverge at k=%d for s=%v", ErrNumericFailure, k, s)
		}
		sum += term
		if diff < tol {
			return sum, k, diff, nil
		}
		prev = diff

		j := complex(float64(2*k), 0)
		prod *= (s + j - 1) * (s + j)
		pow /= complex(nf*nf, 0)
		fact *= float64(2*k+1) * float64(2*k+2)
	}
	return 0, len(bernoulli), diff, fmt.Errorf("%w: no convergence for s=%v (last correction %g)", ErrNumericFailure, s, diff)
}

// power returns n^(-s) for a positive integer n without going through the
// general complex power.
func power(n float64, s complex128) complex128 {
	ln := math.Log(n)
	mag := math.Exp(-real(s) * ln)
	sin, cos := math.Sincos(imag(s) * ln)
	return complex(mag*cos, -mag*sin)
}

// PartialSum returns sum_{k=start}^{end-1} k^(-s). It is the unit of work
// handed to parallel and remote summers.
func PartialSum(s complex128, start, end int) complex128 { return directSum(s, start, end) }

// directSum returns sum_{k=start}^{end-1} k^(-s) using Neumaier compensated
// summation on each component, which keeps cancellation error out of the
// small values we care about near zeros.
func directSum(s complex128, start, end int) complex128 {
	var re, im neumaier
	for k := start; k < end; k++ {
		term := power(float64(k), s)
		re.add(real(term))
		im.add(imag(term))
	}
	return complex(re.sum(), im.sum())
}

type neumaier struct {
	s, c float64
}

func (n *neumaier) add(x float64) {
	t := n.s + x
	if math.Abs(n.s) >= math.Abs(x) {
		n.c += (n.s - t) + x
	} else {
		n.c += (x - t) + n.s
	}
	n.s = t
}

func (n *neumaier) sum() float64 { return n.s + n.c }

// Links returns the running totals of the direct sum for s, one per term,
// up to the N that Euler-Maclaurin would use. Plotted, they trace the
// familiar spiral whose centre is approached by zeta(s).
func Links(s complex128) ([]complex128, error) {
	N, err := Terms(s)
	if err != nil {
		return nil, err
	}
	links := make([]complex128, 0, N-1)
	var re, im neumaier
	for k := 1; k < N; k++ {
		term := power(float64(k), s)
		re.add(real(term))
		im.add(imag(term))
		links = append(links, complex(re.sum(), im.sum()))
	}
	return links, nil
}
