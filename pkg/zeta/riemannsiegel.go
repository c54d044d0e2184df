package zeta

import (
	"fmt"
	"math"
	"math/cmplx"
)

// RiemannSiegelEvaluator approximates zeta(0.5+it) as Z(t)·e^(-iθ(t)) using
// the Riemann-Siegel main sum and the first two remainder coefficients.
type RiemannSiegelEvaluator struct{}

// Evaluate returns zeta(0.5 + it). It fails for t < 2π where the main sum
// is empty.
func (RiemannSiegelEvaluator) Evaluate(t float64) (complex128, error) {
	total, _, err := RiemannSiegelWithLinks(t)
	if err != nil {
		return 0, err
	}
	return finite(total, t)
}

// Theta is the Riemann-Siegel theta function, asymptotic form.
func Theta(t float64) float64 {
	v := t/2*math.Log(t/(2*math.Pi)) - t/2 - math.Pi/8
	v += 1/(48*t) + 7/(5760*math.Pow(t, 3)) + 31/(80640*math.Pow(t, 5)) + 127/(430080*math.Pow(t, 7)) + 511/(1216512*math.Pow(t, 9))
	return v
}

// RiemannSiegelWithLinks returns zeta(0.5+it) together with the chain of
// rotated partial sums of the main series; the last link is the corrected
// total.
func RiemannSiegelWithLinks(t float64) (complex128, []complex128, error) {
	if t < 2*math.Pi {
		return 0, nil, fmt.Errorf("%w: riemann-siegel needs t >= 2π, got %g", ErrNumericFailure, t)
	}
	// v = floor(sqrt(t/(2π)))
	v := int(math.Floor(math.Sqrt(t / (2 * math.Pi))))
	V := Theta(t)

	// p = sqrt(t/(2π)) - v
	p := math.Sqrt(t/(2*math.Pi)) - float64(v)
	c0 := psi(p)
	c1 := -psiThirdDerivative(p) / (96 * math.Pi * math.Pi) * math.Pow(t/(2*math.Pi), -0.5)

	sign := 1.0
	if (v-1)%2 != 0 {
		sign = -1.0
	}
	b := sign * math.Pow(2*math.Pi/t, 0.25) * (c0 + c1)

	factor := cmplx.Exp(complex(0, -V))
	links := make([]complex128, v+1)
	cumulative := 0.0
	for k := 0; k < v; k++ {
		cumulative += 1.0 / math.Sqrt(float64(k+1)) * math.Cos(V-t*math.Log(float64(k+1)))
		links[k] = complex(2*cumulative, 0) * factor
	}
	total := complex(2*cumulative+b, 0) * factor
	links[v] = total
	return total, links, nil
}

// psi is cos(2π(p²-p-1/16))/cos(2πp). The poles of the denominator at
// p = 1/4 and 3/4 are removable; step around them.
func psi(p float64) float64 {
	den := math.Cos(2 * math.Pi * p)
	if math.Abs(den) < 1e-9 {
		const h = 1e-6
		return (psi(p-h) + psi(p+h)) / 2
	}
	return math.Cos(2*math.Pi*(p*p-p-1.0/16)) / den
}

// psiThirdDerivative uses a five point central difference.
func psiThirdDerivative(p float64) float64 {
	const h = 1e-3
	return (psi(p+2*h) - 2*psi(p+h) + 2*psi(p-h) - psi(p-2*h)) / (2 * h * h * h)
}
