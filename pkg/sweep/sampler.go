package sweep

import (
	"encoding/json"
	"math"
	"math/cmplx"
	"time"

	"zetawatch/pkg/zeta"
)

// Point is a position on the display surface.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Sample is one evaluation of the sweep. It is never modified after the
// sampler returns it.
type Sample struct {
	Parameter float64    `json:"t"`
	Value     complex128 `json:"-"`
	Magnitude float64    `json:"magnitude"`
	Screen    Point      `json:"screen"`
	At        time.Time  `json:"at"`
}

// MarshalJSON adds the real and imaginary parts, which encoding/json cannot
// represent as a complex number.
func (s Sample) MarshalJSON() ([]byte, error) {
	type plain Sample
	return json.Marshal(struct {
		plain
		Re float64 `json:"re"`
		Im float64 `json:"im"`
	}{plain(s), real(s.Value), imag(s.Value)})
}

// Viewport maps complex values to display coordinates: the origin sits in
// the middle and one unit spans a quarter of the shorter side. Y grows
// downwards, so the imaginary axis is flipped.
type Viewport struct {
	Width, Height float64
}

// DefaultViewportSize is used when the display reports no size.
const DefaultViewportSize = 300

// NewViewport returns a viewport for the display size.
func NewViewport(width, height float64) Viewport {
	if width <= 0 {
		width = DefaultViewportSize
	}
	if height <= 0 {
		height = DefaultViewportSize
	}
	return Viewport{Width: width, Height: height}
}

// Center is the screen position of 0+0i.
func (v Viewport) Center() Point { return Point{X: v.Width / 2, Y: v.Height / 2} }

// Scale is the number of screen units per unit of |z|.
func (v Viewport) Scale() float64 { return math.Min(v.Width, v.Height) / 4 }

// Map converts z to screen coordinates.
func (v Viewport) Map(z complex128) Point {
	c, s := v.Center(), v.Scale()
	return Point{X: c.X + real(z)*s, Y: c.Y - imag(z)*s}
}

// Sampler walks t = n·step along the critical line.
type Sampler struct {
	eval     zeta.Evaluator
	viewport Viewport
	step     float64
	n        int
	now      func() time.Time
}

// NewSampler returns a sampler positioned at t = 0.
func NewSampler(eval zeta.Evaluator, viewport Viewport, step float64) *Sampler {
	return &Sampler{eval: eval, viewport: viewport, step: step, now: time.Now}
}

// Parameter returns the t the next call to Next will evaluate.
func (s *Sampler) Parameter() float64 { return float64(s.n) * s.step }

// Viewport returns the mapping in use.
func (s *Sampler) Viewport() Viewport { return s.viewport }

// Reset puts the sweep back at t = 0.
func (s *Sampler) Reset() { s.n = 0 }

// Next evaluates at the current parameter and advances. The parameter moves
// forward even when evaluation fails, so a bad point is skipped rather than
// retried forever.
func (s *Sampler) Next() (Sample, error) {
	return s.Sample(s.Advance())
}

// Advance returns the current parameter and moves past it.
func (s *Sampler) Advance() float64 {
	t := s.Parameter()
	s.n++
	return t
}

// Sample evaluates at t without touching the sampler position, so it may
// run concurrently with Advance and Reset.
func (s *Sampler) Sample(t float64) (Sample, error) {
	z, err := s.eval.Evaluate(t)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Parameter: t,
		Value:     z,
		Magnitude: cmplx.Abs(z),
		Screen:    s.viewport.Map(z),
		At:        s.now(),
	}, nil
}
