package sweep

import (
	"errors"
	"fmt"

	"zetawatch/pkg/zeta"
)

// Tick is the per-tick payload handed to the display. Trail is a private
// copy; Event is set only on the tick that confirmed it.
type Tick struct {
	State  State      `json:"state"`
	Sample Sample     `json:"sample"`
	Trail  []Sample   `json:"trail"`
	Event  *ZeroEvent `json:"event,omitempty"`
	Notice *Notice    `json:"notice,omitempty"`
}

// Info is the status line shown above the trajectory.
func (t Tick) Info() string {
	if t.State.Near() {
		return "⚡ PULSING - Approaching Zero! ⚡"
	}
	return fmt.Sprintf("t = %.4f  |ζ(0.5+it)| = %.6f", t.Sample.Parameter, t.Sample.Magnitude)
}

// Session owns the mutable state of one sweep: sampler position, trail and
// detector memory. It is not safe for concurrent use; Engine serialises
// access to it.
type Session struct {
	sampler  *Sampler
	detector *Detector
	trail    *Trail
}

// NewSession builds a session that reports zeros to log.
func NewSession(cfg Config, eval zeta.Evaluator, viewport Viewport, refs ReferenceSet, log *DiscoveryLog) *Session {
	return &Session{
		sampler:  NewSampler(eval, viewport, cfg.Step),
		detector: NewDetector(cfg, refs, log),
		trail:    NewTrail(cfg.TrailCapacity),
	}
}

// Step runs one tick: sample, detect, push. A numeric failure is reported
// with ok=false and leaves detector and trail untouched; any other error is
// returned.
func (s *Session) Step() (tick Tick, ok bool, err error) {
	sample, err := s.sampler.Next()
	return s.Apply(sample, err)
}

// Advance moves the sampler on and returns the parameter to evaluate.
func (s *Session) Advance() float64 { return s.sampler.Advance() }

// Sample evaluates at t. It reads no mutable session state.
func (s *Session) Sample(t float64) (Sample, error) { return s.sampler.Sample(t) }

// Apply feeds the outcome of Sample to the detector and trail.
func (s *Session) Apply(sample Sample, err error) (tick Tick, ok bool, _ error) {
	if err != nil {
		if errors.Is(err, zeta.ErrNumericFailure) {
			return Tick{}, false, nil
		}
		return Tick{}, false, err
	}
	ev, state := s.detector.Observe(sample)
	s.trail.Push(sample)

	tick = Tick{
		State:  state,
		Sample: sample,
		Trail:  s.trail.Snapshot(),
		Event:  ev,
	}
	if n, ok := s.detector.Notice(sample.Parameter); ok {
		tick.Notice = &n
	}
	return tick, true, nil
}

// Reset puts the sweep back at t=0 with an empty trail and no detector
// memory.
func (s *Session) Reset() {
	s.sampler.Reset()
	s.detector.Reset()
	s.trail.Reset()
}

func (s *Session) Parameter() float64 { return s.sampler.Parameter() }
func (s *Session) State() State       { return s.detector.State() }
func (s *Session) Trail() []Sample    { return s.trail.Snapshot() }
func (s *Session) Viewport() Viewport { return s.sampler.Viewport() }
