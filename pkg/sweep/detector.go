package sweep

import "fmt"

// State is the detector's view of the trajectory.
type State int

const (
	Cruising State = iota
	Approaching
	AtZero
	Fading
)

var stateNames = [...]string{"cruising", "approaching", "at-zero", "fading"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText lets State appear by name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText accepts the names produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("sweep: unknown state %q", b)
}

// Near reports whether the display should pulse.
func (s State) Near() bool { return s == Approaching || s == AtZero }

// Detector turns magnitudes into zero events. Two thresholds give the
// approach/confirm hysteresis; the separation gate stops one crossing from
// being logged more than once while the trajectory lingers near zero.
type Detector struct {
	cfg  Config
	refs ReferenceSet
	log  *DiscoveryLog

	state   State
	hasLast bool
	last    float64
	lastEv  ZeroEvent
}

// NewDetector returns a detector that appends confirmed zeros to log.
func NewDetector(cfg Config, refs ReferenceSet, log *DiscoveryLog) *Detector {
	return &Detector{cfg: cfg, refs: refs, log: log}
}

// State returns the current state.
func (d *Detector) State() State { return d.state }

// LastConfirmed returns the parameter of the last confirmed zero in this
// session.
func (d *Detector) LastConfirmed() (float64, bool) { return d.last, d.hasLast }

// Reset forgets the state and the last confirmed zero. The log is left
// alone.
func (d *Detector) Reset() {
	d.state = Cruising
	d.hasLast = false
	d.last = 0
	d.lastEv = ZeroEvent{}
}

// Observe feeds one sample and returns the event it confirmed, if any.
func (d *Detector) Observe(s Sample) (*ZeroEvent, State) {
	p, mag := s.Parameter, s.Magnitude
	switch {
	case mag < d.cfg.ZeroThreshold && (!d.hasLast || p-d.last > d.cfg.MinSeparation):
		ev := d.log.Append(ZeroEvent{
			Parameter: p,
			Magnitude: mag,
			Verified:  d.refs.Verify(p, d.cfg.Tolerance),
		})
		d.hasLast = true
		d.last = p
		d.lastEv = ev
		d.state = AtZero
		return &ev, d.state
	case mag < d.cfg.ApproachThreshold:
		d.state = Approaching
	case (d.state == AtZero || d.state == Fading) && d.hasLast && p-d.last <= d.cfg.FadeWindow:
		d.state = Fading
	default:
		d.state = Cruising
	}
	return nil, d.state
}

// Notice is the "zero found" banner. While Found is set it announces Event;
// once the sweep is FadeWindow past it, it falls back to a running summary.
type Notice struct {
	Found bool      `json:"found"`
	Event ZeroEvent `json:"event"`
	Total int       `json:"total"`
}

// Notice returns the banner for parameter p. ok is false before the first
// confirmed zero of the session.
func (d *Detector) Notice(p float64) (n Notice, ok bool) {
	if !d.hasLast {
		return Notice{Total: d.log.Len()}, false
	}
	return Notice{
		Found: p-d.last <= d.cfg.FadeWindow,
		Event: d.lastEv,
		Total: d.log.Len(),
	}, true
}

func (n Notice) String() string {
	if n.Found {
		return fmt.Sprintf("ZERO #%d FOUND at t ≈ %.6f", n.Event.Seq, n.Event.Parameter)
	}
	return fmt.Sprintf("Total zeros found: %d | Last at t ≈ %.6f", n.Total, n.Event.Parameter)
}
