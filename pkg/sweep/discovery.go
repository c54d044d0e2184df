package sweep

import (
	"fmt"
	"math"
	"sync"
)

// KnownZeros are the imaginary parts of the first ten non-trivial zeros.
var KnownZeros = ReferenceSet{
	14.134725, 21.022040, 25.010858, 30.424876, 32.935062,
	37.586178, 40.918719, 43.327073, 48.005151, 49.773832,
}

// ReferenceSet is an ordered, read-only list of known zero locations.
type ReferenceSet []float64

// Verify reports whether some reference lies strictly within tol of p.
func (r ReferenceSet) Verify(p, tol float64) bool {
	for _, ref := range r {
		if math.Abs(p-ref) < tol {
			return true
		}
	}
	return false
}

// ZeroEvent is a confirmed zero. Seq is 1-based and gapless within one log
// generation.
type ZeroEvent struct {
	Seq       int     `json:"seq" msgpack:"seq"`
	Parameter float64 `json:"t" msgpack:"t"`
	Magnitude float64 `json:"magnitude" msgpack:"magnitude"`
	Verified  bool    `json:"verified" msgpack:"verified"`
}

func (e ZeroEvent) String() string {
	s := fmt.Sprintf("#%d: t ≈ %.6f  (|ζ| = %.8f)", e.Seq, e.Parameter, e.Magnitude)
	if e.Verified {
		s += " ✓ VERIFIED"
	}
	return s
}

// DiscoveryLog is the append-only list of confirmed zeros. It outlives
// sessions and is only emptied by Clear. Readers may call All from any
// goroutine.
type DiscoveryLog struct {
	mu     sync.RWMutex
	events []ZeroEvent
}

// NewDiscoveryLog returns an empty log.
func NewDiscoveryLog() *DiscoveryLog { return &DiscoveryLog{} }

// Append numbers ev and stores it. The Seq passed in is ignored.
func (l *DiscoveryLog) Append(ev ZeroEvent) ZeroEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev.Seq = len(l.events) + 1
	l.events = append(l.events, ev)
	return ev
}

// Clear empties the log; the next Append is numbered 1.
func (l *DiscoveryLog) Clear() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// All returns a copy of the events in order.
func (l *DiscoveryLog) All() []ZeroEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ZeroEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of events.
func (l *DiscoveryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
