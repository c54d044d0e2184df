package sweep

// Trail is a fixed-capacity FIFO of samples. Pushing onto a full trail
// evicts the oldest sample. Order is always sampling order.
type Trail struct {
	buf   []Sample
	head  int
	count int
}

// NewTrail returns an empty trail holding at most n samples.
func NewTrail(n int) *Trail {
	if n < 1 {
		n = 1
	}
	return &Trail{buf: make([]Sample, n)}
}

func (r *Trail) Len() int { return r.count }
func (r *Trail) Cap() int { return len(r.buf) }

// Push appends s, evicting the oldest sample when full.
func (r *Trail) Push(s Sample) {
	r.buf[r.head] = s
	r.head++
	if r.head >= len(r.buf) {
		r.head = 0
	}
	if r.count < len(r.buf) {
		r.count++
	}
}

// At returns the i-th sample, oldest first.
func (r *Trail) At(i int) Sample {
	if i < 0 || i >= r.count {
		return Sample{}
	}
	idx := r.head - r.count + i
	if idx < 0 {
		idx += len(r.buf)
	}
	return r.buf[idx]
}

// Latest returns the newest sample.
func (r *Trail) Latest() (Sample, bool) {
	if r.count == 0 {
		return Sample{}, false
	}
	return r.At(r.count - 1), true
}

// Snapshot copies the samples out, oldest first.
func (r *Trail) Snapshot() []Sample {
	out := make([]Sample, r.count)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// Reset drops every sample.
func (r *Trail) Reset() {
	clear(r.buf)
	r.head = 0
	r.count = 0
}
