package sweep

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector() (*Detector, *DiscoveryLog) {
	log := NewDiscoveryLog()
	return NewDetector(DefaultConfig(), KnownZeros, log), log
}

func TestDetectorHysteresis(t *testing.T) {
	d, log := newTestDetector()
	mags := []float64{0.5, 0.31, 0.29, 0.04}
	want := []State{Cruising, Cruising, Approaching, AtZero}

	var got []State
	var events []*ZeroEvent
	for i, m := range mags {
		ev, st := d.Observe(sample(float64(i), m))
		got = append(got, st)
		if ev != nil {
			events = append(events, ev)
		}
	}
	assert.Equal(t, want, got)
	require.Len(t, events, 1)
	assert.Equal(t, 3.0, events[0].Parameter)
	assert.Equal(t, 1, events[0].Seq)
	assert.Equal(t, 1, log.Len())
}

func TestDetectorMinimumSeparation(t *testing.T) {
	d, log := newTestDetector()

	ev, _ := d.Observe(sample(3, 0.01))
	require.NotNil(t, ev)

	// Lingering below the zero threshold must not re-confirm.
	ev, st := d.Observe(sample(4, 0.01))
	assert.Nil(t, ev)
	assert.Equal(t, Approaching, st)

	// Exactly MinSeparation away is still too close.
	ev, _ = d.Observe(sample(5, 0.01))
	assert.Nil(t, ev)

	ev, st = d.Observe(sample(5.2, 0.01))
	require.NotNil(t, ev)
	assert.Equal(t, AtZero, st)
	assert.Equal(t, 2, ev.Seq)

	all := log.All()
	require.Len(t, all, 2)
	assert.Greater(t, all[1].Parameter-all[0].Parameter, DefaultConfig().MinSeparation)
}

func TestDetectorFading(t *testing.T) {
	d, _ := newTestDetector()
	d.Observe(sample(3, 0.01))

	_, st := d.Observe(sample(3.5, 1))
	assert.Equal(t, Fading, st)
	_, st = d.Observe(sample(4, 1))
	assert.Equal(t, Fading, st)
	_, st = d.Observe(sample(4.5, 1))
	assert.Equal(t, Cruising, st)
}

func TestDetectorFadingNeedsConfirmedZero(t *testing.T) {
	d, _ := newTestDetector()
	_, st := d.Observe(sample(1, 0.2))
	assert.Equal(t, Approaching, st)
	_, st = d.Observe(sample(1.2, 1))
	assert.Equal(t, Cruising, st, "an approach without a zero does not fade")
}

func TestDetectorVerification(t *testing.T) {
	d, log := newTestDetector()
	d.Observe(sample(14.1340, 0.01))
	d.Observe(sample(100.0, 0.01))

	all := log.All()
	require.Len(t, all, 2)
	assert.True(t, all[0].Verified)
	assert.False(t, all[1].Verified)
}

func TestDetectorReset(t *testing.T) {
	d, log := newTestDetector()
	d.Observe(sample(3, 0.01))
	d.Reset()

	assert.Equal(t, Cruising, d.State())
	_, ok := d.LastConfirmed()
	assert.False(t, ok)
	assert.Equal(t, 1, log.Len(), "reset keeps the log")

	// Separation memory is gone, so a nearby zero confirms again.
	ev, _ := d.Observe(sample(3.2, 0.01))
	assert.NotNil(t, ev)
}

func TestDetectorNotice(t *testing.T) {
	d, _ := newTestDetector()
	_, ok := d.Notice(0)
	assert.False(t, ok)

	d.Observe(sample(3, 0.01))
	n, ok := d.Notice(3.5)
	require.True(t, ok)
	assert.True(t, n.Found)
	assert.Equal(t, "ZERO #1 FOUND at t ≈ 3.000000", n.String())

	n, ok = d.Notice(4.5)
	require.True(t, ok)
	assert.False(t, n.Found)
	assert.Equal(t, "Total zeros found: 1 | Last at t ≈ 3.000000", n.String())
}

func TestStateText(t *testing.T) {
	assert.Equal(t, "at-zero", AtZero.String())
	b, err := Fading.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "fading", string(b))
	assert.Equal(t, "State(9)", State(9).String())
	assert.True(t, Approaching.Near())
	assert.False(t, Fading.Near())
}

func TestStateJSONRoundTrip(t *testing.T) {
	for _, st := range []State{Cruising, Approaching, AtZero, Fading} {
		b, err := json.Marshal(st)
		require.NoError(t, err)
		var got State
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, st, got)
	}

	var st State
	assert.Error(t, st.UnmarshalText([]byte("hovering")))
	assert.Error(t, json.Unmarshal([]byte(`"State(9)"`), &st))
}
