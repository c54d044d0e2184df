package compression

import (
	"bytes"
	"math"
	"math/cmplx"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetawatch/pkg/sweep"
)

func spiral(n int) []complex128 {
	pts := make([]complex128, n)
	for i := range pts {
		t := float64(i) * 0.2
		pts[i] = cmplx.Rect(1+0.05*t, t)
	}
	return pts
}

func TestDeltaRoundTrip(t *testing.T) {
	pts := spiral(500)
	d, err := CompressWithDelta(pts)
	require.NoError(t, err)
	require.Len(t, d.Steps, (len(pts)-1)*2)

	got, err := d.Decompress()
	require.NoError(t, err)
	require.Len(t, got, len(pts))

	// Error stays within one quantisation step; it does not grow with n.
	tol := math.Max(d.ScaleX, d.ScaleY)
	for i := range pts {
		assert.InDelta(t, real(pts[i]), real(got[i]), tol, "x[%d]", i)
		assert.InDelta(t, imag(pts[i]), imag(got[i]), tol, "y[%d]", i)
	}
}

func TestDeltaEdgeCases(t *testing.T) {
	d, err := CompressWithDelta(nil)
	require.NoError(t, err)
	assert.Nil(t, d)
	pts, err := d.Decompress()
	require.NoError(t, err)
	assert.Empty(t, pts)

	d, err = CompressWithDelta([]complex128{complex(2, 3)})
	require.NoError(t, err)
	pts, err = d.Decompress()
	require.NoError(t, err)
	assert.Equal(t, []complex128{complex(2, 3)}, pts)

	_, err = CompressWithDelta([]complex128{0, complex(math.NaN(), 0)})
	assert.Error(t, err)

	bad := &Delta{Count: 3, Steps: []int16{1}}
	_, err = bad.Decompress()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestQuantizeRoundTrip(t *testing.T) {
	vp := sweep.NewViewport(400, 300)
	var pts []sweep.Point
	for _, z := range spiral(50) {
		pts = append(pts, vp.Map(z))
	}
	q, err := Quantize(pts)
	require.NoError(t, err)
	got := q.Decompress()
	require.Len(t, got, len(pts))
	for i := range pts {
		assert.InDelta(t, pts[i].X, got[i].X, 0.05)
		assert.InDelta(t, pts[i].Y, got[i].Y, 0.05)
	}

	empty, err := Quantize(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Decompress())
}

func testTrail() []sweep.Sample {
	vp := sweep.NewViewport(0, 0)
	var trail []sweep.Sample
	for i, z := range spiral(50) {
		trail = append(trail, sweep.Sample{
			Parameter: 10 + float64(i)*0.2,
			Value:     z,
			Magnitude: cmplx.Abs(z),
			Screen:    vp.Map(z),
		})
	}
	return trail
}

func TestArchiveRoundTrip(t *testing.T) {
	events := []sweep.ZeroEvent{
		{Seq: 1, Parameter: 21.0, Magnitude: 0.0253, Verified: false},
		{Seq: 2, Parameter: 25.0, Magnitude: 0.0149, Verified: false},
	}
	trail := testTrail()
	a, err := NewArchive(0.2, 20, events, trail)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, a))
	got, err := ReadArchive(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(events, got.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 20.0, got.Parameter)
	assert.Equal(t, 0.2, got.Step)
	assert.Equal(t, 10.0, got.TrailStart)
	assert.True(t, a.Created.Equal(got.Created))

	samples, err := got.Trail()
	require.NoError(t, err)
	require.Len(t, samples, len(trail))
	for i := range trail {
		assert.Equal(t, trail[i].Parameter, samples[i].Parameter)
		assert.InDelta(t, trail[i].Magnitude, samples[i].Magnitude, 1e-3)
		assert.InDelta(t, trail[i].Screen.X, samples[i].Screen.X, 0.05)
	}
}

func TestArchiveFile(t *testing.T) {
	a, err := NewArchive(0.2, 0, nil, nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sweep.zwa")
	require.NoError(t, SaveArchive(path, a))

	got, err := LoadArchive(path)
	require.NoError(t, err)
	assert.Empty(t, got.Events)
	samples, err := got.Trail()
	require.NoError(t, err)
	assert.Empty(t, samples)

	_, err = LoadArchive(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadArchiveRejectsGarbage(t *testing.T) {
	_, err := ReadArchive(bytes.NewReader([]byte("not gzip")))
	assert.Error(t, err)
}

func TestEventsWire(t *testing.T) {
	events := []sweep.ZeroEvent{
		{Seq: 1, Parameter: 21.0, Magnitude: 0.0253},
		{Seq: 2, Parameter: 14.134725, Magnitude: 0.001, Verified: true},
	}
	b := MarshalEvents(events)
	got, err := UnmarshalEvents(b)
	require.NoError(t, err)
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	empty, err := UnmarshalEvents(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEventWireSkipsUnknownFields(t *testing.T) {
	ev := sweep.ZeroEvent{Seq: 7, Parameter: 30.4, Magnitude: 0.03, Verified: true}
	b := MarshalEvent(nil, ev)
	// Field 9 as a length-delimited blob from a newer writer.
	b = append(b, 0x4a, 0x02, 0xde, 0xad)

	got, err := UnmarshalEvent(b)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestEventWireTruncated(t *testing.T) {
	b := MarshalEvent(nil, sweep.ZeroEvent{Seq: 1, Parameter: 3})
	_, err := UnmarshalEvent(b[:len(b)-3])
	assert.ErrorIs(t, err, ErrCorrupt)
}
