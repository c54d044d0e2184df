package compression

import (
	"errors"
	"fmt"
	"math"
)

// ErrCorrupt is returned when encoded data is inconsistent.
var ErrCorrupt = errors.New("compression: corrupt data")

// deltaRange is the share of the int16 range the largest delta maps to.
const deltaRange = 29000.0

// Delta stores a trajectory as its first point plus quantised int16 steps.
// Steps are taken from the reconstructed previous point, so rounding error
// does not accumulate along the sequence.
type Delta struct {
	StartX float64 `msgpack:"x0"`
	StartY float64 `msgpack:"y0"`
	ScaleX float64 `msgpack:"sx"`
	ScaleY float64 `msgpack:"sy"`
	Count  uint32  `msgpack:"n"`
	// Steps are packed as [dx1,dy1,dx2,dy2,...].
	Steps []int16 `msgpack:"steps"`
}

// CompressWithDelta delta-encodes points. It returns nil for no points.
func CompressWithDelta(points []complex128) (*Delta, error) {
	if len(points) == 0 {
		return nil, nil
	}
	for i, p := range points {
		if math.IsNaN(real(p)) || math.IsNaN(imag(p)) || math.IsInf(real(p), 0) || math.IsInf(imag(p), 0) {
			return nil, fmt.Errorf("compression: point %d is not finite", i)
		}
	}

	d := &Delta{
		StartX: real(points[0]),
		StartY: imag(points[0]),
		Count:  uint32(len(points)),
	}

	var maxDx, maxDy float64
	for i := 1; i < len(points); i++ {
		maxDx = math.Max(maxDx, math.Abs(real(points[i])-real(points[i-1])))
		maxDy = math.Max(maxDy, math.Abs(imag(points[i])-imag(points[i-1])))
	}
	d.ScaleX = maxDx / deltaRange
	d.ScaleY = maxDy / deltaRange
	if d.ScaleX == 0 {
		d.ScaleX = 1
	}
	if d.ScaleY == 0 {
		d.ScaleY = 1
	}

	d.Steps = make([]int16, 0, (len(points)-1)*2)
	x, y := d.StartX, d.StartY
	for _, p := range points[1:] {
		qx := quantize16((real(p) - x) / d.ScaleX)
		qy := quantize16((imag(p) - y) / d.ScaleY)
		d.Steps = append(d.Steps, qx, qy)
		x += float64(qx) * d.ScaleX
		y += float64(qy) * d.ScaleY
	}
	return d, nil
}

func quantize16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// Decompress rebuilds the points.
func (d *Delta) Decompress() ([]complex128, error) {
	if d == nil || d.Count == 0 {
		return nil, nil
	}
	if len(d.Steps) != int(d.Count-1)*2 {
		return nil, fmt.Errorf("%w: %d steps for %d points", ErrCorrupt, len(d.Steps), d.Count)
	}
	points := make([]complex128, d.Count)
	points[0] = complex(d.StartX, d.StartY)
	for i := 1; i < len(points); i++ {
		dx := float64(d.Steps[(i-1)*2]) * d.ScaleX
		dy := float64(d.Steps[(i-1)*2+1]) * d.ScaleY
		points[i] = complex(real(points[i-1])+dx, imag(points[i-1])+dy)
	}
	return points, nil
}
