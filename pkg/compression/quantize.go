package compression

import (
	"fmt"
	"math"

	"zetawatch/pkg/sweep"
)

// quantRange is the int16 span used for quantised coordinates.
const quantRange = 29000

// Quantized stores screen points as int16 pairs relative to their bounding
// box.
type Quantized struct {
	Bounds struct {
		MinX float32 `msgpack:"minX"`
		MaxX float32 `msgpack:"maxX"`
		MinY float32 `msgpack:"minY"`
		MaxY float32 `msgpack:"maxY"`
	} `msgpack:"bounds"`

	Scale struct {
		X float32 `msgpack:"x"`
		Y float32 `msgpack:"y"`
	} `msgpack:"scale"`

	// Points are packed as [x1,y1,x2,y2,...].
	Points []int16 `msgpack:"points"`
}

// Quantize packs points into int16 pairs.
func Quantize(points []sweep.Point) (*Quantized, error) {
	q := &Quantized{Points: make([]int16, 0, len(points)*2)}
	if len(points) == 0 {
		return q, nil
	}

	q.Bounds.MinX, q.Bounds.MaxX = float32(points[0].X), float32(points[0].X)
	q.Bounds.MinY, q.Bounds.MaxY = float32(points[0].Y), float32(points[0].Y)
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return nil, fmt.Errorf("compression: point %d is NaN", i)
		}
		x, y := float32(p.X), float32(p.Y)
		q.Bounds.MinX = min(q.Bounds.MinX, x)
		q.Bounds.MaxX = max(q.Bounds.MaxX, x)
		q.Bounds.MinY = min(q.Bounds.MinY, y)
		q.Bounds.MaxY = max(q.Bounds.MaxY, y)
	}

	q.Scale.X = (q.Bounds.MaxX - q.Bounds.MinX) / quantRange
	q.Scale.Y = (q.Bounds.MaxY - q.Bounds.MinY) / quantRange
	if q.Scale.X == 0 {
		q.Scale.X = 1
	}
	if q.Scale.Y == 0 {
		q.Scale.Y = 1
	}

	for _, p := range points {
		qx := math.Round(float64((float32(p.X) - q.Bounds.MinX) / q.Scale.X))
		qy := math.Round(float64((float32(p.Y) - q.Bounds.MinY) / q.Scale.Y))
		q.Points = append(q.Points, int16(qx), int16(qy))
	}
	return q, nil
}

// Decompress returns the dequantised points.
func (q *Quantized) Decompress() []sweep.Point {
	if q == nil {
		return nil
	}
	points := make([]sweep.Point, len(q.Points)/2)
	for i := range points {
		points[i] = sweep.Point{
			X: float64(q.Bounds.MinX + float32(q.Points[i*2])*q.Scale.X),
			Y: float64(q.Bounds.MinY + float32(q.Points[i*2+1])*q.Scale.Y),
		}
	}
	return points
}
