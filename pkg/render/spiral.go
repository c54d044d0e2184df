package render

import (
	"image"
	"image/color"
	"math"

	"github.com/llgcode/draw2d/draw2dimg"
)

// Downsample averages consecutive groups of group points. A trailing
// partial group is dropped.
func Downsample(points []complex128, group int) []complex128 {
	if group <= 1 {
		return points
	}
	out := make([]complex128, 0, len(points)/group)
	for start := 0; start+group <= len(points); start += group {
		var sum complex128
		for _, p := range points[start : start+group] {
			sum += p
		}
		out = append(out, sum/complex(float64(group), 0))
	}
	return out
}

type bounds struct{ minX, maxX, minY, maxY float64 }

func boundsOf(points []complex128) bounds {
	b := bounds{real(points[0]), real(points[0]), imag(points[0]), imag(points[0])}
	for _, p := range points[1:] {
		b.minX = math.Min(b.minX, real(p))
		b.maxX = math.Max(b.maxX, real(p))
		b.minY = math.Min(b.minY, imag(p))
		b.maxY = math.Max(b.maxY, imag(p))
	}
	// Keep the aspect ratio square so the spiral is not squashed.
	span := math.Max(b.maxX-b.minX, b.maxY-b.minY)
	if span == 0 {
		span = 1
	}
	cx, cy := (b.minX+b.maxX)/2, (b.minY+b.maxY)/2
	return bounds{cx - span/2, cx + span/2, cy - span/2, cy + span/2}
}

func (b bounds) project(p complex128, size float64) (float64, float64) {
	x := (real(p) - b.minX) / (b.maxX - b.minX) * size
	y := (imag(p) - b.minY) / (b.maxY - b.minY) * size
	return x, size - y
}

// Spiral draws the chained partial sums as a white polyline on a dark
// square of side size, with faint axes through the origin when it is in
// view. The last point is the value of the sum and is marked in green.
func Spiral(links []complex128, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillColor(color.RGBA{30, 30, 30, 255})
	gc.Clear()
	if len(links) == 0 {
		return img
	}

	b := boundsOf(links)
	s := float64(size)

	gc.SetLineWidth(1)
	gc.SetStrokeColor(color.RGBA{90, 90, 90, 255})
	if b.minY <= 0 && b.maxY >= 0 {
		_, y0 := b.project(0, s)
		line(gc, 0, y0, s, y0)
	}
	if b.minX <= 0 && b.maxX >= 0 {
		x0, _ := b.project(0, s)
		line(gc, x0, 0, x0, s)
	}

	gc.SetStrokeColor(color.RGBA{255, 255, 255, 200})
	gc.BeginPath()
	for i, p := range links {
		x, y := b.project(p, s)
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
	gc.Stroke()

	x, y := b.project(links[len(links)-1], s)
	disc(gc, x, y, 3, CoreColor)
	return img
}
