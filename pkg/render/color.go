// Package render draws sweep state: the fading trajectory frame, a
// magnitude chart for finished scans, and partial-sum spirals.
package render

import (
	"image/color"
	"math"
)

// Palette of the display.
var (
	Background = color.RGBA{0x05, 0x05, 0x10, 0xff}
	GridColor  = color.RGBA{0x00, 0x33, 0x00, 0xff}
	AxisColor  = color.RGBA{0x00, 0x55, 0x00, 0xff}
	DotColor   = color.RGBA{0x00, 0xaa, 0x00, 0xff}
	CoreColor  = color.RGBA{0x00, 0xff, 0x00, 0xff}
	GlowColor  = color.RGBA{0xff, 0xff, 0x00, 0xff}
	WhiteColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

func channel(intensity float64) uint8 {
	if math.IsNaN(intensity) || intensity <= 0 {
		return 0
	}
	if intensity >= 1 {
		return 0xff
	}
	return uint8(255 * intensity)
}

// FadeColor is the trail colour for intensity in [0,1]: black at 0, full
// green at 1. Out-of-range input is clamped.
func FadeColor(intensity float64) color.RGBA {
	return color.RGBA{G: channel(intensity), A: 0xff}
}

// PulseColor is the ring colour: black at 0, full yellow at 1.
func PulseColor(intensity float64) color.RGBA {
	g := channel(intensity)
	return color.RGBA{R: g, G: g, A: 0xff}
}

// Segment joins trail points From and To, drawn with FadeColor(Intensity).
type Segment struct {
	From, To  int
	Intensity float64
}

// Subsample picks every stride-th trail point out of n and returns the
// segments between consecutive picks. Intensity rises linearly with
// position, so the newest segment is the brightest.
func Subsample(n, stride int) []Segment {
	if stride < 1 {
		stride = 1
	}
	if n <= stride {
		return nil
	}
	segs := make([]Segment, 0, n/stride)
	for i := stride; i < n; i += stride {
		segs = append(segs, Segment{From: i - stride, To: i, Intensity: float64(i) / float64(n)})
	}
	return segs
}

// Ring is one pulse circle around the origin.
type Ring struct {
	Radius float64
	Color  color.RGBA
}

// PulseRings returns the concentric rings shown while the trajectory is
// near zero. The outer radius breathes with t; rings step inwards by 8
// and dim towards the centre.
func PulseRings(t float64) []Ring {
	size := int(25 + 15*math.Sin(10*t))
	if size <= 0 {
		return nil
	}
	var rings []Ring
	for r := size; r > 10; r -= 8 {
		alpha := 1 - float64(size-r)/float64(size)
		rings = append(rings, Ring{Radius: float64(r), Color: PulseColor(alpha)})
	}
	return rings
}
