package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"zetawatch/pkg/sweep"
)

// ErrNoSamples is returned when there is nothing to chart.
var ErrNoSamples = errors.New("render: no samples")

// Chart plots |ζ(0.5+it)| against t, marks confirmed zeros and draws the
// zero threshold as a dashed line.
func Chart(samples []sweep.Sample, events []sweep.ZeroEvent, zeroThreshold float64) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	p := plot.New()
	p.Title.Text = "|ζ(0.5+it)| along the critical line"
	p.X.Label.Text = "t"
	p.Y.Label.Text = "|ζ|"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = plotter.XY{X: s.Parameter, Y: s.Magnitude}
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("render: magnitude line: %w", err)
	}
	l.LineStyle.Color = color.RGBA{G: 0xaa, A: 0xff}
	p.Add(l)
	p.Legend.Add("|ζ|", l)

	thr := plotter.NewFunction(func(float64) float64 { return zeroThreshold })
	thr.Color = color.RGBA{R: 0xcc, A: 0xff}
	thr.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(thr)
	p.Legend.Add("zero threshold", thr)

	if len(events) > 0 {
		zs := make(plotter.XYs, len(events))
		for i, ev := range events {
			zs[i] = plotter.XY{X: ev.Parameter, Y: ev.Magnitude}
		}
		sc, err := plotter.NewScatter(zs)
		if err != nil {
			return nil, fmt.Errorf("render: zero markers: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 0xdd, G: 0xaa, A: 0xff}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("zeros", sc)
	}
	return p, nil
}

// WriteChart renders p in the given format ("png", "svg", "pdf").
func WriteChart(w io.Writer, p *plot.Plot, width, height vg.Length, format string) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("render: chart writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("render: write chart: %w", err)
	}
	return nil
}

// SaveChart writes p to path; the format follows the file extension.
func SaveChart(path string, p *plot.Plot) error {
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("render: save chart %s: %w", path, err)
	}
	return nil
}
