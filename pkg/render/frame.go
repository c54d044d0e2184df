package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"

	"zetawatch/pkg/sweep"
)

// Options tune frame drawing. Zero fields take the defaults.
type Options struct {
	// Stride is the trail subsampling step. Default 4.
	Stride int
	// GridSpacing in pixels. Default 60.
	GridSpacing float64
	// NoLabels skips the info and notice lines.
	NoLabels bool
}

func (o Options) withDefaults() Options {
	if o.Stride < 1 {
		o.Stride = 4
	}
	if o.GridSpacing <= 0 {
		o.GridSpacing = 60
	}
	return o
}

// Frame draws one tick onto a new image sized to vp: grid, axes, pulse
// rings while near zero, the subsampled trail and the current point.
func Frame(vp sweep.Viewport, tick sweep.Tick, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	w, h := int(math.Ceil(vp.Width)), int(math.Ceil(vp.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: empty viewport %gx%g", vp.Width, vp.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillColor(Background)
	gc.Clear()

	drawGrid(gc, vp, opts.GridSpacing)

	near := tick.State.Near()
	c := vp.Center()
	if near {
		gc.SetLineWidth(2)
		for _, r := range PulseRings(tick.Sample.Parameter) {
			gc.SetStrokeColor(r.Color)
			gc.BeginPath()
			gc.ArcTo(c.X, c.Y, r.Radius, r.Radius, 0, 2*math.Pi)
			gc.Close()
			gc.Stroke()
		}
	}

	trail := tick.Trail
	gc.SetLineWidth(2)
	for _, seg := range Subsample(len(trail), opts.Stride) {
		from, to := trail[seg.From].Screen, trail[seg.To].Screen
		gc.SetStrokeColor(FadeColor(seg.Intensity))
		gc.BeginPath()
		gc.MoveTo(from.X, from.Y)
		gc.LineTo(to.X, to.Y)
		gc.Stroke()
	}

	if len(trail) > 0 {
		cur := trail[len(trail)-1].Screen
		if near {
			disc(gc, cur.X, cur.Y, 10, GlowColor)
			disc(gc, cur.X, cur.Y, 5, WhiteColor)
		} else {
			disc(gc, cur.X, cur.Y, 6, DotColor)
			disc(gc, cur.X, cur.Y, 3, CoreColor)
		}
	}

	if !opts.NoLabels {
		if err := drawLabels(gc, vp, tick); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func drawGrid(gc draw2d.GraphicContext, vp sweep.Viewport, spacing float64) {
	gc.SetLineWidth(1)
	gc.SetStrokeColor(GridColor)
	for x := 0.0; x < vp.Width; x += spacing {
		line(gc, x, 0, x, vp.Height)
	}
	for y := 0.0; y < vp.Height; y += spacing {
		line(gc, 0, y, vp.Width, y)
	}

	c := vp.Center()
	gc.SetLineWidth(2)
	gc.SetStrokeColor(AxisColor)
	line(gc, c.X, 0, c.X, vp.Height)
	line(gc, 0, c.Y, vp.Width, c.Y)
	disc(gc, c.X, c.Y, 2, DotColor)
}

func drawLabels(gc draw2d.GraphicContext, vp sweep.Viewport, tick sweep.Tick) error {
	if err := registerFont(); err != nil {
		return err
	}
	gc.SetFontData(LabelFont)
	gc.SetFontSize(11)

	info := CoreColor
	if tick.State.Near() {
		info = GlowColor
	}
	gc.SetFillColor(info)
	gc.FillStringAt(tick.Info(), 8, 18)

	if tick.Notice != nil {
		col := DotColor
		if tick.Notice.Found {
			col = WhiteColor
		}
		gc.SetFillColor(col)
		gc.FillStringAt(tick.Notice.String(), 8, vp.Height-10)
	}
	return nil
}

func line(gc draw2d.GraphicContext, x0, y0, x1, y1 float64) {
	gc.BeginPath()
	gc.MoveTo(x0, y0)
	gc.LineTo(x1, y1)
	gc.Stroke()
}

func disc(gc draw2d.GraphicContext, x, y, r float64, c color.Color) {
	gc.SetFillColor(c)
	gc.BeginPath()
	gc.ArcTo(x, y, r, r, 0, 2*math.Pi)
	gc.Close()
	gc.Fill()
}

// EncodePNG writes img to w.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	if err := draw2dimg.SaveToPngFile(path, img); err != nil {
		return fmt.Errorf("render: save %s: %w", path, err)
	}
	return nil
}
