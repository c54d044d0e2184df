package render

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/llgcode/draw2d"
	"golang.org/x/image/font/gofont/goregular"
)

// LabelFont is the font registered for frame labels.
var LabelFont = draw2d.FontData{
	Name:   "goregular",
	Family: draw2d.FontFamilySans,
	Style:  draw2d.FontStyleNormal,
}

var (
	fontOnce sync.Once
	fontErr  error
)

// registerFont parses the embedded Go font once and hands it to draw2d, so
// frames render without depending on fonts installed on the host.
func registerFont() error {
	fontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			fontErr = fmt.Errorf("render: parse label font: %w", err)
			return
		}
		draw2d.RegisterFont(LabelFont, f)
	})
	return fontErr
}
