package tdsetup

import (
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Canvas is the minimal drawing capability the overlay renderer needs
// from the host charting surface. Text is drawn with its baseline at y
// and its left edge at x.
type Canvas interface {
	SetFontSize(px float64)
	SetFontColor(c drawing.Color)
	MeasureText(body string) (width, height float64)
	Text(body string, x, y float64)
}

// RendererCanvas adapts a go-chart Renderer to Canvas so the overlay
// can paint onto any of its raster or vector backends.
type RendererCanvas struct {
	R chart.Renderer
}

func (rc RendererCanvas) SetFontSize(px float64) { rc.R.SetFontSize(px) }

func (rc RendererCanvas) SetFontColor(c drawing.Color) { rc.R.SetFontColor(c) }

func (rc RendererCanvas) MeasureText(body string) (float64, float64) {
	box := rc.R.MeasureText(body)
	return float64(box.Width()), float64(box.Height())
}

func (rc RendererCanvas) Text(body string, x, y float64) {
	rc.R.Text(body, int(math.Round(x)), int(math.Round(y)))
}
