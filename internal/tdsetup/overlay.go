package tdsetup

import (
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"td-dashboard/internal/model"
)

// Range is the fractional bar-index window currently visible on the
// host charting surface.
type Range struct {
	From float64
	To   float64
}

// Box is a pane's pixel bounding box.
type Box struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// PriceScale converts a price to a pixel y-coordinate inside the pane.
// A nil scale means "cannot place": labels fall back to the pane edge.
type PriceScale func(price float64) float64

// Font bounds: labels scale with bar width but stay legible at extreme
// zoom levels.
const (
	fontScale = 0.8
	fontMin   = 12.0
	fontMax   = 18.0
	labelGap  = 3.0
)

// Draw paints the setup counts for the visible window onto canvas and
// reports whether anything was painted. It is stateless between calls:
// no canvas state is retained across frames.
//
// The paintable range is the visible window padded by one bar on each
// side so labels partially scrolled into view still render, clamped to
// the result bounds. Sell counts sit above the bar's high, buy counts
// below its low, each kept inside the pane by a font-size margin. A
// count of 9 uses the highlight color; completion-only variants always
// do, since 9 is all they ever emit.
func (v Variant) Draw(results []SetupResult, bars []model.Bar, view Range, pane Box, scale PriceScale, barWidth float64, canvas Canvas) bool {
	if len(results) == 0 {
		return false
	}

	start := int(math.Floor(view.From)) - 1
	if start < 0 {
		start = 0
	}
	end := int(math.Ceil(view.To)) + 1
	if last := len(results) - 1; end > last {
		end = last
	}
	if start > end {
		return false
	}

	fontSize := barWidth * fontScale
	if fontSize < fontMin {
		fontSize = fontMin
	} else if fontSize > fontMax {
		fontSize = fontMax
	}
	canvas.SetFontSize(fontSize)

	painted := false
	for i := start; i <= end; i++ {
		if i >= len(bars) {
			continue
		}
		res := results[i]
		if res.Sell == 0 && res.Buy == 0 {
			continue
		}

		x := pane.Left + (float64(i)-view.From)*barWidth + barWidth/2
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if x < pane.Left-barWidth || x > pane.Left+pane.Width+barWidth {
			continue
		}

		bar := &bars[i]

		if res.Sell > 0 {
			anchor := bar.High
			if v.Emit == EmitCompletionOnly {
				anchor = math.Max(bar.High, bar.Close)
			}
			y := pane.Top + fontSize
			if scale != nil {
				y = scale(anchor) - labelGap
			}
			if minY := pane.Top + fontSize; y < minY {
				y = minY
			}
			v.drawLabel(canvas, res.Sell, v.SellColor, x, y)
			painted = true
		}

		if res.Buy > 0 {
			anchor := bar.Low
			if v.Emit == EmitCompletionOnly {
				anchor = math.Min(bar.Low, bar.Close)
			}
			y := pane.Top + pane.Height - labelGap
			if scale != nil {
				y = scale(anchor) + fontSize + labelGap
			}
			if maxY := pane.Top + pane.Height - labelGap; y > maxY {
				y = maxY
			}
			v.drawLabel(canvas, res.Buy, v.BuyColor, x, y)
			painted = true
		}
	}

	return painted
}

// drawLabel paints one count numeral centered horizontally at x.
func (v Variant) drawLabel(canvas Canvas, count int, base drawing.Color, x, y float64) {
	color := base
	if count >= maxCount || v.Emit == EmitCompletionOnly {
		color = v.HighlightColor
	}
	text := strconv.Itoa(count)
	width, _ := canvas.MeasureText(text)
	canvas.SetFontColor(color)
	canvas.Text(text, x-width/2, y)
}
