// chartsnap renders a candlestick snapshot PNG for one stored symbol
// with the TD Setup overlay painted on top. Useful for eyeballing the
// indicator against real data without the browser frontend.
package main

import (
	"flag"
	"log"
	"math"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"td-dashboard/internal/model"
	sqlitestore "td-dashboard/internal/store/sqlite"
	"td-dashboard/internal/tdsetup"
)

var (
	upColor   = drawing.Color{R: 0x26, G: 0xA6, B: 0x9A, A: 0xFF}
	downColor = drawing.Color{R: 0xEF, G: 0x53, B: 0x50, A: 0xFF}
	bgColor   = drawing.Color{R: 0x12, G: 0x12, B: 0x1A, A: 0xFF}
)

func main() {
	var (
		dbPath  = flag.String("db", "data/settings.db", "path to the dashboard SQLite database")
		symbol  = flag.String("symbol", "", "symbol to render (required)")
		variant = flag.String("variant", "TD Setup", "registered indicator variant name")
		out     = flag.String("out", "chart.png", "output PNG path")
		width   = flag.Int("width", 1280, "image width in pixels")
		height  = flag.Int("height", 720, "image height in pixels")
		last    = flag.Int("bars", 120, "render only the last N bars (0 = all)")
	)
	flag.Parse()

	if *symbol == "" {
		log.Fatal("[chartsnap] -symbol is required")
	}

	store, err := sqlitestore.Open(*dbPath)
	if err != nil {
		log.Fatalf("[chartsnap] open sqlite: %v", err)
	}
	defer store.Close()

	bars, err := store.Bars(*symbol)
	if err != nil {
		log.Fatalf("[chartsnap] read bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("[chartsnap] no bars stored for %s", *symbol)
	}
	if *last > 0 && len(bars) > *last {
		bars = bars[len(bars)-*last:]
	}

	tdsetup.RegisterDefaults()
	desc, ok := tdsetup.Default.Lookup(*variant)
	if !ok {
		log.Fatalf("[chartsnap] unknown variant %q (have %v)", *variant, tdsetup.Default.Names())
	}

	results := desc.Calc(bars)

	if err := render(bars, results, desc, *out, *width, *height); err != nil {
		log.Fatalf("[chartsnap] render: %v", err)
	}

	completed := 0
	for _, res := range results {
		if res.Sell == 9 || res.Buy == 9 {
			completed++
		}
	}
	log.Printf("[chartsnap] wrote %s: %d bars, %d completed setups", *out, len(bars), completed)
}

func render(bars []model.Bar, results []tdsetup.SetupResult, desc *tdsetup.Descriptor, out string, width, height int) error {
	r, err := chart.PNG(width, height)
	if err != nil {
		return err
	}

	font, err := chart.GetDefaultFont()
	if err != nil {
		return err
	}
	r.SetFont(font)

	// Background
	r.SetFillColor(bgColor)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.Fill()

	pane := tdsetup.Box{
		Left:   10,
		Top:    30,
		Width:  float64(width) - 20,
		Height: float64(height) - 60,
	}
	barWidth := pane.Width / float64(len(bars))

	minP, maxP := priceBounds(bars)
	scale := func(price float64) float64 {
		return pane.Top + (maxP-price)/(maxP-minP)*pane.Height
	}

	drawCandles(r, bars, pane, scale, barWidth)

	view := tdsetup.Range{From: 0, To: float64(len(bars) - 1)}
	canvas := tdsetup.RendererCanvas{R: r}
	desc.Draw(results, bars, view, pane, scale, barWidth, canvas)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.Save(f)
}

func drawCandles(r chart.Renderer, bars []model.Bar, pane tdsetup.Box, scale func(float64) float64, barWidth float64) {
	bodyWidth := barWidth * 0.7
	if bodyWidth < 1 {
		bodyWidth = 1
	}

	for i, b := range bars {
		color := upColor
		if b.Close < b.Open {
			color = downColor
		}

		x := pane.Left + float64(i)*barWidth + barWidth/2

		// Wick
		r.SetStrokeColor(color)
		r.SetStrokeWidth(1)
		r.MoveTo(int(x), int(scale(b.High)))
		r.LineTo(int(x), int(scale(b.Low)))
		r.Stroke()

		// Body
		top := scale(math.Max(b.Open, b.Close))
		bottom := scale(math.Min(b.Open, b.Close))
		if bottom-top < 1 {
			bottom = top + 1
		}
		r.SetFillColor(color)
		r.MoveTo(int(x-bodyWidth/2), int(top))
		r.LineTo(int(x+bodyWidth/2), int(top))
		r.LineTo(int(x+bodyWidth/2), int(bottom))
		r.LineTo(int(x-bodyWidth/2), int(bottom))
		r.Close()
		r.Fill()
	}
}

func priceBounds(bars []model.Bar) (float64, float64) {
	minP := math.Inf(1)
	maxP := math.Inf(-1)
	for _, b := range bars {
		if b.Low < minP {
			minP = b.Low
		}
		if b.High > maxP {
			maxP = b.High
		}
	}
	if minP == maxP {
		minP -= 1
		maxP += 1
	}
	return minP, maxP
}
