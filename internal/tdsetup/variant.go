// Package tdsetup implements the TD Setup counting indicator: a
// sequential pattern detector that counts consecutive bars closing
// above (sell setup) or below (buy setup) the close four bars earlier.
// A count of 9 marks a completed setup.
//
// The package is split into a pure calculator (calc.go), a tooltip
// projector (tooltip.go), an overlay renderer (overlay.go) and an
// idempotent registration catalog (registry.go). All entry points are
// pure transforms over caller-owned data; the registry is the only
// process-wide state.
package tdsetup

import "github.com/wcharczuk/go-chart/v2/drawing"

// EmitMode selects what the calculator writes into the result slice.
type EmitMode int

const (
	// EmitCount emits the saturating streak count (1..9) on every bar
	// of an active streak. This is the canonical behavior.
	EmitCount EmitMode = iota

	// EmitCompletionOnly emits 9 only on the bar where a streak first
	// reaches 9, and nothing on any other bar.
	EmitCompletionOnly
)

// Variant is the immutable configuration of one registered TD Setup
// indicator. CloseOnly drops the high/low range conditions from the
// comparison; Emit selects the output form.
type Variant struct {
	Name      string
	ShortName string
	CloseOnly bool
	Emit      EmitMode

	SellColor      drawing.Color
	BuyColor       drawing.Color
	HighlightColor drawing.Color
}

// Stock palettes. The close-only variant carries its own colors so the
// two indicators stay distinguishable when layered on one pane.
var (
	sellRed    = drawing.Color{R: 0xEF, G: 0x53, B: 0x50, A: 0xFF}
	buyGreen   = drawing.Color{R: 0x26, G: 0xA6, B: 0x9A, A: 0xFF}
	sellOrange = drawing.Color{R: 0xFF, G: 0x70, B: 0x43, A: 0xFF}
	buyLime    = drawing.Color{R: 0x66, G: 0xBB, B: 0x6A, A: 0xFF}
	amberNine  = drawing.Color{R: 0xF7, G: 0xB5, B: 0x00, A: 0xFF}
	purpleNine = drawing.Color{R: 0xAB, G: 0x47, B: 0xBC, A: 0xFF}
)

// RangeAware is the stock range-aware variant: the close comparison
// must be confirmed by the bar's high (sell) or low (buy) against the
// comparison bar.
func RangeAware() Variant {
	return Variant{
		Name:           "TD Setup",
		ShortName:      "TD",
		CloseOnly:      false,
		Emit:           EmitCount,
		SellColor:      sellRed,
		BuyColor:       buyGreen,
		HighlightColor: amberNine,
	}
}

// CloseOnly is the stock close-price-only variant.
func CloseOnly() Variant {
	return Variant{
		Name:           "TD Setup Close",
		ShortName:      "TDC",
		CloseOnly:      true,
		Emit:           EmitCount,
		SellColor:      sellOrange,
		BuyColor:       buyLime,
		HighlightColor: purpleNine,
	}
}
