package tdsetup

import "strconv"

// Placeholder is shown for a tooltip field with no active streak.
const Placeholder = "-"

// TooltipField is one labeled value in the tooltip payload.
type TooltipField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Tooltip is the payload shown next to the crosshair: the sell and buy
// counts of the bar under the cursor.
type Tooltip struct {
	Fields []TooltipField `json:"fields"`
}

// Project resolves cursor against results and returns the tooltip for
// that bar. A cursor outside [0, len) resolves to the last bar; pass a
// negative cursor for "no cursor". Empty results produce placeholder
// values for both fields.
func Project(results []SetupResult, cursor int) Tooltip {
	sell := Placeholder
	buy := Placeholder

	if len(results) > 0 {
		idx := cursor
		if idx < 0 || idx >= len(results) {
			idx = len(results) - 1
		}
		if results[idx].Sell > 0 {
			sell = strconv.Itoa(results[idx].Sell)
		}
		if results[idx].Buy > 0 {
			buy = strconv.Itoa(results[idx].Buy)
		}
	}

	return Tooltip{
		Fields: []TooltipField{
			{Label: "Sell Setup", Value: sell},
			{Label: "Buy Setup", Value: buy},
		},
	}
}
