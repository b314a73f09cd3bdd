package model

import "encoding/json"

// Bar represents one daily OHLC(V) sample of a price series.
// TS is milliseconds since epoch, UTC-midnight aligned, strictly
// increasing within a series. Prices are finite non-negative floats;
// the engine reads bars, it never mutates them.
type Bar struct {
	TS     int64   `json:"timestamp"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume,omitempty"`
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}

// PriceRow is one ingested price record: a bar keyed by symbol and the
// calendar day it was published on. Day is the ISO date ("2006-01-02")
// used as the upsert key in the prices table.
type PriceRow struct {
	Symbol string
	Day    string
	Bar    Bar
}

// BarUpdate is a live bar envelope fanned out to WebSocket clients.
// Forming marks an intraday bar that may still change.
type BarUpdate struct {
	Symbol  string `json:"symbol"`
	Bar     Bar    `json:"bar"`
	Forming bool   `json:"forming"`
}

// Channel returns the broadcast channel name: "bar:{symbol}".
func (u *BarUpdate) Channel() string {
	return "bar:" + u.Symbol
}

// JSON returns the JSON-encoded update.
func (u *BarUpdate) JSON() []byte {
	data, _ := json.Marshal(u)
	return data
}
