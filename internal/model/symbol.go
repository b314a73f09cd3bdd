package model

// SymbolInfo describes one listed symbol as exposed by the symbols API.
// The frontend treats every ingested ticker as a "custom" instrument
// with two price decimals.
type SymbolInfo struct {
	Ticker          string `json:"ticker"`
	ShortName       string `json:"shortName"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	PricePrecision  int    `json:"pricePrecision"`
	VolumePrecision int    `json:"volumePrecision"`
}

// NewSymbolInfo builds the default SymbolInfo for a ticker.
func NewSymbolInfo(ticker string) SymbolInfo {
	return SymbolInfo{
		Ticker:          ticker,
		ShortName:       ticker,
		Name:            ticker,
		Type:            "custom",
		PricePrecision:  2,
		VolumePrecision: 0,
	}
}
