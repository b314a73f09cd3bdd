// Package ingest loads the dashboard's price history from a CSV export
// of daily closes and derives storable OHLC bars from it.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"td-dashboard/internal/model"
)

// Required CSV columns (header match is case-insensitive).
const (
	colSymbol = "symbol"
	colDate   = "publisheddate"
	colPrice  = "price"
)

// Accepted date layouts, tried after full ISO-8601 parsing.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01/02/06",
}

type entry struct {
	ts    int64
	day   string
	close float64
}

// LoadFile reads the CSV at path and returns one PriceRow per parsed
// line, grouped and time-ordered per symbol. Since the export carries
// closes only, OHLC is synthesized: each bar opens at the previous
// close, and high/low bracket open and close.
//
// Rows with a missing symbol, unparseable date, or unparseable price
// are skipped with a log line, matching a feed that is messy in
// practice but mostly usable. Only a missing required column is an
// error.
func LoadFile(path string) ([]model.PriceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses CSV content from r. See LoadFile.
func Load(r io.Reader) ([]model.PriceRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(stripBOM(name)))] = i
	}
	var missing []string
	for _, required := range []string{colSymbol, colDate, colPrice} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv must include columns symbol, publisheddate, price; missing: %s",
			strings.Join(missing, ", "))
	}

	bySymbol := make(map[string][]entry)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("[ingest] skipping line %d: %v", line, err)
			continue
		}

		symbol := strings.TrimSpace(field(record, cols[colSymbol]))
		if symbol == "" {
			log.Printf("[ingest] skipping line %d: missing symbol", line)
			continue
		}

		ts, day, err := parseTimestamp(field(record, cols[colDate]))
		if err != nil {
			log.Printf("[ingest] skipping line %d: invalid published date %q", line, field(record, cols[colDate]))
			continue
		}

		close, err := strconv.ParseFloat(strings.TrimSpace(field(record, cols[colPrice])), 64)
		if err != nil {
			log.Printf("[ingest] skipping line %d: invalid price %q", line, field(record, cols[colPrice]))
			continue
		}

		bySymbol[symbol] = append(bySymbol[symbol], entry{ts: ts, day: day, close: close})
	}

	if len(bySymbol) == 0 {
		return nil, nil
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var rows []model.PriceRow
	for _, sym := range symbols {
		entries := bySymbol[sym]
		sort.Slice(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })

		prevClose := entries[0].close
		for i, e := range entries {
			open := prevClose
			if i == 0 {
				open = e.close
			}
			high := open
			low := e.close
			if e.close > high {
				high = e.close
			}
			if open < low {
				low = open
			}

			rows = append(rows, model.PriceRow{
				Symbol: sym,
				Day:    e.day,
				Bar: model.Bar{
					TS:    e.ts,
					Open:  open,
					High:  high,
					Low:   low,
					Close: e.close,
				},
			})
			prevClose = e.close
		}
	}

	return rows, nil
}

// parseTimestamp parses a published date into the UTC-midnight bucket
// timestamp in milliseconds plus its ISO day key.
func parseTimestamp(value string) (int64, string, error) {
	text := strings.TrimSpace(value)
	if text == "" {
		return 0, "", fmt.Errorf("empty date value")
	}

	var parsed time.Time
	var err error
	parsed, err = time.Parse(time.RFC3339, text)
	if err != nil {
		parsed, err = time.Parse("2006-01-02T15:04:05", text)
	}
	if err != nil {
		parsed, err = time.Parse("2006-01-02 15:04:05", text)
	}
	if err != nil {
		for _, layout := range dateLayouts {
			parsed, err = time.Parse(layout, text)
			if err == nil {
				break
			}
		}
	}
	if err != nil {
		return 0, "", fmt.Errorf("unsupported date format %q", text)
	}

	parsed = parsed.UTC()
	midnight := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.UnixMilli(), midnight.Format("2006-01-02"), nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
