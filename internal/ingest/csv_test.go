package ingest

import (
	"strings"
	"testing"
)

func TestLoad_SynthesizesOHLC(t *testing.T) {
	csv := strings.Join([]string{
		"Symbol,PublishedDate,Price",
		"AAPL,2024-01-02,185.5",
		"AAPL,2024-01-03,187.0",
		"AAPL,2024-01-04,184.0",
	}, "\n")

	rows, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	// First bar opens at its own close.
	if rows[0].Bar.Open != 185.5 || rows[0].Bar.Close != 185.5 {
		t.Errorf("first bar: expected open=close=185.5, got %+v", rows[0].Bar)
	}
	// Subsequent bars open at the previous close.
	if rows[1].Bar.Open != 185.5 || rows[1].Bar.High != 187.0 || rows[1].Bar.Low != 185.5 {
		t.Errorf("second bar: expected open=185.5 high=187 low=185.5, got %+v", rows[1].Bar)
	}
	// Down day: high is the open, low is the close.
	if rows[2].Bar.Open != 187.0 || rows[2].Bar.High != 187.0 || rows[2].Bar.Low != 184.0 {
		t.Errorf("third bar: expected open=high=187 low=184, got %+v", rows[2].Bar)
	}
}

func TestLoad_SortsWithinSymbol(t *testing.T) {
	csv := strings.Join([]string{
		"symbol,publisheddate,price",
		"AAPL,2024-01-04,184.0",
		"AAPL,2024-01-02,185.5",
		"AAPL,2024-01-03,187.0",
	}, "\n")

	rows, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rows[0].Day != "2024-01-02" || rows[2].Day != "2024-01-04" {
		t.Errorf("expected rows time-ordered, got %s..%s", rows[0].Day, rows[2].Day)
	}
	// Open of the middle bar must come from the chronologically
	// previous close, not file order.
	if rows[1].Bar.Open != 185.5 {
		t.Errorf("expected open from previous close 185.5, got %v", rows[1].Bar.Open)
	}
}

func TestLoad_HeaderCaseAndBOM(t *testing.T) {
	csv := "\uFEFFSYMBOL , PublishedDate ,PRICE\nMSFT,2024-01-02,370\n"
	rows, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 || rows[0].Symbol != "MSFT" {
		t.Errorf("expected 1 MSFT row, got %v", rows)
	}
}

func TestLoad_MissingColumnsIsError(t *testing.T) {
	csv := "symbol,price\nAAPL,185\n"
	if _, err := Load(strings.NewReader(csv)); err == nil {
		t.Fatal("expected error for missing publisheddate column")
	}
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	csv := strings.Join([]string{
		"symbol,publisheddate,price",
		",2024-01-02,185.5",        // missing symbol
		"AAPL,not-a-date,185.5",    // bad date
		"AAPL,2024-01-03,banana",   // bad price
		"AAPL,2024-01-04,184.0",    // good
	}, "\n")

	rows, err := Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 surviving row, got %d", len(rows))
	}
	if rows[0].Day != "2024-01-04" {
		t.Errorf("expected the good row, got %+v", rows[0])
	}
}

func TestLoad_DateFormats(t *testing.T) {
	for _, tc := range []struct {
		date string
		day  string
	}{
		{"2024-01-02", "2024-01-02"},
		{"2024/01/02", "2024-01-02"},
		{"01/02/2024", "2024-01-02"},
		{"01/02/24", "2024-01-02"},
		{"2024-01-02T15:30:00Z", "2024-01-02"},
		{"2024-01-02T15:30:00", "2024-01-02"},
		{"2024-01-02 15:30:00", "2024-01-02"},
	} {
		csv := "symbol,publisheddate,price\nAAPL," + tc.date + ",185\n"
		rows, err := Load(strings.NewReader(csv))
		if err != nil {
			t.Errorf("date %q: %v", tc.date, err)
			continue
		}
		if len(rows) != 1 {
			t.Errorf("date %q: expected 1 row, got %d", tc.date, len(rows))
			continue
		}
		if rows[0].Day != tc.day {
			t.Errorf("date %q: expected day %s, got %s", tc.date, tc.day, rows[0].Day)
		}
		// Timestamp is the UTC midnight of the day in ms.
		if rows[0].Bar.TS%86_400_000 != 0 {
			t.Errorf("date %q: expected midnight-aligned ts, got %d", tc.date, rows[0].Bar.TS)
		}
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	rows, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if rows != nil {
		t.Errorf("expected nil rows for empty input, got %v", rows)
	}

	rows, err = Load(strings.NewReader("symbol,publisheddate,price\n"))
	if err != nil {
		t.Fatalf("load header-only: %v", err)
	}
	if rows != nil {
		t.Errorf("expected nil rows for header-only input, got %v", rows)
	}
}
