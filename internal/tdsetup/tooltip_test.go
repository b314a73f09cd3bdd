package tdsetup

import "testing"

func fieldValue(tt Tooltip, label string) string {
	for _, f := range tt.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

func TestProject_EmptyResults(t *testing.T) {
	tt := Project(nil, 5)
	if len(tt.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(tt.Fields))
	}
	if v := fieldValue(tt, "Sell Setup"); v != Placeholder {
		t.Errorf("expected placeholder sell value, got %q", v)
	}
	if v := fieldValue(tt, "Buy Setup"); v != Placeholder {
		t.Errorf("expected placeholder buy value, got %q", v)
	}
}

func TestProject_CursorInRange(t *testing.T) {
	results := []SetupResult{{}, {Sell: 3}, {Buy: 7}}

	tt := Project(results, 1)
	if v := fieldValue(tt, "Sell Setup"); v != "3" {
		t.Errorf("expected sell=3, got %q", v)
	}
	if v := fieldValue(tt, "Buy Setup"); v != Placeholder {
		t.Errorf("expected placeholder buy, got %q", v)
	}

	tt = Project(results, 2)
	if v := fieldValue(tt, "Buy Setup"); v != "7" {
		t.Errorf("expected buy=7, got %q", v)
	}
}

func TestProject_CursorOutOfRangeFallsBackToLast(t *testing.T) {
	results := []SetupResult{{Sell: 1}, {Sell: 2}, {Sell: 9}}

	for _, cursor := range []int{-1, 3, 100} {
		tt := Project(results, cursor)
		if v := fieldValue(tt, "Sell Setup"); v != "9" {
			t.Errorf("cursor %d: expected last bar's sell=9, got %q", cursor, v)
		}
	}
}

func TestProject_BarWithNoStreak(t *testing.T) {
	results := []SetupResult{{Sell: 4}, {}}
	tt := Project(results, 1)
	if v := fieldValue(tt, "Sell Setup"); v != Placeholder {
		t.Errorf("expected placeholder on streak-free bar, got %q", v)
	}
}
