package tdsetup

import (
	"math"
	"reflect"
	"testing"

	"td-dashboard/internal/model"
)

// risingBars builds n bars whose closes rise by 1 each bar, with highs
// and lows bracketing the close. Every comparison from index 4 onward
// qualifies for a sell setup in both variants.
func risingBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		close := 100.0 + float64(i)
		bars[i] = model.Bar{
			TS:    int64(i) * 86_400_000,
			Open:  close - 0.5,
			High:  close + 1,
			Low:   close - 1,
			Close: close,
		}
	}
	return bars
}

// fallingBars is the mirror series: every comparison qualifies for a
// buy setup.
func fallingBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		close := 200.0 - float64(i)
		bars[i] = model.Bar{
			TS:    int64(i) * 86_400_000,
			Open:  close + 0.5,
			High:  close + 1,
			Low:   close - 1,
			Close: close,
		}
	}
	return bars
}

func TestCalculate_LengthInvariant(t *testing.T) {
	v := RangeAware()
	for _, n := range []int{0, 1, 3, 4, 5, 13, 50} {
		results := v.Calculate(risingBars(n))
		if len(results) != n {
			t.Errorf("n=%d: expected %d results, got %d", n, n, len(results))
		}
	}
}

func TestCalculate_WarmUp(t *testing.T) {
	results := RangeAware().Calculate(risingBars(13))
	for i := 0; i < 4; i++ {
		if results[i].Sell != 0 || results[i].Buy != 0 {
			t.Errorf("index %d: expected no streak during warm-up, got %+v", i, results[i])
		}
	}
}

func TestCalculate_ShortSeries(t *testing.T) {
	results := RangeAware().Calculate(risingBars(3))
	for i, r := range results {
		if r.Sell != 0 || r.Buy != 0 {
			t.Errorf("index %d: expected empty result for 3-bar series, got %+v", i, r)
		}
	}
}

func TestCalculate_EmptySeries(t *testing.T) {
	results := RangeAware().Calculate(nil)
	if len(results) != 0 {
		t.Fatalf("expected empty results for empty input, got %d", len(results))
	}
}

func TestCalculate_SellCountSequence(t *testing.T) {
	// Indices 4..12 each qualify: expect counts 1..9.
	results := RangeAware().Calculate(risingBars(13))
	for i := 4; i <= 12; i++ {
		want := i - 3
		if results[i].Sell != want {
			t.Errorf("index %d: expected sell=%d, got %d", i, want, results[i].Sell)
		}
		if results[i].Buy != 0 {
			t.Errorf("index %d: expected buy=0 on a sell streak, got %d", i, results[i].Buy)
		}
	}
}

func TestCalculate_BuyCountSequence(t *testing.T) {
	results := RangeAware().Calculate(fallingBars(13))
	for i := 4; i <= 12; i++ {
		want := i - 3
		if results[i].Buy != want {
			t.Errorf("index %d: expected buy=%d, got %d", i, want, results[i].Buy)
		}
	}
}

func TestCalculate_SaturatesAtNine(t *testing.T) {
	// 12 consecutive qualifying bars from index 4: 1..9 then 9,9,9.
	results := RangeAware().Calculate(risingBars(16))
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 9, 9, 9}
	for k, w := range want {
		i := 4 + k
		if results[i].Sell != w {
			t.Errorf("index %d: expected sell=%d, got %d", i, w, results[i].Sell)
		}
	}
}

func TestCalculate_MutualExclusivity(t *testing.T) {
	// A choppy series: whatever the comparisons produce, a bar can
	// never extend both streaks.
	bars := risingBars(40)
	for i := range bars {
		if i%3 == 0 {
			bars[i].Close = 100 - float64(i)
			bars[i].High = bars[i].Close + 1
			bars[i].Low = bars[i].Close - 1
		}
	}
	results := RangeAware().Calculate(bars)
	for i, r := range results {
		if r.Sell != 0 && r.Buy != 0 {
			t.Errorf("index %d: sell=%d and buy=%d set simultaneously", i, r.Sell, r.Buy)
		}
	}
}

func TestCalculate_ResetOnBreak(t *testing.T) {
	bars := risingBars(13)
	// Break the sell condition at index 7: close drops below close[3].
	bars[7].Close = 90
	bars[7].High = 91
	bars[7].Low = 89

	results := RangeAware().Calculate(bars)
	if results[6].Sell != 3 {
		t.Fatalf("index 6: expected sell=3 before the break, got %d", results[6].Sell)
	}
	if results[7].Sell != 0 {
		t.Errorf("index 7: expected sell streak broken, got %d", results[7].Sell)
	}
	// The fresh streak restarts at 1, not at the old count + 1.
	if results[8].Sell != 1 {
		t.Errorf("index 8: expected sell=1 after restart, got %d", results[8].Sell)
	}
}

func TestCalculate_EqualCloseResetsBoth(t *testing.T) {
	bars := risingBars(13)
	// close[8] == close[4]: neither condition holds, both streaks reset.
	bars[8].Close = bars[4].Close
	results := RangeAware().Calculate(bars)
	if results[8].Sell != 0 || results[8].Buy != 0 {
		t.Errorf("index 8: expected both streaks reset on equal close, got %+v", results[8])
	}
	if results[9].Sell != 1 {
		t.Errorf("index 9: expected sell=1 after equality reset, got %d", results[9].Sell)
	}
}

func TestCalculate_RangeConditionDiverges(t *testing.T) {
	// Scenario: closes rise throughout, but high[8] < high[4]. The
	// range-aware variant breaks at index 8; close-only does not.
	bars := risingBars(13)
	bars[8].High = bars[4].High - 0.5

	rangeResults := RangeAware().Calculate(bars)
	closeResults := CloseOnly().Calculate(bars)

	if rangeResults[8].Sell != 0 {
		t.Errorf("range-aware index 8: expected break, got sell=%d", rangeResults[8].Sell)
	}
	if closeResults[8].Sell != 5 {
		t.Errorf("close-only index 8: expected sell=5, got %d", closeResults[8].Sell)
	}
	// Outputs must agree everywhere before the divergence point.
	for i := 0; i < 8; i++ {
		if rangeResults[i] != closeResults[i] {
			t.Errorf("index %d: variants diverged before the range break: %+v vs %+v",
				i, rangeResults[i], closeResults[i])
		}
	}
}

func TestCalculate_NonFinitePricesResetStreak(t *testing.T) {
	bars := risingBars(13)
	bars[7].Close = math.NaN()

	results := RangeAware().Calculate(bars)
	if results[7].Sell != 0 || results[7].Buy != 0 {
		t.Errorf("index 7: expected NaN close to reset streaks, got %+v", results[7])
	}
	// Index 11 compares against the NaN bar and must also fail.
	if results[11].Sell != 0 {
		t.Errorf("index 11: expected comparison against NaN bar to fail, got sell=%d", results[11].Sell)
	}
}

func TestCalculate_CompletionOnlyEmitsNinthBarOnly(t *testing.T) {
	v := RangeAware()
	v.Emit = EmitCompletionOnly

	results := v.Calculate(risingBars(16))
	for i, r := range results {
		if i == 12 {
			if r.Sell != 9 {
				t.Errorf("index 12: expected completion mark 9, got %d", r.Sell)
			}
			continue
		}
		if r.Sell != 0 {
			t.Errorf("index %d: expected no emission outside completion bar, got %d", i, r.Sell)
		}
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	bars := risingBars(30)
	bars[9].Close = 95
	v := CloseOnly()

	first := v.Calculate(bars)
	second := v.Calculate(bars)
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical output for identical input")
	}
}
