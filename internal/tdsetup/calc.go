package tdsetup

import "td-dashboard/internal/model"

// lookback is the fixed positional distance to the comparison bar.
const lookback = 4

// maxCount is the emitted saturation ceiling. Streaks keep counting
// internally past it; only the emitted value clamps.
const maxCount = 9

// SetupResult is the per-bar output of Calculate, positionally aligned
// with the input bar slice. A zero field means no active streak on that
// bar (counts are always >= 1 when present). At most one of the two
// fields is non-zero on any bar.
type SetupResult struct {
	Sell int `json:"sellSetup,omitempty"`
	Buy  int `json:"buySetup,omitempty"`
}

// Calculate runs the TD Setup count over bars and returns one result
// per input bar. It is pure and deterministic: the same input yields
// identical output, nothing is cached and bars are never mutated.
//
// A bar extends the sell streak when its close is strictly above the
// close four bars earlier (and, unless the variant is close-only, its
// high is at or above that bar's high); symmetrically for the buy
// streak with low/close below. Equal closes extend neither streak and
// reset both. Comparisons against NaN or infinities fail, which resets
// the affected streak instead of erroring. The first four bars can
// never start a streak.
func (v Variant) Calculate(bars []model.Bar) []SetupResult {
	results := make([]SetupResult, len(bars))

	sellStreak := 0
	buyStreak := 0

	for i := range bars {
		if i < lookback {
			sellStreak = 0
			buyStreak = 0
			continue
		}

		cur := &bars[i]
		ref := &bars[i-lookback]

		sellCond := cur.Close > ref.Close
		buyCond := cur.Close < ref.Close
		if !v.CloseOnly {
			sellCond = sellCond && cur.High >= ref.High
			buyCond = buyCond && cur.Low <= ref.Low
		}

		if sellCond {
			sellStreak++
		} else {
			sellStreak = 0
		}
		if buyCond {
			buyStreak++
		} else {
			buyStreak = 0
		}

		switch v.Emit {
		case EmitCompletionOnly:
			if sellStreak == maxCount {
				results[i].Sell = maxCount
			}
			if buyStreak == maxCount {
				results[i].Buy = maxCount
			}
		default:
			if sellStreak > 0 {
				results[i].Sell = min(sellStreak, maxCount)
			}
			if buyStreak > 0 {
				results[i].Buy = min(buyStreak, maxCount)
			}
		}
	}

	return results
}
