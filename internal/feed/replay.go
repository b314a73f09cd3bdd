// Package feed simulates a live data feed by replaying stored daily
// bars through the gateway hub at a configurable speed.
package feed

import (
	"context"
	"log"
	"sort"
	"time"

	"td-dashboard/internal/gateway"
	"td-dashboard/internal/metrics"
	"td-dashboard/internal/model"
	sqlitestore "td-dashboard/internal/store/sqlite"
)

// maxGap caps the sleep between replayed bars so sparse series do not
// stall the stream.
const maxGap = 5 * time.Second

// Replayer walks every stored series in timestamp order and broadcasts
// each bar as a live update. Speed is a multiplier against the real
// gaps between bars: with daily bars, speed 86400 plays one bar per
// second; 0 emits as fast as possible.
type Replayer struct {
	store   *sqlitestore.Store
	hub     *gateway.Hub
	metrics *metrics.Metrics
	speed   float64
}

// New creates a Replayer.
func New(store *sqlitestore.Store, hub *gateway.Hub, m *metrics.Metrics, speed float64) *Replayer {
	return &Replayer{store: store, hub: hub, metrics: m, speed: speed}
}

// Run replays all stored bars once. Blocks until finished or ctx is
// cancelled.
func (r *Replayer) Run(ctx context.Context) error {
	series, err := r.store.AllSeries("")
	if err != nil {
		return err
	}

	type event struct {
		symbol string
		bar    model.Bar
	}
	var events []event
	for sym, bars := range series {
		for _, b := range bars {
			events = append(events, event{symbol: sym, bar: b})
		}
	}
	if len(events) == 0 {
		log.Println("[feed] no bars to replay")
		return nil
	}

	sort.Slice(events, func(i, j int) bool { return events[i].bar.TS < events[j].bar.TS })

	log.Printf("[feed] replaying %d bars across %d symbols, speed=%.0fx", len(events), len(series), r.speed)

	var prevTS int64
	emitted := 0
	for _, e := range events {
		select {
		case <-ctx.Done():
			log.Printf("[feed] cancelled after %d bars", emitted)
			return ctx.Err()
		default:
		}

		if r.speed > 0 && prevTS != 0 {
			gap := time.Duration(e.bar.TS-prevTS) * time.Millisecond
			if gap > 0 {
				scaled := time.Duration(float64(gap) / r.speed)
				if scaled > maxGap {
					scaled = maxGap
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaled):
				}
			}
		}
		prevTS = e.bar.TS

		update := model.BarUpdate{Symbol: e.symbol, Bar: e.bar}
		r.hub.Broadcast(update.Channel(), update.JSON())
		if r.metrics != nil {
			r.metrics.ReplayedBars.Inc()
		}
		emitted++
	}

	log.Printf("[feed] replay complete: %d bars", emitted)
	return nil
}
