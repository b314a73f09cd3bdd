package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard backend.
type Metrics struct {
	CSVRowsLoaded prometheus.Counter
	IngestDur     prometheus.Histogram

	SetupCalcsTotal prometheus.Counter
	SetupCalcDur    prometheus.Histogram

	HTTPRequestDur *prometheus.HistogramVec // labels: route

	WSClients      prometheus.Gauge
	BroadcastDrops prometheus.Counter
	ReplayedBars   prometheus.Counter
}

// New registers and returns all dashboard metrics on reg. Pass
// prometheus.DefaultRegisterer in production; tests can pass their own
// registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CSVRowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_csv_rows_loaded_total",
			Help: "Price rows loaded from the CSV feed",
		}),
		IngestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_ingest_duration_seconds",
			Help:    "CSV parse + SQLite replace latency",
			Buckets: prometheus.DefBuckets,
		}),
		SetupCalcsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_setup_calcs_total",
			Help: "TD Setup series computations",
		}),
		SetupCalcDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_setup_calc_duration_seconds",
			Help:    "TD Setup calculation latency per series",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		HTTPRequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "REST handler latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_broadcast_drops_total",
			Help: "Envelopes dropped because a client send buffer was full",
		}),
		ReplayedBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_replayed_bars_total",
			Help: "Bar updates emitted by the live-feed replayer",
		}),
	}

	reg.MustRegister(
		m.CSVRowsLoaded, m.IngestDur,
		m.SetupCalcsTotal, m.SetupCalcDur,
		m.HTTPRequestDur,
		m.WSClients, m.BroadcastDrops, m.ReplayedBars,
	)
	return m
}

// ObserveHTTP records one request's duration for a route. Nil-safe so
// handlers work without metrics in tests.
func (m *Metrics) ObserveHTTP(route string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDur.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[metrics] serving /metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}
