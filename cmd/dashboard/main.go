package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"td-dashboard/config"
	"td-dashboard/internal/feed"
	"td-dashboard/internal/gateway"
	"td-dashboard/internal/logger"
	"td-dashboard/internal/metrics"
	sqlitestore "td-dashboard/internal/store/sqlite"
	"td-dashboard/internal/tdsetup"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("dashboard", slog.LevelInfo)
	slog.Info("starting dashboard backend")

	cfg := config.Load()

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("[dashboard] create data dir: %v", err)
		}
	}

	store, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[dashboard] open sqlite: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	go metrics.Serve(ctx, cfg.MetricsAddr)

	// Redis is optional: without it preferences are SQLite-only.
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[dashboard] WARNING: redis unreachable at %s, running without cache: %v", cfg.RedisAddr, err)
			rdb = nil
		} else {
			log.Printf("[dashboard] redis connected at %s", cfg.RedisAddr)
		}
	}

	tdsetup.RegisterDefaults()

	hub := gateway.NewHub()
	hub.Metrics = m

	api := &gateway.API{
		Store:     store,
		Prefs:     gateway.NewPrefsStore(store, rdb, hub),
		Hub:       hub,
		Registry:  tdsetup.Default,
		Metrics:   m,
		CSVPath:   cfg.CSVPath,
		OTPSecret: cfg.AdminOTPSecret,
	}

	if count, err := api.Reload(); err != nil {
		log.Printf("[dashboard] WARNING: initial price load failed: %v", err)
	} else if count > 0 {
		log.Printf("[dashboard] loaded %d price rows", count)
	}

	if cfg.ReplaySpeed > 0 {
		replayer := feed.New(store, hub, m, cfg.ReplaySpeed)
		go func() {
			if err := replayer.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("[dashboard] replay error: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[dashboard] listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[dashboard] http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[dashboard] shutdown error: %v", err)
	}
}
