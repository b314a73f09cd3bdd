package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// Data
	CSVPath    string
	SQLitePath string

	// HTTP
	ListenAddr  string
	MetricsAddr string

	// Optional Redis preferences cache ("" disables Redis)
	RedisAddr     string
	RedisPassword string

	// Live-feed replay speed multiplier (0 disables the replayer;
	// 86400 plays one daily bar per second)
	ReplaySpeed float64

	// TOTP secret guarding POST /api/prices/reload ("" disables the guard)
	AdminOTPSecret string
}

// Load reads configuration from environment variables with sensible
// defaults. Everything has a default: the dashboard runs standalone
// with no mandatory environment.
func Load() *Config {
	return &Config{
		CSVPath:    getEnv("CSV_PATH", "public/data.csv"),
		SQLitePath: getEnv("SQLITE_PATH", "data/settings.db"),

		ListenAddr:  getEnv("LISTEN_ADDR", ":4000"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9100"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ReplaySpeed: getEnvFloat("REPLAY_SPEED", 0),

		AdminOTPSecret: getEnv("ADMIN_OTP_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		log.Printf("[config] ignoring invalid %s value: %q", key, v)
		return fallback
	}
	return f
}
