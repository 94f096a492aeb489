package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	BackendURL   string
	BackendToken string
	TerminalID   string

	HTTPTimeout  time.Duration
	PollInterval time.Duration

	// cache TTLs
	StatusTTL      time.Duration
	CashierTTL     time.Duration
	ConfigTTL      time.Duration
	ContingencyTTL time.Duration
}

func Load() Config {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	return Config{
		Port:         getEnv("PORT", "8080"),
		BackendURL:   getEnv("BACKEND_URL", "http://localhost:8000/api/v1"),
		BackendToken: os.Getenv("BACKEND_TOKEN"),
		TerminalID:   getEnv("TERMINAL_ID", "1"),

		HTTPTimeout:  getDuration("HTTP_TIMEOUT", 15*time.Second),
		PollInterval: getDuration("SYNC_POLL_INTERVAL", 5*time.Second),

		StatusTTL:      getDuration("TERMINAL_STATUS_TTL", 10*time.Second),
		CashierTTL:     getDuration("CASHIER_TTL", 10*time.Second),
		ConfigTTL:      getDuration("TERMINAL_CONFIG_TTL", 5*time.Minute),
		ContingencyTTL: getDuration("CONTINGENCY_TTL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
