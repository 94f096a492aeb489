package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "1", cfg.TerminalID)
	assert.Equal(t, 10*time.Second, cfg.StatusTTL)
	assert.Equal(t, 5*time.Minute, cfg.ConfigTTL)
	assert.Equal(t, 30*time.Second, cfg.ContingencyTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TERMINAL_ID", "42")
	t.Setenv("TERMINAL_STATUS_TTL", "250ms")
	t.Setenv("SYNC_POLL_INTERVAL", "2s")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "42", cfg.TerminalID)
	assert.Equal(t, 250*time.Millisecond, cfg.StatusTTL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("TERMINAL_STATUS_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.StatusTTL)
}
