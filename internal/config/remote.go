package config

import (
	"context"
	"sync"

	"chefia-terminal-api/internal/models"
)

// FetchTerminalConfig loads the terminal configuration from the backend.
type FetchTerminalConfig func(ctx context.Context) (*models.TerminalConfig, error)

// TerminalConfigLoader is a process-wide, lazily-initialized, at-most-
// once terminal configuration loader. The first caller runs the fetch;
// concurrent callers wait for that result. A failed fetch resets the
// guard so a later call retries instead of pinning the failure.
type TerminalConfigLoader struct {
	fetch FetchTerminalConfig

	mu       sync.Mutex
	cfg      *models.TerminalConfig
	inflight chan struct{}
}

func NewTerminalConfigLoader(fetch FetchTerminalConfig) *TerminalConfigLoader {
	return &TerminalConfigLoader{fetch: fetch}
}

// Get returns the loaded configuration, fetching it on first use.
func (l *TerminalConfigLoader) Get(ctx context.Context) (*models.TerminalConfig, error) {
	for {
		l.mu.Lock()
		if l.cfg != nil {
			cfg := l.cfg
			l.mu.Unlock()
			return cfg, nil
		}

		if l.inflight == nil {
			ch := make(chan struct{})
			l.inflight = ch
			l.mu.Unlock()

			cfg, err := l.fetch(ctx)

			l.mu.Lock()
			l.inflight = nil
			if err == nil {
				l.cfg = cfg
			}
			l.mu.Unlock()
			close(ch)

			if err != nil {
				return nil, err
			}
			return cfg, nil
		}

		ch := l.inflight
		l.mu.Unlock()

		select {
		case <-ch:
			// Loop: either the fetch succeeded and cfg is set, or it
			// failed and this caller becomes the next loader.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Reset drops the loaded configuration so the next Get fetches again.
func (l *TerminalConfigLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = nil
}
