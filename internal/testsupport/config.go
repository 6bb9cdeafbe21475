package testsupport

import (
	"path/filepath"
	"testing"

	"chordscout/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithServiceURL overrides the analysis service base URL on the test config.
func WithServiceURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Service.BaseURL = url
	}
}
