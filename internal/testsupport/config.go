// Package testsupport provides shared helpers for package tests: temp-dir
// configs and queue store setup.
package testsupport

import (
	"path/filepath"
	"testing"

	"nightshift/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.PremadeRoot = filepath.Join(base, "premade")
	cfg.Paths.BackgroundsDir = filepath.Join(base, "backgrounds")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithCredentials fills in dummy provider credentials so daemon-level
// validation passes in tests.
func WithCredentials() ConfigOption {
	return func(cfg *config.Config) {
		cfg.ElevenLabs.APIKey = "test-key"
		cfg.ElevenLabs.VoiceID = "test-voice"
		cfg.Postiz.APIKey = "test-key"
		cfg.Postiz.BaseURL = "http://127.0.0.1:0/api/public/v1"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
