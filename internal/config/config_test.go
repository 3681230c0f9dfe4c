package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nightshift/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Render.EndBufferSeconds != 10.0 {
		t.Fatalf("unexpected end buffer default: %v", cfg.Render.EndBufferSeconds)
	}
	if cfg.Workflow.LeaseTTLMinutes != 10 {
		t.Fatalf("unexpected lease TTL default: %d", cfg.Workflow.LeaseTTLMinutes)
	}
	if len(cfg.Render.Encoders) == 0 || cfg.Render.Encoders[len(cfg.Render.Encoders)-1] != "libx264" {
		t.Fatalf("expected libx264 as final encoder fallback, got %v", cfg.Render.Encoders)
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[postiz]
base_url = "https://postiz.example/api/public/v1/"
default_platform = "TikTok"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, loadedPath, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found || loadedPath != path {
		t.Fatalf("expected file to be found at %s, got %s found=%v", path, loadedPath, found)
	}
	if cfg.Postiz.BaseURL != "https://postiz.example/api/public/v1" {
		t.Fatalf("base URL not normalized: %q", cfg.Postiz.BaseURL)
	}
	if cfg.Postiz.DefaultPlatform != "tiktok" {
		t.Fatalf("platform not lowercased: %q", cfg.Postiz.DefaultPlatform)
	}
	// Unset sections keep defaults.
	if cfg.Workflow.PollIntervalSeconds != 10 {
		t.Fatalf("defaults not applied: %d", cfg.Workflow.PollIntervalSeconds)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = ""
	cfg.Workflow.PollIntervalSeconds = 0
	cfg.Render.Encoders = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"data_dir", "poll_interval_seconds", "encoders"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing mention of %s", err.Error(), want)
		}
	}
}

func TestValidateForDaemonRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateForDaemon(); err == nil {
		t.Fatal("expected daemon validation to require credentials")
	}
	cfg.ElevenLabs.APIKey = "key"
	cfg.ElevenLabs.VoiceID = "voice"
	cfg.Postiz.APIKey = "key"
	cfg.Postiz.BaseURL = "https://postiz.example/api/public/v1"
	if err := cfg.ValidateForDaemon(); err != nil {
		t.Fatalf("unexpected daemon validation error: %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	written, err := config.WriteSample(path)
	if err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if written != path {
		t.Fatalf("unexpected written path %s", written)
	}
	if _, err := config.WriteSample(path); err == nil {
		t.Fatal("expected second WriteSample to fail")
	}
}
