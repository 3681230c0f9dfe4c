package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared by all workers.
type Paths struct {
	DataDir        string `toml:"data_dir"`
	LogDir         string `toml:"log_dir"`
	PremadeRoot    string `toml:"premade_root"`
	BackgroundsDir string `toml:"backgrounds_dir"`
}

// ElevenLabs contains configuration for the speech synthesis provider.
type ElevenLabs struct {
	APIKey         string `toml:"api_key"`
	VoiceID        string `toml:"voice_id"`
	ModelID        string `toml:"model_id"`
	OutputFormat   string `toml:"output_format"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Postiz contains configuration for the social posting provider.
type Postiz struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	DefaultPlatform     string `toml:"default_platform"`
	ScheduleLeadMinutes int    `toml:"schedule_lead_minutes"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
}

// Render contains tuning for the final video render.
type Render struct {
	EndBufferSeconds float64  `toml:"end_buffer_seconds"`
	Encoders         []string `toml:"encoders"`
	FontsDir         string   `toml:"fonts_dir"`
}

// Captions contains caption styling and drift correction.
type Captions struct {
	TimeOffsetSeconds float64 `toml:"time_offset_seconds"`
	Preset            string  `toml:"preset"`
	FontName          string  `toml:"font_name"`
	FontSize          int     `toml:"font_size"`
}

// Thumbnails contains thumbnail rendering configuration.
type Thumbnails struct {
	FontPath string `toml:"font_path"`
}

// Workflow contains worker timing configuration.
type Workflow struct {
	PollIntervalSeconds         int `toml:"poll_interval_seconds"`
	SplitterPollIntervalSeconds int `toml:"splitter_poll_interval_seconds"`
	LeaseTTLMinutes             int `toml:"lease_ttl_minutes"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration passed to every worker at construction.
type Config struct {
	Paths      Paths      `toml:"paths"`
	ElevenLabs ElevenLabs `toml:"elevenlabs"`
	Postiz     Postiz     `toml:"postiz"`
	Render     Render     `toml:"render"`
	Captions   Captions   `toml:"captions"`
	Thumbnails Thumbnails `toml:"thumbnails"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	return "~/.config/nightshift/config.toml"
}

// Load reads configuration from path, falling back to the default location
// and then to built-in defaults when no file exists. It returns the resolved
// config, the path that was read (empty when defaults were used), and whether
// a file was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	if candidate == "" {
		candidate = DefaultConfigPath()
	}
	expanded, err := ExpandPath(candidate)
	if err != nil {
		return nil, "", false, fmt.Errorf("expand config path: %w", err)
	}

	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", expanded, err)
		}
		if err := cfg.normalize(); err != nil {
			return nil, "", false, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, "", false, err
		}
		return &cfg, expanded, true, nil
	case errors.Is(err, fs.ErrNotExist):
		if strings.TrimSpace(path) != "" {
			return nil, "", false, fmt.Errorf("config file not found: %s", expanded)
		}
		if err := cfg.normalize(); err != nil {
			return nil, "", false, err
		}
		return &cfg, "", false, nil
	default:
		return nil, "", false, fmt.Errorf("read config %s: %w", expanded, err)
	}
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) (string, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("expand config path: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return "", fmt.Errorf("config already exists: %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write sample config: %w", err)
	}
	return expanded, nil
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return trimmed, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.PremadeRoot, err = ExpandPath(c.Paths.PremadeRoot); err != nil {
		return err
	}
	if c.Paths.BackgroundsDir, err = ExpandPath(c.Paths.BackgroundsDir); err != nil {
		return err
	}
	if c.Thumbnails.FontPath, err = ExpandPath(c.Thumbnails.FontPath); err != nil {
		return err
	}
	if c.Render.FontsDir, err = ExpandPath(c.Render.FontsDir); err != nil {
		return err
	}
	c.Postiz.BaseURL = strings.TrimRight(strings.TrimSpace(c.Postiz.BaseURL), "/")
	c.Postiz.DefaultPlatform = strings.ToLower(strings.TrimSpace(c.Postiz.DefaultPlatform))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.PremadeRoot, c.Paths.BackgroundsDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "nightshift.db")
}

// SharedBackgroundsDir returns the fallback background pool directory.
func (c *Config) SharedBackgroundsDir() string {
	return filepath.Join(c.Paths.BackgroundsDir, "shared")
}

// CustomerBackgroundsDir returns the per-customer background pool directory.
func (c *Config) CustomerBackgroundsDir(customerID string) string {
	return filepath.Join(c.Paths.BackgroundsDir, customerID)
}
