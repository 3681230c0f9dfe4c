package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
// It reports every problem it finds rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if c.Workflow.PollIntervalSeconds <= 0 {
		problems = append(problems, "workflow.poll_interval_seconds must be positive")
	}
	if c.Workflow.SplitterPollIntervalSeconds <= 0 {
		problems = append(problems, "workflow.splitter_poll_interval_seconds must be positive")
	}
	if c.Workflow.LeaseTTLMinutes <= 0 {
		problems = append(problems, "workflow.lease_ttl_minutes must be positive")
	}
	if c.Render.EndBufferSeconds < 0 {
		problems = append(problems, "render.end_buffer_seconds must not be negative")
	}
	if len(c.Render.Encoders) == 0 {
		problems = append(problems, "render.encoders must list at least one encoder")
	}
	if c.Postiz.ScheduleLeadMinutes <= 0 {
		problems = append(problems, "postiz.schedule_lead_minutes must be positive")
	}
	if url := strings.TrimSpace(c.Postiz.BaseURL); url != "" && !strings.HasPrefix(url, "http") {
		problems = append(problems, "postiz.base_url must be an http(s) URL")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}

// ValidateForDaemon extends Validate with requirements that only the daemon
// needs (credentials for external providers).
func (c *Config) ValidateForDaemon() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var problems []string
	if strings.TrimSpace(c.ElevenLabs.APIKey) == "" {
		problems = append(problems, "elevenlabs.api_key is required")
	}
	if strings.TrimSpace(c.ElevenLabs.VoiceID) == "" {
		problems = append(problems, "elevenlabs.voice_id is required")
	}
	if strings.TrimSpace(c.Postiz.APIKey) == "" {
		problems = append(problems, "postiz.api_key is required")
	}
	if strings.TrimSpace(c.Postiz.BaseURL) == "" {
		problems = append(problems, "postiz.base_url is required")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
