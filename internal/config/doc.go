// Package config loads, validates, and defaults the TOML configuration that
// every worker receives at construction time.
package config
