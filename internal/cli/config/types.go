// Package config provides configuration management for the leapstats CLI.
//
// Values are layered with koanf: built-in defaults, then leapstats.yaml, then
// LEAPSTATS_* environment variables, then explicitly set command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
)

// Config holds all CLI configuration options.
type Config struct {
	Backend   BackendConfig `koanf:"backend" yaml:"backend" json:"backend"`
	Pager     PagerConfig   `koanf:"pager" yaml:"pager" json:"pager"`
	UI        UIConfig      `koanf:"ui" yaml:"ui" json:"ui"`
	Verbose   bool          `koanf:"verbose" yaml:"verbose" json:"verbose"`
	LogFormat string        `koanf:"log_format" yaml:"log_format" json:"log_format"`
	Output    string        `koanf:"output" yaml:"output" json:"output"`
}

// BackendConfig describes how to reach the box score API.
type BackendConfig struct {
	URL       string        `koanf:"url" yaml:"url" json:"url"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout" json:"timeout"` // zero disables the timeout
	UserAgent string        `koanf:"user_agent" yaml:"user_agent" json:"user_agent"`
}

// PagerConfig tunes client-side paging.
type PagerConfig struct {
	PageSize  int `koanf:"page_size" yaml:"page_size" json:"page_size"`
	Lookahead int `koanf:"lookahead" yaml:"lookahead" json:"lookahead"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int           `koanf:"port" yaml:"port" json:"port"`
	AutoOpen      bool          `koanf:"auto_open" yaml:"auto_open" json:"auto_open"`
	Watch         bool          `koanf:"watch" yaml:"watch" json:"watch"`
	SessionTTL    time.Duration `koanf:"session_ttl" yaml:"session_ttl" json:"session_ttl"`
	SessionSecret string        `koanf:"session_secret" yaml:"session_secret,omitempty" json:"session_secret,omitempty"`
}

// Default configuration values.
const (
	DefaultPort       = 8765
	DefaultSessionTTL = 30 * time.Minute
	DefaultLogFormat  = "text"
	DefaultOutput     = "auto" // TTY=text, non-TTY=markdown
	DefaultUserAgent  = "leapstats"
)

// ConfigFileNames are searched, in order, in the working directory.
var ConfigFileNames = []string{"leapstats.yaml", "leapstats.yml"}

// defaults returns the flat key map loaded before any other source.
func defaults() map[string]any {
	return map[string]any{
		"backend.url":        api.DefaultBaseURL,
		"backend.timeout":    "0s",
		"backend.user_agent": DefaultUserAgent,
		"pager.page_size":    pager.DefaultPageSize,
		"pager.lookahead":    pager.DefaultLookahead,
		"ui.port":            DefaultPort,
		"ui.auto_open":       true,
		"ui.watch":           false,
		"ui.session_ttl":     DefaultSessionTTL.String(),
		"ui.session_secret":  "",
		"verbose":            false,
		"log_format":         DefaultLogFormat,
		"output":             DefaultOutput,
	}
}

// ClientOptions returns the backend client options described by c.
func (c *Config) ClientOptions() []api.Option {
	opts := []api.Option{api.WithBaseURL(c.Backend.URL)}
	if c.Backend.UserAgent != "" {
		opts = append(opts, api.WithUserAgent(c.Backend.UserAgent))
	}
	if c.Backend.Timeout > 0 {
		opts = append(opts, api.WithTimeout(c.Backend.Timeout))
	}
	return opts
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.UI.SessionSecret != "" {
		c.UI.SessionSecret = "********"
	}
	return c
}
