package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/pkg/reclaim"
	"github.com/c360/framecore/pkg/tlsutil"
	"github.com/c360/framecore/structevents"
)

// Config is the complete configuration of a framecore process
type Config struct {
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime" toml:"runtime"`
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
	Events  EventsConfig  `json:"events" yaml:"events" toml:"events"`
}

// RuntimeConfig bounds the element tree and paces the reclaimer
type RuntimeConfig struct {
	MaxDepth       int      `json:"max_depth" yaml:"max_depth" toml:"max_depth"`
	MaxLinks       int      `json:"max_links" yaml:"max_links" toml:"max_links"` // must not exceed element.MaxLinks
	CyclePeriod    Duration `json:"cycle_period" yaml:"cycle_period" toml:"cycle_period"`
	SafetyInterval Duration `json:"safety_interval" yaml:"safety_interval" toml:"safety_interval"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"` // "json" or "text"
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Port    int    `json:"port" yaml:"port" toml:"port"`
	Path    string `json:"path" yaml:"path" toml:"path"`
}

// EventsConfig controls publishing of structural events over NATS
type EventsConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	URL           string   `json:"url" yaml:"url" toml:"url"`
	SubjectPrefix string   `json:"subject_prefix" yaml:"subject_prefix" toml:"subject_prefix"`
	BufferSize    int      `json:"buffer_size" yaml:"buffer_size" toml:"buffer_size"`
	Token         string   `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	DrainTimeout  Duration `json:"drain_timeout" yaml:"drain_timeout" toml:"drain_timeout"`

	TLS tlsutil.ClientConfig `json:"tls" yaml:"tls" toml:"tls"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	rc := reclaim.DefaultConfig()
	return &Config{
		Runtime: RuntimeConfig{
			MaxDepth:       element.DefaultMaxDepth,
			MaxLinks:       element.MaxLinks,
			CyclePeriod:    Duration(rc.CyclePeriod),
			SafetyInterval: Duration(rc.SafetyInterval),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Events: EventsConfig{
			Enabled:       false,
			URL:           "nats://localhost:4222",
			SubjectPrefix: structevents.DefaultSubjectPrefix,
			BufferSize:    1024,
			DrainTimeout:  Duration(5 * time.Second),
		},
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Runtime.MaxDepth <= 0 {
		return fmt.Errorf("runtime.max_depth must be positive, got %d", c.Runtime.MaxDepth)
	}
	if c.Runtime.MaxLinks <= 0 || c.Runtime.MaxLinks > element.MaxLinks {
		return fmt.Errorf("runtime.max_links must be in [1, %d], got %d", element.MaxLinks, c.Runtime.MaxLinks)
	}
	if err := c.Reclaimer().Validate(); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level '%s' is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format '%s' is not one of json, text", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path '%s' must start with '/'", c.Metrics.Path)
		}
	}

	if c.Events.Enabled {
		if c.Events.URL == "" {
			return fmt.Errorf("events.url is required when events are enabled")
		}
		if !isValidSubject(c.Events.SubjectPrefix) {
			return fmt.Errorf(
				"events.subject_prefix '%s' is not valid for NATS subjects (alphanumeric tokens separated by dots)",
				c.Events.SubjectPrefix,
			)
		}
		if c.Events.BufferSize < 0 {
			return fmt.Errorf("events.buffer_size must not be negative, got %d", c.Events.BufferSize)
		}
		if err := c.Events.TLS.Validate(); err != nil {
			return fmt.Errorf("events.tls: %w", err)
		}
	}
	return nil
}

// Reclaimer returns the reclaimer settings of the runtime section
func (c *Config) Reclaimer() reclaim.Config {
	return reclaim.Config{
		CyclePeriod:    time.Duration(c.Runtime.CyclePeriod),
		SafetyInterval: time.Duration(c.Runtime.SafetyInterval),
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// isValidSubject checks that s is a sequence of non-empty dot separated
// tokens without wildcards or whitespace
func isValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, token := range strings.Split(s, ".") {
		if token == "" {
			return false
		}
		for _, r := range token {
			if r == '*' || r == '>' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				return false
			}
		}
	}
	return true
}

// Duration is a time.Duration written as a string such as "1s" or "14d"
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDurationWithDays(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}
