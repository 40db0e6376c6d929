package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	MetricsPort     int
	ShutdownTimeout time.Duration
	Demo            bool
	Dump            string
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

// parseFlags reads flags with FRAMECORE_* environment fallbacks. Empty
// values keep the setting of the configuration file.
func parseFlags(fs *flag.FlagSet, args []string, getenv func(string) string) (*CLIConfig, error) {
	env := envReader{getenv: getenv}
	cfg := &CLIConfig{}

	fs.StringVar(&cfg.ConfigPath, "config", env.str("FRAMECORE_CONFIG", ""),
		"Path to a .json, .yaml or .toml configuration file (env: FRAMECORE_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", env.str("FRAMECORE_CONFIG", ""),
		"Path to configuration file (env: FRAMECORE_CONFIG)")
	fs.StringVar(&cfg.LogLevel, "log-level", env.str("FRAMECORE_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: FRAMECORE_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", env.str("FRAMECORE_LOG_FORMAT", ""),
		"Log format: json, text (env: FRAMECORE_LOG_FORMAT)")
	fs.BoolVar(&cfg.Debug, "debug", env.boolean("FRAMECORE_DEBUG", false),
		"Enable debug logging (env: FRAMECORE_DEBUG)")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", env.integer("FRAMECORE_METRICS_PORT", -1),
		"Metrics and health port, 0 to disable (env: FRAMECORE_METRICS_PORT)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		env.duration("FRAMECORE_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: FRAMECORE_SHUTDOWN_TIMEOUT)")
	fs.BoolVar(&cfg.Demo, "demo", env.boolean("FRAMECORE_DEMO", false),
		"Build a demo topology at startup (env: FRAMECORE_DEMO)")
	fs.StringVar(&cfg.Dump, "dump", env.str("FRAMECORE_DUMP", ""),
		"Print the element tree as json or yaml after startup (env: FRAMECORE_DUMP)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() { printDetailedHelp(fs.Output(), fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if cfg.LogLevel != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.MetricsPort < -1 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}
	if cfg.Dump != "" && !slices.Contains([]string{"json", "yaml"}, cfg.Dump) {
		return fmt.Errorf("invalid dump format: %s", cfg.Dump)
	}
	return nil
}

func printDetailedHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - framework element runtime

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Run with a configuration file
  %s --config=/etc/framecore/framecore.yaml

  # Build the demo topology and print it
  %s --demo --dump=yaml --log-format=text

  # Publish structural events to NATS
  export FRAMECORE_EVENTS_ENABLED=true
  export FRAMECORE_NATS_URL=nats://localhost:4222
  %s

  # Validate configuration only
  %s --config=framecore.toml --validate

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}

type envReader struct {
	getenv func(string) string
}

func (e envReader) str(key, defaultValue string) string {
	if value := e.getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if value := e.getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if value := e.getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	if value := e.getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
