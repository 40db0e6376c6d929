// Package main runs a framecore runtime: the element tree with its port
// services, the deferred reclaimer, the Prometheus metrics and health
// endpoint, and optionally structural events published over NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/framecore/admin"
	"github.com/c360/framecore/config"
	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/health"
	"github.com/c360/framecore/metric"
	"github.com/c360/framecore/persist"
	"github.com/c360/framecore/pkg/reclaim"
	"github.com/c360/framecore/pkg/tlsutil"
	"github.com/c360/framecore/port"
	"github.com/c360/framecore/structevents"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "framecore"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args, os.Getenv)
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp(stdout, fs)
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	logger.Info("Starting framecore",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	app, err := newApp(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.shutdown(cliCfg.ShutdownTimeout)

	if cliCfg.Demo {
		if _, err := buildDemo(signalCtx, app.admin, app.runtime, logger); err != nil {
			return fmt.Errorf("build demo: %w", err)
		}
	}
	if cliCfg.Dump != "" {
		snapshot := persist.Take(app.runtime.Root(), persist.All, false)
		if err := snapshot.Encode(stdout, cliCfg.Dump); err != nil {
			return fmt.Errorf("dump element tree: %w", err)
		}
	}

	return app.serve(signalCtx)
}

// loadConfig loads the configuration file, or the defaults when no file is
// given, and applies flag overrides
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	loader.EnableValidation(false)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	switch {
	case cliCfg.MetricsPort == 0:
		cfg.Metrics.Enabled = false
	case cliCfg.MetricsPort > 0:
		cfg.Metrics.Port = cliCfg.MetricsPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app holds the services of a running process
type app struct {
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	reclaimer *reclaim.Reclaimer
	runtime   *element.Runtime
	admin     *admin.Admin
	monitor   *health.Monitor
	metrics   *metric.Server
	broker    *structevents.Broker
	emitter   *structevents.Emitter
	cfg       *config.Config
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		logger:   logger,
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(),
		cfg:      cfg,
	}

	r, err := reclaim.New(cfg.Reclaimer(), reclaim.WithLogger(logger), reclaim.WithMetricsRegistry(a.registry))
	if err != nil {
		return nil, fmt.Errorf("create reclaimer: %w", err)
	}
	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("start reclaimer: %w", err)
	}
	a.reclaimer = r

	rt, err := element.NewRuntime(element.Dependencies{
		Reclaimer: r,
		Metrics:   a.registry.CoreMetrics(),
		Logger:    logger,
		MaxDepth:  cfg.Runtime.MaxDepth,
	})
	if err != nil {
		a.shutdown(time.Second)
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	a.runtime = rt

	types := dtype.NewRegistry()
	if _, err := port.InstallServices(rt, port.ServicesConfig{Types: types, Logger: logger}); err != nil {
		a.shutdown(time.Second)
		return nil, fmt.Errorf("install port services: %w", err)
	}

	modules := admin.NewModuleRegistry()
	if err := registerDemoModules(modules, types, logger); err != nil {
		a.shutdown(time.Second)
		return nil, fmt.Errorf("register module types: %w", err)
	}
	if a.admin, err = admin.New(admin.Dependencies{Runtime: rt, Modules: modules, Logger: logger}); err != nil {
		a.shutdown(time.Second)
		return nil, fmt.Errorf("create admin: %w", err)
	}

	a.monitor.Register("runtime", health.RuntimeCheck(rt))
	a.monitor.Register("reclaimer", health.ReclaimerCheck(r, 0))

	if cfg.Events.Enabled {
		if err := a.startEvents(ctx); err != nil {
			a.shutdown(time.Second)
			return nil, err
		}
	}

	if cfg.Metrics.Enabled {
		a.metrics = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, a.registry, a.monitor.Probe(appName))
	}
	return a, nil
}

// startEvents connects to NATS and attaches the structural event emitter
func (a *app) startEvents(ctx context.Context) error {
	brokerCfg := structevents.DefaultBrokerConfig(a.cfg.Events.URL)
	brokerCfg.ClientName = fmt.Sprintf("%s-%s", appName, a.runtime.ID())
	brokerCfg.Token = a.cfg.Events.Token
	brokerCfg.DrainTimeout = time.Duration(a.cfg.Events.DrainTimeout)
	tlsCfg, err := tlsutil.LoadClientConfig(a.cfg.Events.TLS)
	if err != nil {
		return fmt.Errorf("load events TLS config: %w", err)
	}
	brokerCfg.TLS = tlsCfg

	broker, err := structevents.NewBroker(brokerCfg, a.logger, a.registry.CoreMetrics())
	if err != nil {
		return fmt.Errorf("create event broker: %w", err)
	}
	a.logger.Info("Connecting to NATS", "url", a.cfg.Events.URL)
	if err := broker.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	a.broker = broker
	a.monitor.Register("events", health.BrokerCheck(broker))

	emitter, err := structevents.New(a.runtime, broker, structevents.Config{
		SubjectPrefix: a.cfg.Events.SubjectPrefix,
		BufferSize:    a.cfg.Events.BufferSize,
		Logger:        a.logger,
		Metrics:       a.registry.CoreMetrics(),
	})
	if err != nil {
		return fmt.Errorf("create event emitter: %w", err)
	}
	// The emitter outlives the signal so removal events are flushed by Stop
	if err := emitter.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start event emitter: %w", err)
	}
	a.emitter = emitter
	a.monitor.Register("emitter", health.EmitterCheck(emitter))
	return nil
}

// serve runs the metrics server until ctx is cancelled
func (a *app) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.metrics != nil {
		g.Go(func() error {
			a.logger.Info("Metrics server listening", "address", a.metrics.Address())
			return a.metrics.Start()
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if a.metrics != nil {
			return a.metrics.Stop()
		}
		return nil
	})

	a.logger.Info("framecore started", "runtime", a.runtime.ID().String())
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Received shutdown signal")
	return nil
}

// shutdown deletes the element tree, flushes its removal events and stops
// the services in reverse start order
func (a *app) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.runtime != nil {
		a.runtime.Shutdown()
	}
	if a.emitter != nil {
		if err := a.emitter.Stop(timeout); err != nil {
			a.logger.Warn("Stopping event emitter failed", "error", err)
		}
	}
	if a.broker != nil {
		if err := a.broker.Close(ctx); err != nil {
			a.logger.Warn("Closing event broker failed", "error", err)
		}
	}
	if a.reclaimer != nil {
		if err := a.reclaimer.Stop(timeout); err != nil {
			a.logger.Warn("Stopping reclaimer failed", "error", err)
		}
	}
	a.logger.Info("framecore shutdown complete")
}
