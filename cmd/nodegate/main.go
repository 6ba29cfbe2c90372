// Package main implements the entry point for the nodegate gateway.
// nodegate relays client requests to named backend modules over HTTP and
// reports their reachability.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/nodegate/config"
	"github.com/c360/nodegate/dispatch"
	"github.com/c360/nodegate/events"
	"github.com/c360/nodegate/gateway"
	gatewayhttp "github.com/c360/nodegate/gateway/http"
	"github.com/c360/nodegate/health"
	"github.com/c360/nodegate/metric"
	"github.com/c360/nodegate/natsclient"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "nodegate"
)

// natsConnectTimeout bounds the first connection attempt at startup.
const natsConnectTimeout = 10 * time.Second

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, logger, shouldExit, err := initializeCLI(args)
	if shouldExit || err != nil {
		return err
	}

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "modules", len(cfg.Modules))
		return nil
	}
	logger.Debug("Effective configuration", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return app.run(ctx, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI(args []string) (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return nil, nil, true, err
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("Starting nodegate",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// loadConfig merges defaults, the optional file and NODEGATE_* overrides
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	return loader.Load()
}

// app holds every long-running piece of the gateway
type app struct {
	logger        *slog.Logger
	gateway       *gatewayhttp.Gateway
	server        *gatewayhttp.Server
	metricsServer *metric.Server
	natsClient    *natsclient.Client
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	metricsRegistry := metric.NewMetricsRegistry()
	coreMetrics := metricsRegistry.CoreMetrics()

	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("build module registry: %w", err)
	}
	logger.Info("Modules registered", "count", reg.Len(), "modules", reg.Names())

	dispatchOpts := append(cfg.Dispatch.Options(),
		dispatch.WithLogger(logger.With("component", "dispatch")),
		dispatch.WithRecorder(coreMetrics))
	dispatcher := dispatch.New(reg, dispatchOpts...)

	monitor := health.NewMonitor()

	a := &app{logger: logger}

	gatewayOpts := []gatewayhttp.Option{
		gatewayhttp.WithLogger(logger.With("component", "gateway")),
		gatewayhttp.WithMonitor(monitor),
		gatewayhttp.WithRecorder(coreMetrics),
	}

	if cfg.NATS.Enabled {
		notifier, err := a.setupEvents(ctx, cfg.NATS, metricsRegistry, monitor)
		if err != nil {
			return nil, err
		}
		gatewayOpts = append(gatewayOpts, gatewayhttp.WithNotifier(notifier))
	}

	if len(cfg.Security.APIKeys) > 0 {
		gatewayOpts = append(gatewayOpts, gatewayhttp.WithAPIKeys(gatewayhttp.StaticKeys(cfg.Security.APIKeys)))
		logger.Info("API key authentication enabled", "keys", len(cfg.Security.APIKeys))
	}

	if rl := cfg.Server.RateLimit; rl.Enabled() {
		burst := rl.Burst
		if burst == 0 {
			burst = int(rl.RequestsPerSecond) + 1
		}
		gatewayOpts = append(gatewayOpts, gatewayhttp.WithRateLimiter(rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)))
	}

	gw, err := gatewayhttp.NewGateway(dispatcher, gateway.Config{
		Prefix:         cfg.Server.Prefix,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		CORSOrigins:    cfg.Server.CORSOrigins,
		APIKeyHeader:   cfg.Security.APIKeyHeader,
	}, gatewayOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}
	a.gateway = gw

	a.server = gatewayhttp.NewServer(cfg.Server.Addr, gw.Handler(), gatewayhttp.Timeouts{
		Read:  cfg.Server.ReadTimeout.Duration(),
		Write: cfg.Server.WriteTimeout.Duration(),
		Idle:  cfg.Server.IdleTimeout.Duration(),
	}, logger.With("component", "server"))

	if cfg.Metrics.Enabled {
		a.metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
	}

	return a, nil
}

// setupEvents connects to NATS and builds the event notifier. A failed first
// connection is logged and reported as degraded; it never blocks startup.
func (a *app) setupEvents(
	ctx context.Context,
	cfg config.NATSConfig,
	metricsRegistry *metric.MetricsRegistry,
	monitor *health.Monitor,
) (*events.Notifier, error) {
	monitor.Update(natsclient.ComponentName, natsclient.HealthStatus(natsclient.StatusDisconnected))

	client, err := natsclient.NewClient(cfg.URL,
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
		natsclient.WithReconnectWait(cfg.ReconnectWait.Duration()),
		natsclient.WithLogger(a.logger),
		natsclient.WithRecorder(metricsRegistry.CoreMetrics()),
		natsclient.WithStatusCallback(func(s natsclient.ConnectionStatus) {
			monitor.Update(natsclient.ComponentName, natsclient.HealthStatus(s))
		}),
		natsclient.WithName(appName),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}
	a.natsClient = client

	connCtx, cancel := context.WithTimeout(ctx, natsConnectTimeout)
	defer cancel()
	if err := client.Connect(connCtx); err != nil {
		a.logger.Warn("NATS unavailable, gateway events will not be delivered", "error", err)
	}

	notifier := events.NewNotifier(client, cfg.SubjectPrefix,
		events.WithLogger(a.logger.With("component", "events")))
	if err := notifier.RegisterMetrics(metricsRegistry); err != nil {
		return nil, fmt.Errorf("register event metrics: %w", err)
	}
	return notifier, nil
}

// run serves until ctx ends or a server fails, then shuts everything down.
// Both listeners are bound before any goroutine starts, so shutdown always
// finds them running.
func (a *app) run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := a.server.Start(); err != nil {
		return fmt.Errorf("start gateway listener: %w", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Start(); err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = a.server.Stop(stopCtx)
			return fmt.Errorf("start metrics server: %w", err)
		}
		a.logger.Info("Metrics server listening", "address", a.metricsServer.Address())
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return waitServing(gctx, a.server.Done()) })
	if a.metricsServer != nil {
		g.Go(func() error { return waitServing(gctx, a.metricsServer.Done()) })
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.shutdown(shutdownCtx)
	})

	a.logger.Info("nodegate started", "addr", a.server.Addr())

	if err := g.Wait(); err != nil {
		return fmt.Errorf("gateway stopped: %w", err)
	}

	stats := a.gateway.Stats()
	a.logger.Info("nodegate shutdown complete",
		"requests_total", stats.RequestsTotal,
		"requests_failed", stats.RequestsFailed,
		"uptime", stats.Uptime.Round(time.Second).String())
	return nil
}

// waitServing returns the serve error from done, or nil once ctx ends.
func waitServing(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (a *app) shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop gateway listener: %w", err))
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
	}
	// Close NATS last so events from in-flight requests are drained.
	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close NATS: %w", err))
		}
	}

	return stderrors.Join(errs...)
}
