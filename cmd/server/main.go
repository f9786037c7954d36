// Command server runs the workflow generation HTTP API.
//
// Usage:
//
//	server [options]
//
// Options:
//
//	-config string     Path to the YAML configuration file (env WORKFLOWGEN_CONFIG)
//	-addr string       HTTP listen address, overrides the file (env WORKFLOWGEN_ADDR)
//	-log-level string  debug, info, warn or error (env WORKFLOWGEN_LOG_LEVEL)
//	-watch             Reload providers when the configuration file changes
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GoCodeAlone/workflowgen/ai"
	"github.com/GoCodeAlone/workflowgen/api"
	"github.com/GoCodeAlone/workflowgen/config"
	"github.com/GoCodeAlone/workflowgen/observability/metrics"
	"github.com/GoCodeAlone/workflowgen/observability/tracing"
	"github.com/GoCodeAlone/workflowgen/setup"
)

var (
	configFile = flag.String("config", "", "Path to the YAML configuration file")
	addr       = flag.String("addr", "", "HTTP listen address (overrides the configuration file)")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn or error")
	watch      = flag.Bool("watch", false, "Reload providers when the configuration file changes")
)

// envFlags maps flag names to the environment variables that may set them.
var envFlags = map[string]string{
	"config":    "WORKFLOWGEN_CONFIG",
	"addr":      "WORKFLOWGEN_ADDR",
	"log-level": "WORKFLOWGEN_LOG_LEVEL",
}

// envOrFlag returns the environment value for key when it is set, otherwise
// the flag value.
func envOrFlag(key string, flagVal *string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if flagVal == nil {
		return ""
	}
	return *flagVal
}

// applyEnvOverrides fills flags from the environment. Flags given explicitly
// on the command line win.
func applyEnvOverrides() {
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	targets := map[string]*string{
		"config":    configFile,
		"addr":      addr,
		"log-level": logLevel,
	}
	for name, key := range envFlags {
		if explicit[name] {
			continue
		}
		dst := targets[name]
		*dst = envOrFlag(key, dst)
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// loadConfig reads the configuration file when one is given and layers the
// environment and explicit flags on top.
func loadConfig(logger *slog.Logger) (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Info("No config file specified, using defaults")
	}
	cfg.ApplyEnv()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// serverApp holds the long-lived components of the HTTP server.
type serverApp struct {
	cfg       *config.Config
	logger    *slog.Logger
	service   *ai.Service
	collector *metrics.Collector
	limiter   *api.RateLimiter
	tracing   *tracing.Provider
	handler   http.Handler
}

// newServerApp wires the generation service and the HTTP handler chain.
func newServerApp(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*serverApp, error) {
	app := &serverApp{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewWithConfig(cfg.Metrics),
	}

	if cfg.Tracing.Enabled() {
		tp, err := tracing.NewProvider(ctx, cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
		app.tracing = tp
		logger.Info("Tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	opts := []ai.Option{ai.WithRecorder(app.collector)}
	if app.tracing != nil {
		opts = append(opts, ai.WithTracerProvider(app.tracing.TracerProvider()))
	}
	svc, err := setup.NewService(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	app.service = svc
	app.limiter = api.NewRateLimiter(cfg.Server.RateLimitPerMinute)

	mux := http.NewServeMux()
	ai.NewHandler(svc, logger).RegisterRoutes(mux, app.limiter.Middleware)
	mux.Handle("GET "+app.collector.Path(), app.collector.Handler())

	// The metrics middleware reads r.Pattern, so it must receive the same
	// request the mux routes.
	var h http.Handler = app.collector.Middleware(mux)
	h = api.CORS(cfg.Server.CORSOrigins, nil)(h)
	h = tracing.Middleware(ai.ServiceName)(h)
	app.handler = h

	return app, nil
}

// reload swaps in the providers of a changed configuration file. Listener,
// logging and tracing settings take effect on restart.
func (a *serverApp) reload(evt config.ChangeEvent) {
	if err := setup.Reload(a.service, evt.Config, a.logger); err != nil {
		a.logger.Error("Config reload failed", "source", evt.Source, "error", err)
	}
}

// run serves HTTP until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, app *serverApp, listenAddr string) error {
	timeout := app.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if *watch && *configFile != "" {
		w := config.NewWatcher(config.NewFileSource(*configFile), app.reload, config.WithWatchLogger(app.logger))
		if err := w.Start(); err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		app.logger.Info("Watching configuration file", "path", *configFile)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("Starting server", "addr", listenAddr, "providers", app.service.Providers())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		app.limiter.Stop()
		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
		if app.tracing != nil {
			if err := app.tracing.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func main() {
	flag.Parse()
	applyEnvOverrides()

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := loadConfig(bootLogger)
	if err != nil {
		bootLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger, err := newLogger(os.Stdout, cfg.Log)
	if err != nil {
		bootLogger.Error("Invalid log settings", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newServerApp(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	if err := run(ctx, app, cfg.Server.Addr); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
