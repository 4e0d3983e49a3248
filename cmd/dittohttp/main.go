package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http1"
	"github.com/marmos91/dittohttp/pkg/config"
	"github.com/marmos91/dittohttp/pkg/server"
	"github.com/marmos91/dittohttp/pkg/static"
)

const usage = `DittoHTTP - Minimal HTTP/1.x server

Usage:
  dittohttp <command> [flags]

Commands:
  init     Write a sample configuration file
  start    Start the server

Flags for init:
  --config string   Path to write the config file (default: $XDG_CONFIG_HOME/dittohttp/config.yaml)
  --force           Overwrite an existing config file

Flags for start:
  --config string   Path to the config file (default: $XDG_CONFIG_HOME/dittohttp/config.yaml)

Environment variables override file values, e.g. DITTOHTTP_ADAPTERS_HTTP_PORT=8080
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to write the config file")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Configure logger
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	fmt.Println("DittoHTTP - Minimal HTTP/1.x server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics first, so the stores and adapter pick up Prometheus collectors
	metricsResult := config.InitializeMetrics(cfg)
	metricsDone := make(chan error, 1)
	if metricsResult.Server != nil {
		go func() {
			metricsDone <- metricsResult.Server.Start(ctx)
		}()
	}

	store, err := config.CreateContentStore(ctx, &cfg.Static.Content)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close content store: %v", err)
		}
	}()
	logger.Info("Content store: %s", cfg.Static.Content.Type)

	httpAdapter, err := config.CreateAdapter(cfg, metricsResult.HTTPMetrics)
	if err != nil {
		return err
	}

	srv := server.New(httpAdapter, static.NewHandler(store, cfg.Static.AllowedPaths))

	for _, path := range cfg.Static.Templates {
		tmpl, err := static.NewTemplateHandler(store, path)
		if err != nil {
			return fmt.Errorf("template %s: %w", path, err)
		}
		if err := srv.AddHandler(http1.MethodGet, path, tmpl); err != nil {
			return err
		}
	}

	h := cfg.Adapters.HTTP
	logger.Info("Server configuration:")
	logger.Info("  Port: %d", h.Port)
	logger.Info("  Worker pool: %d (queue %d)", h.WorkerPoolSize, h.QueueSize)
	logger.Info("  Read timeout: %v", h.ReadTimeout)
	logger.Info("  Write timeout: %v", h.WriteTimeout)
	logger.Info("  Overload backoff: %v", h.OverloadBackoff)
	logger.Info("  Shutdown timeout: %v", h.ShutdownTimeout)
	logger.Info("  Allowed paths: %d", len(cfg.Static.AllowedPaths))

	if err := srv.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running on port %d. Press Ctrl+C to stop.", httpAdapter.Port())

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-metricsDone:
		logger.Error("Metrics server stopped unexpectedly: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	stopErr := srv.Stop(shutdownCtx)

	// Stops the metrics server
	cancel()

	if stopErr != nil {
		return fmt.Errorf("server shutdown: %w", stopErr)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
