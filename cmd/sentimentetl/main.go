package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/sentimentetl/internal/config"
	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/internal/observability"
	"github.com/jittakal/sentimentetl/internal/pipeline"
	"github.com/jittakal/sentimentetl/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("sentimentetl error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	input := flag.String("input", "", "input CSV path (overrides extract.input_path)")
	output := flag.String("output", "", "output directory (overrides load.output_dir)")
	query := flag.String("query", "", "SQL to run against the loaded SQLite database instead of the pipeline")
	flag.Parse()

	queryMode := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "query" {
			queryMode = true
		}
	})

	cfg, err := config.NewLoader().Load(config.ResolvePath(*configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *input != "" {
		cfg.Extract.InputPath = *input
	}
	if *output != "" {
		prev := cfg.Load.OutputDir
		cfg.Load.OutputDir = *output
		if cfg.Observability.Metrics.TextfilePath == filepath.Join(prev, "sentimentetl.prom") {
			cfg.Observability.Metrics.TextfilePath = filepath.Join(*output, "sentimentetl.prom")
		}
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if queryMode {
		_, err := pipeline.RunQuery(ctx, cfg, *query, pipeline.NewPrinter(os.Stdout))
		return err
	}

	logger.Info("starting sentiment etl",
		"version", cfg.Application.Version,
		"environment", cfg.Application.Environment,
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	rc := pipeline.NewRunContext(logger, metrics, os.Stdout)

	if addr := cfg.Observability.Metrics.ListenAddr; addr != "" {
		srv := server.NewServer(addr, rc, registry, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown failed", "error", err)
			}
		}()
	}

	if _, err := pipeline.New(cfg, rc).Run(ctx); err != nil {
		return fmt.Errorf("run %s failed in %s phase: %w", rc.ID, errors.PhaseOf(err), err)
	}
	return nil
}
