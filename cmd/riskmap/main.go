// Command riskmap produces landslide susceptibility maps for Nepal from
// static geomorphological factors and municipality rainfall tables.
//
// Usage:
//
//	riskmap run              # execute one pipeline run
//	riskmap run --serve      # keep serving /metrics and /runz after the run
//	riskmap validate         # check configuration and input files, no raster work
//	riskmap genmock          # write synthetic rainfall CSV fixtures
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	gdaladapter "github.com/couchcryptid/landslide-riskmap/internal/adapter/gdal"
	httpadapter "github.com/couchcryptid/landslide-riskmap/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/landslide-riskmap/internal/adapter/kafka"
	"github.com/couchcryptid/landslide-riskmap/internal/config"
	"github.com/couchcryptid/landslide-riskmap/internal/observability"
	"github.com/couchcryptid/landslide-riskmap/internal/pipeline"
)

func main() {
	// Best-effort .env loading for local development.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "riskmap",
		Short:         "Landslide susceptibility map pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(runCmd(), validateCmd(), genmockCmd())
	return cmd
}

// lastRun publishes the most recent run result to the HTTP status endpoint.
type lastRun struct {
	result atomic.Pointer[pipeline.RunResult]
}

func (l *lastRun) LastRun() *pipeline.RunResult { return l.result.Load() }

func runCmd() *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "keep the HTTP server up after the run until SIGTERM")
	return cmd
}

func runPipeline(parent context.Context, serve bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	engine, err := gdaladapter.NewEngine(logger, cfg.PixelSize)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Artifact notifications are feature-flagged via NOTIFY_ENABLED.
	var notifier pipeline.ArtifactNotifier
	if cfg.NotifyEnabled {
		n := kafkaadapter.NewNotifier(cfg, logger)
		defer n.Close()
		notifier = n
		logger.Info("artifact notifications enabled", "topic", cfg.NotifyTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("artifact notifications disabled")
	}

	orch := pipeline.New(engine, cfg, logger, metrics, notifier)

	runs := &lastRun{}
	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, runs, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runID := uuid.NewString()
	result, runErr := orch.Run(ctx, runID)
	if result != nil {
		runs.result.Store(result)
	}

	if serve && runErr == nil {
		logger.Info("run complete, serving until shutdown signal", "run_id", runID)
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if result.Failed() {
		return fmt.Errorf("run %s: one or more forecast days failed", runID)
	}
	logger.Info("run succeeded", "run_id", runID, "days", len(result.Days))
	return nil
}
