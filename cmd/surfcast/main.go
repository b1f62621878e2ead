// Command surfcast runs one orchestrator command (collect, process,
// forecast, or validate) against the configured data sources and
// validation store, while serving /healthz, /readyz, and /metrics for
// the duration of the run.
//
// Usage:
//
//	surfcast -cmd forecast
//	surfcast -cmd collect
//	surfcast -cmd process -bundle-id 01J...
//	surfcast -cmd validate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
	"github.com/stonezone/surfcastai/internal/fetch"
	"github.com/stonezone/surfcastai/internal/httpapi"
	"github.com/stonezone/surfcastai/internal/observability"
	"github.com/stonezone/surfcastai/internal/orchestrator"
	"github.com/stonezone/surfcastai/internal/security"
	"github.com/stonezone/surfcastai/internal/validation/store"
)

// defaultFallbackRateLimit applies to any host not named in
// config.RateLimits: conservative enough not to trip a courtesy ban on a
// source the operator never tuned explicitly.
var defaultFallbackRateLimit = config.RateLimit{RequestsPerSecond: 1, BurstSize: 2}

func main() {
	cmdFlag := flag.String("cmd", string(orchestrator.CommandForecast), "orchestrator command: collect, process, forecast, validate")
	bundleID := flag.String("bundle-id", "", "bundle ID to process/forecast against (defaults to most recent)")
	skipCollection := flag.Bool("skip-collection", false, "forecast: reuse bundle-id instead of collecting first")
	horizonDays := flag.Float64("horizon-days", orchestrator.DefaultHorizonDays, "forecast horizon in days, used for confidence scoring")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	validator := security.NewValidator(&net.Resolver{}, cfg.AllowedDataDomains)
	limiter := fetch.NewHostLimiter(cfg.RateLimits, defaultFallbackRateLimit)
	fetcher := fetch.New(validator, limiter, cfg.FetchTimeout, logger, metrics)

	bundles := bundle.NewManager(cfg.DataRoot)

	s, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open validation store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.Migrate(context.Background()); err != nil {
		logger.Error("failed to migrate validation store", "error", err)
		os.Exit(1)
	}

	ready := httpapi.StoreReadiness{Store: s, Bundles: bundles}
	httpSrv := httpapi.NewServer(cfg.HTTPAddr, ready, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	deps := orchestrator.Deps{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Bundles: bundles,
		Fetcher: fetcher,
		Store:   s,
	}
	opts := orchestrator.Options{
		BundleID:       *bundleID,
		SkipCollection: *skipCollection,
		HorizonDays:    *horizonDays,
	}

	result, runErr := orchestrator.Run(ctx, deps, orchestrator.Command(*cmdFlag), opts)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil {
		logger.Error("orchestrator run failed", "cmd", *cmdFlag, "error", runErr)
		os.Exit(1)
	}

	logReport(logger, *cmdFlag, result)
}

func logReport(logger *slog.Logger, cmd string, result orchestrator.Result) {
	args := []any{"cmd", cmd, "bundle_id", result.BundleID}
	if result.Forecast != nil {
		args = append(args, "forecast_id", result.Forecast.ForecastID,
			"confidence", fmt.Sprintf("%.2f", result.Forecast.ConfidenceReport.Overall))
	}
	if result.Report != nil {
		args = append(args, "validation_has_data", result.Report.HasData)
	}
	if result.Guidance != "" {
		args = append(args, "guidance", result.Guidance)
	}
	logger.Info("orchestrator run complete", args...)
}
