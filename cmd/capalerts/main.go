package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	httpadapter "github.com/joshmcarthur/cap-alerts/internal/adapter/http"
	kafkaadapter "github.com/joshmcarthur/cap-alerts/internal/adapter/kafka"
	"github.com/joshmcarthur/cap-alerts/internal/adapter/mapbox"
	"github.com/joshmcarthur/cap-alerts/internal/capdoc"
	"github.com/joshmcarthur/cap-alerts/internal/config"
	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/ingest"
	"github.com/joshmcarthur/cap-alerts/internal/observability"
	"github.com/joshmcarthur/cap-alerts/internal/pipeline"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Area enrichment is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	parser := capdoc.NewParser(capdoc.XMLTreeParser{})
	processor := pipeline.NewRowProcessor(parser, geocoder, cfg.Region, logger)
	source := ingest.NewSource(cfg.AlertsSource, cfg.FetchTimeout)

	svc := pipeline.New(source, processor, publisher, logger, metrics, pipeline.Settings{
		FetchAttempts: cfg.FetchAttempts,
		RowWorkers:    cfg.RowWorkers,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initial load; the schedule takes over from here.
	go func() {
		if _, err := svc.Reload(ctx); err != nil && !errors.Is(err, pipeline.ErrSuperseded) {
			logger.Error("initial load failed", "error", err)
		}
	}()

	if err := svc.Run(ctx, cfg.ReloadSchedule); err != nil {
		logger.Error("reload scheduler error", "error", err)
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
