// Command gridcap serves the grid capacity map and feasibility API, and
// optionally evaluates batched feasibility requests from Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/gridfile"
	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/grid-feasibility-service/internal/adapter/kafka"
	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/osm"
	"github.com/couchcryptid/grid-feasibility-service/internal/catalog"
	"github.com/couchcryptid/grid-feasibility-service/internal/config"
	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
	"github.com/couchcryptid/grid-feasibility-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("failed to load policy", "path", cfg.PolicyFile, "error", err)
		os.Exit(1)
	}
	engine, err := domain.NewEngine(policy)
	if err != nil {
		logger.Error("invalid policy", "error", err)
		os.Exit(1)
	}
	partitioner, err := domain.NewPartitioner(policy)
	if err != nil {
		logger.Error("invalid policy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := gridfile.NewLoader(cfg.StationsFile, cfg.SubstationsFile, logger)
	cat := catalog.New(loader, partitioner, logger, metrics,
		catalog.WithReloadInterval(cfg.StationsReloadInterval))
	if _, err := cat.Load(ctx); err != nil {
		logger.Error("failed to load station data", "path", cfg.StationsFile, "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Services{
		Catalog:            cat,
		Engine:             engine,
		Geocoder:           newGeocoder(cfg, metrics, logger),
		Metrics:            metrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Build the first tessellation in the background, then watch for reloads.
	go func() {
		if _, err := cat.Zones(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("initial zone build failed", "error", err)
		}
		if err := cat.Run(ctx); err != nil {
			logger.Error("catalog reload loop error", "error", err)
		}
	}()

	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(engine, cat, nil, metrics, logger)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("batch pipeline disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newGeocoder builds the provider chain (feature-flagged via GEOCODER_ENABLED).
// It returns nil when geocoding is disabled.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	if !cfg.GeocoderEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("address geocoding disabled")
		return nil
	}

	opts := []osm.Option{
		osm.WithUserAgent(cfg.GeocoderUserAgent),
		osm.WithCity(cfg.GeocoderCity),
		osm.WithTimeout(cfg.GeocoderTimeout),
		osm.WithRateLimit(cfg.GeocoderRateLimit),
		osm.WithMetrics(metrics),
		osm.WithLogger(logger),
	}
	var chain osm.Chain
	if cfg.NominatimURL != "" {
		chain = append(chain, osm.NewNominatim(cfg.NominatimURL, opts...))
	}
	if cfg.PhotonURL != "" {
		chain = append(chain, osm.NewPhoton(cfg.PhotonURL, opts...))
	}

	metrics.GeocodeEnabled.Set(1)
	logger.Info("address geocoding enabled",
		"providers", len(chain),
		"city", cfg.GeocoderCity,
		"cache_size", cfg.GeocoderCacheSize,
		"cache_ttl", cfg.GeocoderCacheTTL,
		"timeout", cfg.GeocoderTimeout,
	)
	return osm.NewCachedGeocoder(chain, osm.CacheOptions{
		MaxEntries: cfg.GeocoderCacheSize,
		TTL:        cfg.GeocoderCacheTTL,
		MissTTL:    cfg.GeocoderMissTTL,
	}, metrics)
}
