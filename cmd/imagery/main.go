package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/goes-imagery/internal/adapter/http"
	"github.com/couchcryptid/goes-imagery/internal/cache"
	"github.com/couchcryptid/goes-imagery/internal/cascade"
	"github.com/couchcryptid/goes-imagery/internal/config"
	"github.com/couchcryptid/goes-imagery/internal/manager"
	"github.com/couchcryptid/goes-imagery/internal/observability"
	"github.com/couchcryptid/goes-imagery/internal/retry"
	"github.com/couchcryptid/goes-imagery/internal/source/cdn"
	"github.com/couchcryptid/goes-imagery/internal/source/objectstore"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	policy := &retry.Policy{
		MaxAttempts:         cfg.RetryMaxAttempts,
		InitialDelay:        cfg.RetryInitialDelay,
		MaxDelay:            cfg.RetryMaxDelay,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}

	primary := cdn.NewClient("primary-cdn", cfg.CDNHost, cfg.SatelliteLabel, cfg.FetchTimeout, logger)
	mirror := cdn.NewClient("mirror-cdn", cfg.MirrorHost, cfg.SatelliteLabel, cfg.FetchTimeout, logger)
	archive := cdn.NewArchiveClient(cfg.ArchiveHost, cfg.SatelliteLabel, cfg.FetchTimeout, logger)
	store := objectstore.NewClient(cfg.BucketURL, cfg.FetchTimeout, logger)

	webCascade := cascade.New([]cascade.Strategy{
		cascade.NewWebStrategy(primary, policy),
		cascade.NewWebStrategy(mirror, policy),
		cascade.NewWebStrategy(archive, policy),
	}, logger, metrics)

	rawCascade := cascade.New([]cascade.Strategy{
		cascade.NewWindowSearch(store, policy, cfg.SearchWindowHours, clock),
	}, logger, metrics)

	results := cache.New(cfg.CacheSize, cfg.CacheTTL, clock)

	m := manager.New(webCascade, rawCascade, results, cfg.OutputDir, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, m, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("imagery engine started",
		"satellite", cfg.SatelliteLabel, "cdn", cfg.CDNHost, "bucket", cfg.BucketURL,
		"output_dir", cfg.OutputDir)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
