// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package main is the entry point for the sitecms API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata" // Embed timezone database for SITECMS_TIMEZONE

	"github.com/joho/godotenv"

	"github.com/olegiv/sitecms/internal/analytics"
	"github.com/olegiv/sitecms/internal/cache"
	"github.com/olegiv/sitecms/internal/config"
	"github.com/olegiv/sitecms/internal/handler/api"
	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/repository"
	"github.com/olegiv/sitecms/internal/restapi"
	"github.com/olegiv/sitecms/internal/store"
	"github.com/olegiv/sitecms/internal/version"
)

// Build-time variables injected via ldflags.
var (
	appVersion   = ""
	appGitCommit = ""
	appBuildTime = ""
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "sitecms - marketing site data and analytics API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_BACKEND        Storage backend: sql|rest (default: sql)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_DB_DRIVER      SQL driver: sqlite|postgres (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_DB_URL         Database path or DSN (default: ./data/sitecms.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_REST_URL       Remote API root for the rest backend\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_API_KEY        Bearer key for protected routes (min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_SERVER_PORT    Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_ENV            Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_REDIS_URL      Redis URL for the stats cache (optional)\n")
	}

	flag.Parse()

	info := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Println(info.Long())
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := context.Background()

	backend, events, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	if err := backend.Ping(ctx); err != nil {
		// The API still starts; requests report the backend as unavailable.
		logger.Warn("backend not reachable", "backend", cfg.Backend, "error", err)
	}

	if cfg.UseRedisCache() {
		slog.Info("using redis stats cache", "url", cache.SanitizeRedisURL(cfg.RedisURL))
	}
	statsCache, err := cache.New(ctx, cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheDuration(),
		MaxEntries: cfg.CacheMaxSize,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := statsCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	aggregator := analytics.NewAggregator(events, logger,
		analytics.WithLocation(cfg.Location()),
		analytics.WithCache(statsCache, cfg.CacheDuration()),
	)

	if cfg.WarmSchedule != "" {
		warmer := analytics.NewWarmer(aggregator, logger)
		if err := warmer.Start(cfg.WarmSchedule); err != nil {
			return fmt.Errorf("starting stats warmer: %w", err)
		}
		defer warmer.Stop()
	}

	tracker := analytics.NewTracker(analytics.NewIngestor(events, logger), logger, analytics.TrackerConfig{
		Rate:         cfg.TrackRate,
		Burst:        cfg.TrackBurst,
		ExcludePaths: cfg.TrackExclude,
		SecureCookie: !cfg.IsDevelopment(),
	})

	handler := api.NewHandler(api.Deps{
		Backend:    backend,
		Events:     events,
		Aggregator: aggregator,
		Logger:     logger,
		Version:    info,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		APIKey:         cfg.APIKey,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		RequestTimeout: cfg.RequestTimeout,
		StaticDir:      cfg.StaticDir,
		Tracker:        tracker,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "backend", cfg.Backend, "version", info.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// openBackend selects the storage backend once for the life of the process.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Backend, analytics.EventLog, func(), error) {
	switch cfg.Backend {
	case config.BackendREST:
		slog.Info("using rest backend", "url", cfg.RestURL)
		client, err := restapi.New(restapi.Options{
			BaseURL: cfg.RestURL,
			APIKey:  cfg.RestAPIKey,
			Timeout: cfg.RestTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing rest backend: %w", err)
		}
		return client, client, func() {}, nil
	default:
		dialect, err := store.ParseDialect(cfg.DBDriver)
		if err != nil {
			return nil, nil, nil, err
		}
		if dialect == store.DialectSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.DBURL), 0755); err != nil {
				return nil, nil, nil, fmt.Errorf("creating data directory: %w", err)
			}
		}

		slog.Info("initializing database", "driver", dialect)
		db, err := store.Open(ctx, dialect, cfg.DBURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing database: %w", err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing database connection", "error", err)
			}
		}

		slog.Info("running database migrations")
		if err := store.Migrate(db, dialect); err != nil {
			closeDB()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}

		backend := store.NewBackend(db, dialect)
		if cfg.DoSeed {
			if err := store.Seed(ctx, backend, logger); err != nil {
				closeDB()
				return nil, nil, nil, fmt.Errorf("seeding database: %w", err)
			}
		}
		slog.Info("database ready")
		return backend, store.NewEventLog(db, dialect), closeDB, nil
	}
}
