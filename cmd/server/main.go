package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/partyevents/partyevents/internal/api"
	"github.com/partyevents/partyevents/internal/config"
	"github.com/partyevents/partyevents/internal/database"
	"github.com/partyevents/partyevents/internal/eventsource"
	"github.com/partyevents/partyevents/internal/feed"
	"github.com/partyevents/partyevents/internal/filter"
	"github.com/partyevents/partyevents/internal/logging"
	"github.com/partyevents/partyevents/internal/metrics"
	"github.com/partyevents/partyevents/internal/preferences"
	"github.com/partyevents/partyevents/internal/querystore"
	"github.com/partyevents/partyevents/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting partyevents")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database is optional; without it events come from the seed file.
	var db *sql.DB
	if cfg.Database.Enabled() {
		dbURL, err := database.ConnectionString(cfg.Database)
		if err != nil {
			logger.Error("failed to build database URL", "error", err)
			os.Exit(1)
		}
		logger.Info("connecting to database", "config", database.ConnectionInfo(cfg.Database))

		dbCfg := database.DefaultConfig()
		dbCfg.URL = dbURL
		db, err = database.Connect(ctx, dbCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("database connected")

		// Run pending migrations (non-fatal to allow app to start even if migrations fail)
		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsDir, logger); err != nil {
			logger.Warn("failed to run migrations, continuing anyway", "error", err)
		}
	}

	var source eventsource.Source
	if db != nil {
		repo := database.NewPostgresEventRepository(db)
		// An empty events table is filled from the bundled seed once.
		if n, err := eventsource.Seed(ctx, repo, eventsource.NewFileSource(cfg.Events.File)); err != nil {
			logger.Warn("failed to seed events", "file", cfg.Events.File, "seeded", n, "error", err)
		} else if n > 0 {
			logger.Info("seeded events", "file", cfg.Events.File, "count", n)
		}
		source = repo
	} else {
		source = eventsource.NewFileSource(cfg.Events.File)
	}
	logger.Info("event source configured", "source", source.Name())

	store := querystore.New(querystore.WithLogger(logger))

	kv, closeKV, err := openPreferences(ctx, cfg.Preferences, db)
	if err != nil {
		logger.Error("failed to open preferences", "backend", cfg.Preferences.Backend, "error", err)
		os.Exit(1)
	}
	defer closeKV()
	logger.Info("preferences configured", "backend", cfg.Preferences.Backend)

	// Restore before AutoSave so the restored query is not written back.
	preferences.Load(ctx, kv, store, logger)
	stopSave := preferences.AutoSave(ctx, kv, store, logger)

	collector, err := metrics.NewHTTPCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	feedMetrics, err := metrics.NewFeedCollector(collector.Registry())
	if err != nil {
		logger.Error("failed to init feed metrics", "error", err)
		os.Exit(1)
	}

	engine := filter.New(filter.WithLocale(cfg.Filters.Locale))
	logger.Info("filter engine configured", "locale", engine.Locale().String())

	eventFeed := feed.New(store, engine, feed.WithMetrics(feedMetrics), feed.WithLogger(logger))

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	var health api.HealthCheck
	if db != nil {
		health = func(ctx context.Context) error { return database.HealthCheck(ctx, db) }
	}
	api.SetupRoutes(mux, store, eventFeed, health, logger)

	handler := collector.InstrumentHandler(server.SPAMiddleware(mux, cfg.Server.StaticDir))

	srv := server.New(cfg.Server, logger, handler)
	srv.Background("event refresh", func(ctx context.Context) {
		logger.Info("starting event refresh", "interval", cfg.Events.RefreshInterval.String())
		eventFeed.Run(ctx, source, cfg.Events.RefreshInterval)
	})
	// Cleanups run in reverse: the feed detaches first, then the last query is saved.
	srv.OnShutdown(stopSave)
	srv.OnShutdown(eventFeed.Close)

	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// openPreferences returns the key/value store selected by cfg and a function
// releasing it.
func openPreferences(ctx context.Context, cfg config.PreferencesConfig, db *sql.DB) (preferences.KeyValueStore, func(), error) {
	switch cfg.Backend {
	case config.PreferencesMemory:
		return preferences.NewMemoryStore(), func() {}, nil
	case config.PreferencesSQLite:
		kv, err := preferences.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil
	case config.PreferencesPostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("postgres preferences require a database")
		}
		return database.NewPreferenceRepository(db, cfg.Owner), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown preferences backend %q", cfg.Backend)
	}
}
