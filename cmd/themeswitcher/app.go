// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/olegiv/themeswitcher/internal/cache"
	"github.com/olegiv/themeswitcher/internal/config"
	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/logging"
	"github.com/olegiv/themeswitcher/internal/metrics"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/settings"
	"github.com/olegiv/themeswitcher/internal/store"
	"github.com/olegiv/themeswitcher/internal/switcher"
	"github.com/olegiv/themeswitcher/internal/theme"
)

// app holds the wired core shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	queries *store.Queries
	hooks   *hook.Registry

	backend     cache.Cacher
	backendName string
	resolution  *cache.Resolution

	types    *settings.ContentTypes
	settings *settings.Store
	themes   *theme.Manager
	switcher *switcher.Switcher
}

// newLogger builds a text logger at the configured level. With a non-nil
// writer, WARN and ERROR records are also persisted as events.
func newLogger(cfg *config.Config, out io.Writer, writer logging.EventWriter) *slog.Logger {
	var h slog.Handler = slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.LogLevel),
	})
	if writer != nil {
		h = logging.NewEventHandler(h, writer)
	}
	return slog.New(h)
}

// openDB opens the database and applies pending migrations.
func openDB(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	logger.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// openApp loads the configuration and wires storage, caches, settings,
// the theme registry and the switcher. Log output goes to out.
func openApp(ctx context.Context, out io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg, out, nil)
	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	queries := store.New(db)

	// Upgrade logger to also write WARN and ERROR logs to the events table
	logger = newLogger(cfg, out, queries)
	slog.SetDefault(logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		queries: queries,
		hooks:   hook.NewRegistry(logger),
	}

	a.backend, a.backendName, err = cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	logger.Info("cache initialized", "backend", a.backendName)
	a.resolution = cache.NewResolution(a.backend, cfg.CacheTTLDuration(), cfg.LookupTimeout(), a.hooks, logger)

	a.types = settings.NewContentTypes(queries, logger)
	if err := a.types.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading content types: %w", err)
	}
	a.settings = settings.NewStore(queries, a.types, a.resolution, a.hooks, logger)

	a.themes = theme.NewManager(cfg.ThemesDir, cfg.ActiveTheme, logger)
	if err := a.themes.LoadThemes(); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading themes: %w", err)
	}
	if !a.themes.Exists(cfg.ActiveTheme) {
		logger.Warn("active theme is not installed", "theme", cfg.ActiveTheme, "category", model.EventCategoryTheme)
	}
	metrics.ThemesInstalled.Set(float64(len(a.themes.Names())))

	a.switcher = switcher.New(switcher.Deps{
		Registry:      a.themes,
		Meta:          queries,
		Settings:      a.settings,
		Cache:         a.resolution,
		Capability:    switcher.NewHookedCapability(switcher.DefaultCapability, a.hooks, logger),
		Hooks:         a.hooks,
		Logger:        logger,
		LookupTimeout: cfg.LookupTimeout(),
	})
	return a, nil
}

// Close releases the cache backend and the database.
func (a *app) Close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("error closing cache", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database connection", "error", err)
	}
}
