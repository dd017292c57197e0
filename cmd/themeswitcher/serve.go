// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/olegiv/themeswitcher/internal/cache"
	"github.com/olegiv/themeswitcher/internal/handler"
	"github.com/olegiv/themeswitcher/internal/handler/api"
	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/metrics"
	"github.com/olegiv/themeswitcher/internal/middleware"
	"github.com/olegiv/themeswitcher/internal/scheduler"
	"github.com/olegiv/themeswitcher/internal/theme"
	"github.com/olegiv/themeswitcher/internal/version"
)

// apiTimeout bounds a single API request.
const apiTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	v := version.Get()
	logger.Info("starting themeswitcher", "version", v.Version, "commit", v.GitCommit, "env", cfg.Env)

	if cfg.WatchThemes {
		watcher, err := theme.NewWatcher(a.themes, func() { a.themesChanged(ctx) }, logger)
		if err != nil {
			return fmt.Errorf("creating theme watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("theme watcher disabled", "error", err)
		}
		defer func() { _ = watcher.Stop() }()
	}

	sched, err := a.newScheduler()
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	router, err := a.router(sched)
	if err != nil {
		return err
	}

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// themesChanged runs after the theme registry reloads from disk. Cached
// decisions may name themes that are gone, so they are dropped.
func (a *app) themesChanged(ctx context.Context) {
	if err := a.switcher.ClearCaches(ctx); err != nil {
		a.logger.Error("failed to clear caches after theme reload", "error", err)
	}
	metrics.ThemesInstalled.Set(float64(len(a.themes.Names())))

	if err := a.hooks.CallNoResult(ctx, hook.ActionThemesChanged, a.themes.Names()); err != nil {
		a.logger.Warn("themes changed hook failed", "error", err)
	}
	if _, err := a.switcher.Audit(ctx); err != nil {
		a.logger.Error("theme audit failed", "error", err)
	}
}

// newScheduler registers the background jobs.
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger)

	if err := sched.Register(scheduler.JobThemeAudit,
		"Report overrides that point at themes no longer installed",
		a.cfg.AuditSchedule, scheduler.ThemeAuditJob(a.switcher)); err != nil {
		return nil, err
	}

	if retention := a.cfg.EventRetentionDuration(); retention > 0 {
		if err := sched.Register(scheduler.JobPruneEvents,
			"Delete events older than the retention period",
			"@daily", sched.PruneEventsJob(a.queries, retention)); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// router builds the HTTP handler: health and metrics at the root, the API
// under handler.RouteAPIPrefix.
func (a *app) router(jobs api.JobRunner) (http.Handler, error) {
	cfg, logger := a.cfg, a.logger

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	var cachePinger handler.Pinger
	if rc, ok := a.backend.(*cache.RedisCache); ok {
		cachePinger = handler.PingFunc(rc.Ping)
	}
	health := handler.NewHealthHandler(a.db, cachePinger, a.themes, logger)
	r.Get(handler.RouteHealth, health.Health)
	r.Get(handler.RouteHealthLive, health.Liveness)
	r.Get(handler.RouteHealthReady, health.Readiness)
	r.Handle(handler.RouteMetrics, promhttp.Handler())

	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("generating csrf key: %w", err)
	}
	csrfCfg := middleware.DefaultCSRFConfig(csrfKey, cfg.TrustedOrigins, cfg.IsDevelopment(), logger)

	apiHandler := api.NewHandler(api.Deps{
		Switcher: a.switcher,
		Settings: a.settings,
		Types:    a.types,
		Themes:   a.themes,
		Events:   a.queries,
		Jobs:     jobs,
		Logger:   logger,
	})
	r.Route(handler.RouteAPIPrefix, func(r chi.Router) {
		apiHandler.Mount(r, api.RouteConfig{
			Keys:        a.queries,
			RateLimit:   cfg.APIRateLimit,
			RateBurst:   cfg.APIRateBurst,
			IPRateLimit: cfg.IPRateLimit,
			IPRateBurst: cfg.IPRateBurst,
			Timeout:     apiTimeout,
			CSRF:        &csrfCfg,
			Logger:      logger,
		})
	})

	return r, nil
}
