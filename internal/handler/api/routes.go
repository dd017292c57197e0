// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/themeswitcher/internal/handler"
	"github.com/olegiv/themeswitcher/internal/middleware"
	"github.com/olegiv/themeswitcher/internal/model"
)

// RouteConfig configures the middleware stack around the API.
type RouteConfig struct {
	Keys        middleware.KeyStore
	RateLimit   float64 // per API key, requests per second
	RateBurst   int
	IPRateLimit float64 // per client IP, before authentication
	IPRateBurst int
	Timeout     time.Duration
	CSRF        *middleware.CSRFConfig // nil disables cross-origin checks
	Logger      *slog.Logger
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router, cfg RouteConfig) {
	if cfg.IPRateLimit > 0 {
		r.Use(middleware.NewIPRateLimiter(cfg.IPRateLimit, cfg.IPRateBurst).Middleware())
	}
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}
	if cfg.CSRF != nil {
		r.Use(middleware.CSRF(*cfg.CSRF))
	}
	r.Use(middleware.APIKeyAuth(cfg.Keys, cfg.Logger))
	if cfg.RateLimit > 0 {
		r.Use(middleware.APIRateLimit(cfg.RateLimit, cfg.RateBurst))
	}

	// Any valid key. Preview rights belong to the actor in the body.
	r.Get("/auth", h.AuthInfo)
	r.Post(handler.RouteResolve, h.Resolve)
	r.Post(handler.RoutePreviewURL, h.PreviewURL)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCapability(model.CapEditPosts))
		r.Get(handler.RouteThemes, h.ListThemes)
		r.Get(handler.RoutePostTypes, h.ListPostTypes)
		r.Get(handler.RouteTaxonomies, h.ListTaxonomies)
		registerItemRoutes(r, handler.RoutePostTheme, h.GetPostTheme, h.SetPostTheme, h.ClearPostTheme)
		registerItemRoutes(r, handler.RouteTermTheme, h.GetTermTheme, h.SetTermTheme, h.ClearTermTheme)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCapability(model.CapManageOptions))
		r.Get(handler.RouteSettings, h.GetSettings)
		r.Put(handler.RouteSettings, h.UpdateSettings)
		r.Put(handler.RoutePostTypes, h.ReplacePostTypes)
		r.Put(handler.RouteTaxonomies, h.ReplaceTaxonomies)
		r.Get(handler.RouteNotices, h.Notices)
		r.Delete(handler.RouteCache, h.ClearCache)
		if h.jobs != nil {
			r.Get(handler.RouteJobs, h.ListJobs)
			r.Post(handler.RouteJobRun, h.RunJob)
		}
	})
}

// registerItemRoutes registers GET, PUT and DELETE for one per-item override route.
func registerItemRoutes(r chi.Router, route string, get, set, del http.HandlerFunc) {
	r.Get(route, get)
	r.Put(route, set)
	r.Delete(route, del)
}
