// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sts_resolutions_total",
		Help: "Theme resolutions by the source that decided the theme.",
	}, []string{"source"})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sts_resolve_duration_seconds",
		Help:    "Time spent answering a resolve request.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sts_cache_lookups_total",
		Help: "Shared cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	CacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sts_cache_invalidations_total",
		Help: "Cache invalidations by scope (settings, item, all).",
	}, []string{"scope"})

	SettingsWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sts_settings_writes_total",
		Help: "Successful settings writes.",
	})

	PreviewRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sts_preview_rejections_total",
		Help: "Preview requests that did not activate, by reason.",
	}, []string{"reason"})

	ThemesInstalled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sts_themes_installed",
		Help: "Number of usable themes in the registry.",
	})

	MissingThemeNotices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sts_missing_theme_notices",
		Help: "Configured overrides that point at themes no longer installed.",
	})
)
