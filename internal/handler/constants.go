// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteAPIPrefix is where the JSON API is mounted.
	RouteAPIPrefix = "/api/v1"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	RouteResolve    = "/resolve"
	RouteSettings   = "/settings"
	RouteThemes     = "/themes"
	RoutePostTypes  = "/post-types"
	RouteTaxonomies = "/taxonomies"
	RouteNotices    = "/notices"
	RoutePreviewURL = "/preview-url"
	RouteCache      = "/cache"
	RouteJobs       = "/jobs"

	// RoutePostTheme is the per-post override route.
	RoutePostTheme = "/posts/{id}/theme"
	// RouteTermTheme is the per-term override route.
	RouteTermTheme = "/terms/{id}/theme"
	// RouteJobRun triggers a scheduled job.
	RouteJobRun = "/jobs/{name}/run"

	RouteHealth      = "/health"
	RouteHealthLive  = "/health/live"
	RouteHealthReady = "/health/ready"
	RouteMetrics     = "/metrics"
)
