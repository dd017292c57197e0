// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/themeswitcher/internal/handler"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/scheduler"
	"github.com/olegiv/themeswitcher/internal/store"
	"github.com/olegiv/themeswitcher/internal/switcher"
	"github.com/olegiv/themeswitcher/internal/util"
)

// NoticesResponse combines the live missing-theme audit with recently
// recorded warnings.
type NoticesResponse struct {
	MissingThemes []switcher.Notice `json:"missing_themes"`
	Events        []model.Event     `json:"events"`
}

// Notices handles GET /api/v1/notices. ?category= filters events.
func (h *Handler) Notices(w http.ResponseWriter, r *http.Request) {
	missing, err := h.sw.MissingThemes(r.Context())
	if err != nil {
		h.logger.Error("failed to audit themes", "error", err)
		WriteInternalError(w, "Failed to audit themes")
		return
	}
	if missing == nil {
		missing = []switcher.Notice{}
	}

	events, err := h.events.ListEvents(r.Context(), store.ListEventsParams{
		Category: util.SanitizeKey(r.URL.Query().Get("category")),
		Level:    util.SanitizeKey(r.URL.Query().Get("level")),
		Limit:    int64(handler.ParseLimitParam(r, 50, 200)),
	})
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		WriteInternalError(w, "Failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	WriteSuccess(w, NoticesResponse{MissingThemes: missing, Events: events})
}

// ClearCache handles DELETE /api/v1/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.sw.ClearCaches(r.Context()); err != nil {
		h.logger.Error("failed to clear caches", "error", err, "category", model.EventCategoryCache)
		WriteInternalError(w, "Failed to clear caches")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListJobs handles GET /api/v1/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.jobs.List())
}

// RunJob handles POST /api/v1/jobs/{name}/run.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.TriggerNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			WriteNotFound(w, "Job not found")
			return
		}
		WriteInternalError(w, "Job failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
