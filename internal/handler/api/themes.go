// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"sort"

	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/settings"
)

// ThemeOption is one entry of a theme dropdown.
type ThemeOption struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ListThemes handles GET /api/v1/themes. With ?dropdown=1 it returns
// options for an override selector: "use active theme" first, then every
// installed theme except the active one.
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("dropdown") != "1" {
		WriteSuccess(w, h.themes.ListThemesWithActive())
		return
	}
	WriteSuccess(w, h.themeOptions())
}

func (h *Handler) themeOptions() []ThemeOption {
	active := h.themes.ActiveTheme()
	names := h.themes.Names()

	opts := make([]ThemeOption, 0, len(names)+1)
	for slug, name := range names {
		if slug == active {
			continue
		}
		opts = append(opts, ThemeOption{Slug: slug, Name: name})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Name < opts[j].Name })

	activeName := active
	if n, ok := names[active]; ok {
		activeName = n
	}
	useActive := ThemeOption{Slug: settings.UseActive, Name: "Use active theme (" + activeName + ")"}
	return append([]ThemeOption{useActive}, opts...)
}

// ListPostTypes handles GET /api/v1/post-types.
func (h *Handler) ListPostTypes(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.types.PostTypes())
}

// ListTaxonomies handles GET /api/v1/taxonomies.
func (h *Handler) ListTaxonomies(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.types.Taxonomies())
}

// ReplacePostTypes handles PUT /api/v1/post-types.
func (h *Handler) ReplacePostTypes(w http.ResponseWriter, r *http.Request) {
	h.replaceTypes(w, r, model.KindPostType)
}

// ReplaceTaxonomies handles PUT /api/v1/taxonomies.
func (h *Handler) ReplaceTaxonomies(w http.ResponseWriter, r *http.Request) {
	h.replaceTypes(w, r, model.KindTaxonomy)
}

// replaceTypes syncs the host's registry of one kind. The body is the
// complete list; types missing from it are unregistered.
func (h *Handler) replaceTypes(w http.ResponseWriter, r *http.Request, kind string) {
	var types []model.ContentType
	if err := decodeBody(w, r, &types, false); err != nil {
		WriteBadRequest(w, "Body must be a JSON array of content types", nil)
		return
	}

	registered, err := h.types.Replace(r.Context(), kind, types)
	if err != nil {
		h.logger.Error("failed to replace content types", "kind", kind, "error", err, "category", model.EventCategorySettings)
		WriteInternalError(w, "Failed to update content types")
		return
	}
	h.sw.ContentTypesChanged(r.Context())
	WriteSuccess(w, registered)
}
