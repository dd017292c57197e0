// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/olegiv/themeswitcher/internal/metrics"
	"github.com/olegiv/themeswitcher/internal/switcher"
)

// ResolveRequest describes the request the host is about to render.
type ResolveRequest struct {
	Context switcher.ContentContext `json:"context"`
	Actor   switcher.Actor          `json:"actor"`
	// Query holds the request's query string values.
	Query map[string]string `json:"query,omitempty"`

	// Host defaults; empty template and stylesheet mean the active theme.
	Template     string `json:"template,omitempty"`
	Stylesheet   string `json:"stylesheet,omitempty"`
	TemplateFile string `json:"template_file,omitempty"`
}

// ResolveResponse tells the host which theme renders the request.
type ResolveResponse struct {
	Theme        string   `json:"theme,omitempty"`
	Source       string   `json:"source"`
	Template     string   `json:"template"`
	Stylesheet   string   `json:"stylesheet"`
	TemplateFile string   `json:"template_file,omitempty"`
	Preview      bool     `json:"preview"`
	BodyMarkers  []string `json:"body_markers"`
	Banner       *Banner  `json:"banner,omitempty"`
}

// Banner is shown to the actor while previewing, when enabled.
type Banner struct {
	Theme               string `json:"theme"`
	ThemeName           string `json:"theme_name"`
	QueryParam          string `json:"query_param"`
	DefaultPreviewTheme string `json:"default_preview_theme,omitempty"`
}

// Resolve handles POST /api/v1/resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { metrics.ResolveDuration.Observe(time.Since(start).Seconds()) }()

	var req ResolveRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}
	if req.Context.PostID < 0 || req.Context.TermID < 0 {
		WriteValidationError(w, map[string]string{"context": "ids must not be negative"})
		return
	}

	query := make(url.Values, len(req.Query))
	for k, v := range req.Query {
		query.Set(k, v)
	}

	active := h.themes.ActiveTheme()
	template := req.Template
	if template == "" {
		template = h.themes.Template(active)
	}
	stylesheet := req.Stylesheet
	if stylesheet == "" {
		stylesheet = h.themes.Stylesheet(active)
	}

	rr := h.sw.NewRequest(r.Context(), switcher.Input{
		Context: req.Context,
		Actor:   req.Actor,
		Query:   query,
	})
	d := rr.Decision()

	resp := ResolveResponse{
		Theme:        d.Theme,
		Source:       string(d.Source),
		Template:     rr.ResolveTemplateBase(template),
		Stylesheet:   rr.ResolveStylesheetBase(stylesheet),
		TemplateFile: rr.ResolveTemplateFile(req.TemplateFile),
		Preview:      rr.Gate().IsActive(),
		BodyMarkers:  rr.BodyMarkers(),
	}

	snap := rr.Settings()
	if previewing, ok := rr.Gate().RequestedTheme(); ok && snap.BannerEnabled {
		resp.Banner = &Banner{
			Theme:               previewing,
			ThemeName:           h.themeName(previewing),
			QueryParam:          snap.QueryParam,
			DefaultPreviewTheme: snap.DefaultPreviewTheme,
		}
	}

	WriteSuccess(w, resp)
}

func (h *Handler) themeName(slug string) string {
	if name, ok := h.themes.Names()[slug]; ok {
		return name
	}
	return slug
}
