// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/settings"
	"github.com/olegiv/themeswitcher/internal/theme"
)

// SettingsResponse is the admin view of the settings.
type SettingsResponse struct {
	Settings   settings.Settings   `json:"settings"`
	Themes     []theme.Info        `json:"themes"`
	PostTypes  []model.ContentType `json:"post_types"`
	Taxonomies []model.ContentType `json:"taxonomies"`
}

func (h *Handler) settingsResponse(s settings.Settings) SettingsResponse {
	return SettingsResponse{
		Settings:   s,
		Themes:     h.themes.ListThemesWithActive(),
		PostTypes:  h.types.PostTypes(),
		Taxonomies: h.types.Taxonomies(),
	}
}

// GetSettings handles GET /api/v1/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.settingsResponse(h.settings.Load(r.Context())))
}

// UpdateSettings handles PUT /api/v1/settings. The body is a partial
// settings object in any supported layout. Unknown keys and entries for
// unregistered content types are dropped rather than rejected.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := decodeBody(w, r, &partial, false); err != nil || partial == nil {
		WriteBadRequest(w, "Settings must be a JSON object", nil)
		return
	}

	saved, err := h.settings.Save(r.Context(), partial)
	if err != nil {
		h.logger.Error("failed to save settings", "error", err, "category", model.EventCategorySettings)
		WriteInternalError(w, "Failed to save settings")
		return
	}
	WriteSuccess(w, h.settingsResponse(saved))
}
