// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/olegiv/themeswitcher/internal/switcher"
	"github.com/olegiv/themeswitcher/internal/theme"
)

// PreviewURLRequest asks for a link that previews Theme on URL. An empty
// theme yields the link that leaves preview mode.
type PreviewURLRequest struct {
	Actor switcher.Actor `json:"actor"`
	URL   string         `json:"url"`
	Theme string         `json:"theme"`
}

// PreviewURL handles POST /api/v1/preview-url.
func (h *Handler) PreviewURL(w http.ResponseWriter, r *http.Request) {
	var req PreviewURLRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}
	if req.URL == "" {
		WriteValidationError(w, map[string]string{"url": "URL is required"})
		return
	}

	link, err := h.sw.PreviewURL(r.Context(), req.Actor, req.URL, req.Theme)
	switch {
	case errors.Is(err, switcher.ErrPreviewUnavailable):
		WriteForbidden(w, "Preview is not available")
	case errors.Is(err, theme.ErrThemeNotFound):
		WriteValidationError(w, map[string]string{"theme": "Theme is not installed"})
	case err != nil:
		WriteValidationError(w, map[string]string{"url": "URL is not valid"})
	default:
		WriteSuccess(w, map[string]string{"url": link})
	}
}
