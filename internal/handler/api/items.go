// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/olegiv/themeswitcher/internal/handler"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/theme"
)

// ItemThemeRequest is the body of a per-item override update.
type ItemThemeRequest struct {
	Theme string `json:"theme"`
}

// ItemThemeResponse reports the override stored on an item.
type ItemThemeResponse struct {
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id"`
	Theme      string `json:"theme"`
	Installed  bool   `json:"installed"`
}

// GetPostTheme handles GET /api/v1/posts/{id}/theme.
func (h *Handler) GetPostTheme(w http.ResponseWriter, r *http.Request) {
	h.getItemTheme(w, r, model.ObjectPost)
}

// SetPostTheme handles PUT /api/v1/posts/{id}/theme.
func (h *Handler) SetPostTheme(w http.ResponseWriter, r *http.Request) {
	h.setItemTheme(w, r, model.ObjectPost)
}

// ClearPostTheme handles DELETE /api/v1/posts/{id}/theme.
func (h *Handler) ClearPostTheme(w http.ResponseWriter, r *http.Request) {
	h.clearItemTheme(w, r, model.ObjectPost)
}

// GetTermTheme handles GET /api/v1/terms/{id}/theme.
func (h *Handler) GetTermTheme(w http.ResponseWriter, r *http.Request) {
	h.getItemTheme(w, r, model.ObjectTerm)
}

// SetTermTheme handles PUT /api/v1/terms/{id}/theme.
func (h *Handler) SetTermTheme(w http.ResponseWriter, r *http.Request) {
	h.setItemTheme(w, r, model.ObjectTerm)
}

// ClearTermTheme handles DELETE /api/v1/terms/{id}/theme.
func (h *Handler) ClearTermTheme(w http.ResponseWriter, r *http.Request) {
	h.clearItemTheme(w, r, model.ObjectTerm)
}

func (h *Handler) itemResponse(objectType string, id int64, slug string) ItemThemeResponse {
	return ItemThemeResponse{
		ObjectType: objectType,
		ObjectID:   id,
		Theme:      slug,
		Installed:  slug != "" && h.themes.Exists(slug),
	}
}

func (h *Handler) getItemTheme(w http.ResponseWriter, r *http.Request, objectType string) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+objectType+" ID", nil)
		return
	}

	slug, err := h.sw.ItemTheme(r.Context(), objectType, id)
	if err != nil {
		h.logger.Error("failed to read item theme", "object", objectType, "id", id, "error", err)
		WriteInternalError(w, "Failed to read theme")
		return
	}
	WriteSuccess(w, h.itemResponse(objectType, id, slug))
}

func (h *Handler) setItemTheme(w http.ResponseWriter, r *http.Request, objectType string) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+objectType+" ID", nil)
		return
	}

	var req ItemThemeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.sw.SetItemTheme(r.Context(), objectType, id, req.Theme); err != nil {
		if errors.Is(err, theme.ErrThemeNotFound) {
			WriteValidationError(w, map[string]string{"theme": "Theme is not installed"})
			return
		}
		h.logger.Error("failed to set item theme", "object", objectType, "id", id, "error", err)
		WriteInternalError(w, "Failed to save theme")
		return
	}

	slug, err := h.sw.ItemTheme(r.Context(), objectType, id)
	if err != nil {
		WriteInternalError(w, "Failed to read theme")
		return
	}
	WriteSuccess(w, h.itemResponse(objectType, id, slug))
}

func (h *Handler) clearItemTheme(w http.ResponseWriter, r *http.Request, objectType string) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+objectType+" ID", nil)
		return
	}

	if err := h.sw.ClearItemTheme(r.Context(), objectType, id); err != nil {
		h.logger.Error("failed to clear item theme", "object", objectType, "id", id, "error", err)
		WriteInternalError(w, "Failed to clear theme")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
