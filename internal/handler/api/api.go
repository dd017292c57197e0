// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API the host CMS calls at its template
// loading points and from its admin screens.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/themeswitcher/internal/middleware"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/scheduler"
	"github.com/olegiv/themeswitcher/internal/settings"
	"github.com/olegiv/themeswitcher/internal/store"
	"github.com/olegiv/themeswitcher/internal/switcher"
	"github.com/olegiv/themeswitcher/internal/theme"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// EventLister reads recorded events. *store.Queries implements it.
type EventLister interface {
	ListEvents(ctx context.Context, arg store.ListEventsParams) ([]model.Event, error)
}

// JobRunner lists and triggers scheduled jobs. *scheduler.Scheduler
// implements it.
type JobRunner interface {
	List() []scheduler.JobInfo
	TriggerNow(name string) error
}

// Deps are the collaborators of the API handlers.
type Deps struct {
	Switcher *switcher.Switcher
	Settings *settings.Store
	Types    *settings.ContentTypes
	Themes   *theme.Manager
	Events   EventLister
	Jobs     JobRunner // optional
	Logger   *slog.Logger
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	sw       *switcher.Switcher
	settings *settings.Store
	types    *settings.ContentTypes
	themes   *theme.Manager
	events   EventLister
	jobs     JobRunner
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		sw:       deps.Switcher,
		settings: deps.Settings,
		types:    deps.Types,
		themes:   deps.Themes,
		events:   deps.Events,
		jobs:     deps.Jobs,
		logger:   deps.Logger,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any `json:"data"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

var errEmptyBody = errors.New("request body is empty")

// decodeBody decodes a JSON request body into v. An empty body is an error
// unless allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	switch {
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return nil
		}
		return errEmptyBody
	case err != nil:
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// AuthInfo returns information about the authenticated API key.
func (h *Handler) AuthInfo(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKey(r)
	if apiKey == nil {
		middleware.WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated", nil)
		return
	}

	type AuthInfoResponse struct {
		KeyPrefix    string     `json:"key_prefix"`
		Name         string     `json:"name"`
		Capabilities []string   `json:"capabilities"`
		ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	}

	resp := AuthInfoResponse{
		KeyPrefix:    apiKey.KeyPrefix,
		Name:         apiKey.Name,
		Capabilities: apiKey.GetCapabilities(),
	}
	if apiKey.ExpiresAt.Valid {
		resp.ExpiresAt = &apiKey.ExpiresAt.Time
	}
	WriteSuccess(w, resp)
}
