// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hook provides named extension points. Filters pass a value through
// every handler in priority order; actions notify handlers of an event.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Hook names used by the theme switcher.
const (
	// FilterCanPreview receives and returns a *switcher.PreviewPermission.
	FilterCanPreview = "preview.can_user"
	// FilterResolvedTheme receives and returns a *switcher.Decision.
	FilterResolvedTheme = "switcher.resolved_theme"

	// ActionSettingsSaved fires after settings are persisted.
	ActionSettingsSaved = "settings.saved"
	// ActionItemThemeChanged fires after a per-item override is written or removed.
	ActionItemThemeChanged = "item.theme_changed"
	// ActionCachesCleared fires after a full cache flush.
	ActionCachesCleared = "cache.cleared"
	// ActionThemesChanged fires after the theme registry reloads.
	ActionThemesChanged = "themes.changed"
)

// Func is a function that can be registered as a hook handler.
// It receives a context and data, and returns modified data and an error.
// If the hook returns an error, subsequent hooks are not called.
type Func func(ctx context.Context, data any) (any, error)

// Handler wraps a Func with metadata.
type Handler struct {
	Name     string // Name of the handler for debugging
	Owner    string // Component that registered the handler
	Priority int    // Lower priority runs first (default: 0)
	Fn       Func
}

// Registry manages hook registration and execution.
type Registry struct {
	hooks  map[string][]Handler
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		hooks:  make(map[string][]Handler),
		logger: logger,
	}
}

// Register adds a handler for the given hook name. Handlers with equal
// priority keep registration order.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := append(r.hooks[name], handler)
	for i := len(handlers) - 1; i > 0; i-- {
		if handlers[i].Priority < handlers[i-1].Priority {
			handlers[i], handlers[i-1] = handlers[i-1], handlers[i]
		}
	}
	r.hooks[name] = handlers

	r.logger.Debug("hook registered",
		"hook", name,
		"handler", handler.Name,
		"owner", handler.Owner,
		"priority", handler.Priority,
	)
}

// RegisterFunc registers fn with default priority.
func (r *Registry) RegisterFunc(name, handlerName, owner string, fn Func) {
	r.Register(name, Handler{Name: handlerName, Owner: owner, Fn: fn})
}

// Call executes all handlers for the given hook name, passing data through
// each one. If any handler returns an error, execution stops and the error
// is returned.
func (r *Registry) Call(ctx context.Context, name string, data any) (any, error) {
	r.mu.RLock()
	handlers := r.hooks[name]
	r.mu.RUnlock()

	if len(handlers) == 0 {
		return data, nil
	}

	current := data
	for _, handler := range handlers {
		result, err := handler.Fn(ctx, current)
		if err != nil {
			r.logger.Error("hook handler error",
				"hook", name,
				"handler", handler.Name,
				"owner", handler.Owner,
				"error", err,
			)
			return nil, fmt.Errorf("hook %s handler %s: %w", name, handler.Name, err)
		}
		current = result
	}

	return current, nil
}

// CallNoResult executes hooks without expecting a modified result.
func (r *Registry) CallNoResult(ctx context.Context, name string, data any) error {
	_, err := r.Call(ctx, name, data)
	return err
}

// HasHandlers returns true if there are handlers registered for the hook.
func (r *Registry) HasHandlers(name string) bool {
	return r.HandlerCount(name) > 0
}

// HandlerCount returns the number of handlers registered for a hook.
func (r *Registry) HandlerCount(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[name])
}

// Unregister removes all handlers for a hook from a specific owner.
func (r *Registry) Unregister(name, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]Handler, 0, len(r.hooks[name]))
	for _, handler := range r.hooks[name] {
		if handler.Owner != owner {
			kept = append(kept, handler)
		}
	}
	r.hooks[name] = kept
}

// Clear removes all registered hooks.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = make(map[string][]Handler)
}
