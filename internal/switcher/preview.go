// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package switcher

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/metrics"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/settings"
	"github.com/olegiv/themeswitcher/internal/util"
)

// CapabilityChecker decides whether an actor may preview themes.
type CapabilityChecker interface {
	CanPreview(ctx context.Context, actor Actor) bool
}

// CapabilityFunc adapts a function to CapabilityChecker.
type CapabilityFunc func(ctx context.Context, actor Actor) bool

// CanPreview calls f.
func (f CapabilityFunc) CanPreview(ctx context.Context, actor Actor) bool {
	return f(ctx, actor)
}

// DefaultCapability allows authenticated actors that can edit content.
var DefaultCapability CapabilityChecker = CapabilityFunc(func(_ context.Context, actor Actor) bool {
	return actor.Authenticated && actor.Can(model.CapEditPosts)
})

// PreviewPermission is passed through the hook.FilterCanPreview filter.
// Handlers may flip Allowed.
type PreviewPermission struct {
	Actor   Actor
	Allowed bool
}

// HookedCapability runs a base checker and then lets hook.FilterCanPreview
// handlers override its answer. A failing filter denies.
type HookedCapability struct {
	base   CapabilityChecker
	hooks  *hook.Registry
	logger *slog.Logger
}

// NewHookedCapability wraps base. A nil base means DefaultCapability.
func NewHookedCapability(base CapabilityChecker, hooks *hook.Registry, logger *slog.Logger) *HookedCapability {
	if base == nil {
		base = DefaultCapability
	}
	return &HookedCapability{base: base, hooks: hooks, logger: logger}
}

// CanPreview implements CapabilityChecker.
func (h *HookedCapability) CanPreview(ctx context.Context, actor Actor) bool {
	perm := &PreviewPermission{Actor: actor, Allowed: h.base.CanPreview(ctx, actor)}
	if h.hooks == nil || !h.hooks.HasHandlers(hook.FilterCanPreview) {
		return perm.Allowed
	}

	out, err := h.hooks.Call(ctx, hook.FilterCanPreview, perm)
	if err != nil {
		h.logger.Warn("preview capability filter failed", "error", err, "category", model.EventCategoryAuth)
		return false
	}
	if p, ok := out.(*PreviewPermission); ok {
		return p.Allowed
	}
	return perm.Allowed
}

// Reasons a preview request did not activate. They are recorded in metrics
// and debug logs only, never returned to the caller.
const (
	reasonDisabled     = "disabled"
	reasonNoParam      = "no_param"
	reasonUnauthorized = "unauthorized"
	reasonInvalidTheme = "invalid_theme"
)

// Gate decides whether a request is in preview mode. It is evaluated once,
// at construction, and is immutable afterwards.
type Gate struct {
	theme  string
	reason string
}

// NewGate evaluates preview mode for a request: preview must be enabled in
// snap, the query parameter must carry a value, the actor must pass checker
// and the value must name an installed theme.
func NewGate(ctx context.Context, snap settings.Settings, registry ThemeRegistry, checker CapabilityChecker, actor Actor, query url.Values) *Gate {
	g := &Gate{}

	switch raw := strings.TrimSpace(query.Get(snap.QueryParam)); {
	case !snap.PreviewEnabled:
		g.reason = reasonDisabled
	case raw == "":
		g.reason = reasonNoParam
	case checker == nil || !checker.CanPreview(ctx, actor):
		g.reason = reasonUnauthorized
	default:
		slug := util.SanitizeTextField(raw)
		if slug == "" || !registry.Exists(slug) {
			g.reason = reasonInvalidTheme
			break
		}
		g.theme = slug
	}

	if g.reason != "" && g.reason != reasonNoParam {
		metrics.PreviewRejectionsTotal.WithLabelValues(g.reason).Inc()
	}
	return g
}

// IsActive reports whether preview mode applies to the request.
func (g *Gate) IsActive() bool {
	return g.theme != ""
}

// RequestedTheme returns the validated preview theme.
func (g *Gate) RequestedTheme() (string, bool) {
	return g.theme, g.theme != ""
}
