// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package switcher decides which installed theme renders a request. A request
// is in preview mode when an authorized actor names a valid theme in the
// query string; otherwise the persistent assignment for the content item,
// its content type or its taxonomy applies; otherwise the active theme is
// left alone.
package switcher

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/olegiv/themeswitcher/internal/cache"
	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/metrics"
	"github.com/olegiv/themeswitcher/internal/settings"
	"github.com/olegiv/themeswitcher/internal/theme"
	"github.com/olegiv/themeswitcher/internal/util"
)

// Body marker tokens added while previewing.
const (
	MarkerPreviewMode = "sts-preview-mode"
	markerThemePrefix = "sts-preview-"
)

// SettingsSource provides a settings snapshot. *settings.Store implements it.
type SettingsSource interface {
	Load(ctx context.Context) settings.Settings
}

// Deps are the collaborators of a Switcher.
type Deps struct {
	Registry   ThemeRegistry
	Meta       MetaStore
	Settings   SettingsSource
	Cache      *cache.Resolution // optional shared cache
	Capability CapabilityChecker // nil means DefaultCapability
	Hooks      *hook.Registry
	Logger     *slog.Logger

	// LookupTimeout bounds each metadata read on the request path.
	LookupTimeout time.Duration
}

// Switcher composes the preview gate and the resolver. It is safe for
// concurrent use; per-request state lives in Request.
type Switcher struct {
	registry   ThemeRegistry
	meta       MetaStore
	settings   SettingsSource
	cache      *cache.Resolution
	capability CapabilityChecker
	resolver   *Resolver
	hooks      *hook.Registry
	logger     *slog.Logger
}

// New creates a Switcher.
func New(deps Deps) *Switcher {
	capability := deps.Capability
	if capability == nil {
		capability = DefaultCapability
	}
	return &Switcher{
		registry:   deps.Registry,
		meta:       deps.Meta,
		settings:   deps.Settings,
		cache:      deps.Cache,
		capability: capability,
		resolver:   NewResolver(deps.Registry, deps.Meta, deps.Cache, deps.LookupTimeout, deps.Logger),
		hooks:      deps.Hooks,
		logger:     deps.Logger,
	}
}

// Input describes one incoming request.
type Input struct {
	Context ContentContext
	Actor   Actor
	Query   url.Values
}

// Request holds the state of one request's resolution: the settings snapshot
// read at its start, the preview gate and the lookup memo.
type Request struct {
	ctx      context.Context
	sw       *Switcher
	snap     settings.Settings
	cc       ContentContext
	gate     *Gate
	memo     *cache.Memo
	decision *Decision
}

// NewRequest reads the settings snapshot and evaluates the preview gate.
func (s *Switcher) NewRequest(ctx context.Context, in Input) *Request {
	snap := s.settings.Load(ctx)
	return &Request{
		ctx:  ctx,
		sw:   s,
		snap: snap,
		cc:   in.Context,
		gate: NewGate(ctx, snap, s.registry, s.capability, in.Actor, in.Query),
		memo: cache.NewMemo(),
	}
}

// Settings returns the request's settings snapshot.
func (r *Request) Settings() settings.Settings {
	return r.snap
}

// Gate returns the request's preview gate.
func (r *Request) Gate() *Gate {
	return r.gate
}

// Decision returns the override decision, computing it on first use.
func (r *Request) Decision() Decision {
	if r.decision != nil {
		return *r.decision
	}

	var d Decision
	if t, ok := r.gate.RequestedTheme(); ok {
		d = Decision{Theme: t, Source: SourcePreview}
	} else {
		d = r.sw.resolver.Resolve(r.ctx, r.snap, r.cc, r.memo)
	}
	d = r.sw.filterDecision(r.ctx, d)

	metrics.ResolutionsTotal.WithLabelValues(string(d.Source)).Inc()
	level := slog.LevelDebug
	if r.snap.DebugEnabled {
		level = slog.LevelInfo
	}
	r.sw.logger.Log(r.ctx, level, "theme resolved", "context", r.cc.String(), "theme", d.Theme, "source", string(d.Source))

	r.decision = &d
	return d
}

// filterDecision runs hook.FilterResolvedTheme. A filtered theme that is not
// installed, or a failing filter, leaves the decision unchanged.
func (s *Switcher) filterDecision(ctx context.Context, d Decision) Decision {
	if s.hooks == nil || !s.hooks.HasHandlers(hook.FilterResolvedTheme) {
		return d
	}

	candidate := d
	out, err := s.hooks.Call(ctx, hook.FilterResolvedTheme, &candidate)
	if err != nil {
		return d
	}
	filtered, ok := out.(*Decision)
	if !ok {
		return d
	}
	if filtered.Theme != "" && !s.registry.Exists(filtered.Theme) {
		s.logger.Debug("filtered theme is not installed", "theme", filtered.Theme)
		return d
	}
	if filtered.Theme == "" {
		filtered.Source = SourceNone
	}
	return *filtered
}

// ResolveTemplateBase returns the template identity of the override theme
// (the parent for a child theme), or def.
func (r *Request) ResolveTemplateBase(def string) string {
	d := r.Decision()
	if !d.Overrides() {
		return def
	}
	if t := r.sw.registry.Template(d.Theme); t != "" {
		return t
	}
	return def
}

// ResolveStylesheetBase returns the stylesheet identity of the override
// theme, or def.
func (r *Request) ResolveStylesheetBase(def string) string {
	d := r.Decision()
	if !d.Overrides() {
		return def
	}
	if s := r.sw.registry.Stylesheet(d.Theme); s != "" {
		return s
	}
	return def
}

// ResolveTemplateFile maps the host's chosen template file into the override
// theme: a file with the same name, then the theme's index template, then def.
func (r *Request) ResolveTemplateFile(def string) string {
	d := r.Decision()
	if !d.Overrides() {
		return def
	}

	if name := util.TemplateBasename(def); name != "" {
		if path, ok := r.sw.registry.LocateTemplate(d.Theme, name); ok {
			return path
		}
	}

	for _, index := range indexTemplates(r.sw.registry.IsBlockTheme(d.Theme)) {
		if path, ok := r.sw.registry.LocateTemplate(d.Theme, index); ok {
			return path
		}
	}
	return def
}

func indexTemplates(block bool) []string {
	if block {
		return []string{theme.BlockIndex, theme.ClassicIndex}
	}
	return []string{theme.ClassicIndex}
}

// BodyMarkers returns presentational tokens identifying preview mode and the
// previewed theme. It is empty outside preview mode.
func (r *Request) BodyMarkers() []string {
	t, ok := r.gate.RequestedTheme()
	if !ok {
		return []string{}
	}
	return []string{MarkerPreviewMode, markerThemePrefix + util.SanitizeHTMLClass(t)}
}

// ClearCaches drops every shared resolution entry.
func (s *Switcher) ClearCaches(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.ClearAll(ctx)
}

// ContentTypesChanged drops cached content type and taxonomy decisions after
// the host re-syncs its registry. Sanitized settings depend on the registry,
// so entries of the current revision may no longer hold.
func (s *Switcher) ContentTypesChanged(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateSettings(ctx)
	}
}
