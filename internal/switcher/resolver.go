// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package switcher

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/olegiv/themeswitcher/internal/cache"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/settings"
)

// ThemeRegistry is the read-only view of installed themes used during
// resolution. *theme.Manager implements it.
type ThemeRegistry interface {
	Exists(slug string) bool
	Template(slug string) string
	Stylesheet(slug string) string
	IsBlockTheme(slug string) bool
	LocateTemplate(slug, rel string) (string, bool)
}

// MetaReader reads per-item metadata. *store.Queries implements it.
type MetaReader interface {
	GetItemMeta(ctx context.Context, objectType string, objectID int64, key string) (string, error)
}

// Source names the precedence level that produced a decision.
type Source string

const (
	SourcePreview     Source = "preview"
	SourceItem        Source = "item"
	SourceContentType Source = "content_type"
	SourceNone        Source = "none"
)

// Decision is the outcome of resolution for one request. Theme is empty when
// the active theme should be used.
type Decision struct {
	Theme  string `json:"theme,omitempty"`
	Source Source `json:"source"`
}

// Overrides reports whether the decision replaces the active theme.
func (d Decision) Overrides() bool {
	return d.Theme != ""
}

// Resolver computes the persistent theme assignment for a content context:
// the per-item override first, then the content type or taxonomy override.
// Invalid or uninstalled themes at any level are skipped.
type Resolver struct {
	registry ThemeRegistry
	meta     MetaReader
	shared   *cache.Resolution
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResolver creates a resolver. shared may be nil; timeout bounds each
// metadata read, zero means unbounded.
func NewResolver(registry ThemeRegistry, meta MetaReader, shared *cache.Resolution, timeout time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		meta:     meta,
		shared:   shared,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve returns the assigned theme for cc under the settings snapshot. memo
// may be nil.
func (r *Resolver) Resolve(ctx context.Context, snap settings.Settings, cc ContentContext, memo *cache.Memo) Decision {
	if memo == nil {
		memo = cache.NewMemo()
	}

	if objectType, id, ok := cc.item(); ok {
		if t := r.itemTheme(ctx, objectType, id, memo); t != "" {
			return Decision{Theme: t, Source: SourceItem}
		}
	}

	switch {
	case cc.IsSingular() && cc.PostType != "":
		if t := r.typeTheme(ctx, cache.KindPostType, cc.PostType, snap.PostTypeTheme(cc.PostType), snap.Revision, memo); t != "" {
			return Decision{Theme: t, Source: SourceContentType}
		}
	case cc.IsTaxonomy() && cc.Taxonomy != "":
		if t := r.typeTheme(ctx, cache.KindTaxonomy, cc.Taxonomy, snap.TaxonomyTheme(cc.Taxonomy), snap.Revision, memo); t != "" {
			return Decision{Theme: t, Source: SourceContentType}
		}
	}

	return Decision{Source: SourceNone}
}

// itemTheme returns the validated per-item theme for a post or term.
func (r *Resolver) itemTheme(ctx context.Context, objectType string, id int64, memo *cache.Memo) string {
	kind := itemKind(objectType)
	key := strconv.FormatInt(id, 10)

	if e, ok := memo.Get(kind, key); ok {
		return e.Theme
	}
	if r.shared != nil {
		if e, ok := r.shared.Lookup(ctx, kind, key); ok {
			memo.Put(kind, key, e)
			return e.Theme
		}
	}

	raw, err := r.readMeta(ctx, objectType, id)
	if err != nil {
		// Not cached: a transient failure must not pin "no override".
		r.logger.Debug("per-item override unavailable", "object", objectType, "id", id, "error", err)
		memo.Put(kind, key, cache.NoOverride())
		return ""
	}

	entry := cache.NoOverride()
	if r.valid(raw) {
		entry = cache.Found(raw)
	}
	memo.Put(kind, key, entry)
	if r.shared != nil {
		r.shared.Store(ctx, kind, key, entry)
	}
	return entry.Theme
}

// typeTheme returns the validated override configured for a content type or
// taxonomy. configured comes from the request's settings snapshot; shared
// entries from another revision are ignored.
func (r *Resolver) typeTheme(ctx context.Context, kind, name, configured, rev string, memo *cache.Memo) string {
	if e, ok := memo.Get(kind, name); ok {
		return e.Theme
	}
	if r.shared != nil {
		if e, ok := r.shared.Lookup(ctx, kind, name); ok && e.Rev == rev {
			memo.Put(kind, name, e)
			return e.Theme
		}
	}

	entry := cache.NoOverride()
	if r.valid(configured) {
		entry = cache.Found(configured)
	}
	entry.Rev = rev
	memo.Put(kind, name, entry)
	if r.shared != nil {
		r.shared.Store(ctx, kind, name, entry)
	}
	return entry.Theme
}

func (r *Resolver) readMeta(ctx context.Context, objectType string, id int64) (string, error) {
	if r.meta == nil {
		return "", nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	v, err := r.meta.GetItemMeta(ctx, objectType, id, model.ThemeMetaKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// valid reports whether slug is a real, installed theme.
func (r *Resolver) valid(slug string) bool {
	return slug != "" && slug != settings.UseActive && r.registry.Exists(slug)
}

func itemKind(objectType string) string {
	if objectType == model.ObjectTerm {
		return cache.KindTerm
	}
	return cache.KindPost
}
