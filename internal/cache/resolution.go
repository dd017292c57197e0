// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/metrics"
)

// Lookup kinds. Item kinds hold the item's own validated override; type kinds
// hold the validated override configured in settings.
const (
	KindPost     = "post"
	KindTerm     = "term"
	KindPostType = "post_type"
	KindTaxonomy = "taxonomy"
)

// invalidateTimeout bounds invalidation round trips, which run on the write
// path and may scan many keys.
const invalidateTimeout = 5 * time.Second

// Key builds the cache key for a lookup.
func Key(kind, id string) string {
	return kind + ":" + id
}

// Entry is a cached lookup result. None marks a computed "no override"
// answer, which is distinct from a cache miss. Rev records the settings
// revision a type-level entry was derived from.
type Entry struct {
	Theme string `json:"theme,omitempty"`
	None  bool   `json:"none,omitempty"`
	Rev   string `json:"rev,omitempty"`
}

// Found returns an entry carrying theme.
func Found(theme string) Entry {
	if theme == "" {
		return NoOverride()
	}
	return Entry{Theme: theme}
}

// NoOverride returns the explicit "no override" entry.
func NoOverride() Entry {
	return Entry{None: true}
}

// Resolution is the shared lookup cache in front of the settings record and
// item metadata. Backend failures and slow responses are treated as misses.
type Resolution struct {
	backend Cacher
	entries *TypedCache[Entry]
	timeout time.Duration
	hooks   *hook.Registry
	logger  *slog.Logger
}

// NewResolution wraps backend. timeout bounds every lookup and store on the
// request path; zero disables the bound.
func NewResolution(backend Cacher, ttl, timeout time.Duration, hooks *hook.Registry, logger *slog.Logger) *Resolution {
	return &Resolution{
		backend: backend,
		entries: NewTypedCache[Entry](backend, ttl),
		timeout: timeout,
		hooks:   hooks,
		logger:  logger,
	}
}

// Backend returns the underlying byte cache.
func (r *Resolution) Backend() Cacher {
	return r.backend
}

func (r *Resolution) bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Lookup returns the cached entry for (kind, id).
func (r *Resolution) Lookup(ctx context.Context, kind, id string) (Entry, bool) {
	ctx, cancel := r.bounded(ctx, r.timeout)
	defer cancel()

	entry, err := r.entries.Get(ctx, Key(kind, id))
	switch {
	case err == nil:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return entry, true
	case errors.Is(err, ErrCacheMiss):
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		r.logger.Debug("cache lookup failed", "kind", kind, "id", id, "error", err)
	}
	return Entry{}, false
}

// Store records the entry for (kind, id). Failures are logged and dropped.
func (r *Resolution) Store(ctx context.Context, kind, id string, entry Entry) {
	ctx, cancel := r.bounded(ctx, r.timeout)
	defer cancel()

	if err := r.entries.Set(ctx, Key(kind, id), entry); err != nil {
		r.logger.Debug("cache store failed", "kind", kind, "id", id, "error", err)
	}
}

// InvalidateSettings drops every entry derived from the settings record.
// Per-item entries only depend on item metadata and survive.
func (r *Resolution) InvalidateSettings(ctx context.Context) {
	ctx, cancel := r.bounded(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	for _, kind := range []string{KindPostType, KindTaxonomy} {
		if err := r.backend.DeleteByPrefix(ctx, kind+":"); err != nil {
			r.logger.Warn("failed to invalidate cached settings lookups", "kind", kind, "error", err)
		}
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("settings").Inc()
}

// InvalidateItem drops the entry for a single post or term.
func (r *Resolution) InvalidateItem(ctx context.Context, kind, id string) {
	ctx, cancel := r.bounded(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := r.backend.Delete(ctx, Key(kind, id)); err != nil {
		r.logger.Warn("failed to invalidate cached item lookup", "kind", kind, "id", id, "error", err)
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("item").Inc()
}

// ClearAll flushes every entry and fires the caches-cleared action.
func (r *Resolution) ClearAll(ctx context.Context) error {
	clearCtx, cancel := r.bounded(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := r.backend.Clear(clearCtx); err != nil {
		return err
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("all").Inc()
	r.logger.Info("resolution cache cleared")

	if r.hooks != nil {
		if err := r.hooks.CallNoResult(ctx, hook.ActionCachesCleared, nil); err != nil {
			r.logger.Warn("caches cleared hook failed", "error", err)
		}
	}
	return nil
}

// Memo is the request-scoped layer in front of Resolution. It is owned by a
// single request and is not safe for concurrent use.
type Memo struct {
	entries map[string]Entry
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	return &Memo{entries: make(map[string]Entry)}
}

// Get returns the memoized entry for (kind, id).
func (m *Memo) Get(kind, id string) (Entry, bool) {
	e, ok := m.entries[Key(kind, id)]
	return e, ok
}

// Put memoizes entry for (kind, id).
func (m *Memo) Put(kind, id string, entry Entry) {
	m.entries[Key(kind, id)] = entry
}

// Len returns the number of memoized entries.
func (m *Memo) Len() int {
	return len(m.entries)
}
