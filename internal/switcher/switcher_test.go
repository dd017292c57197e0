// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package switcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/themeswitcher/internal/cache"
	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/settings"
	"github.com/olegiv/themeswitcher/internal/store"
	"github.com/olegiv/themeswitcher/internal/theme"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// testThemes installs:
//
//	default        style.css, index.php, single.php (the active theme)
//	classic-theme  style.css, index.php, single.php
//	modern-theme   theme.json, templates/index.html
//	child-theme    style.css (Template: classic-theme), page.php
//	orphan-child   style.css (Template: missing-parent)
func testThemes(t *testing.T) *theme.Manager {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "default/style.css", "/*\nTheme Name: Default\n*/")
	writeFile(t, dir, "default/index.php", "<?php // index")
	writeFile(t, dir, "default/single.php", "<?php // single")

	writeFile(t, dir, "classic-theme/style.css", "/*\nTheme Name: Classic Theme\n*/")
	writeFile(t, dir, "classic-theme/index.php", "<?php // index")
	writeFile(t, dir, "classic-theme/single.php", "<?php // single")

	writeFile(t, dir, "modern-theme/theme.json", `{"name":"Modern Theme"}`)
	writeFile(t, dir, "modern-theme/templates/index.html", "<!-- wp:post-content /-->")

	writeFile(t, dir, "child-theme/style.css", "/*\nTheme Name: Child Theme\nTemplate: classic-theme\n*/")
	writeFile(t, dir, "child-theme/page.php", "<?php // page")

	writeFile(t, dir, "orphan-child/style.css", "/*\nTheme Name: Orphan\nTemplate: missing-parent\n*/")

	m := theme.NewManager(dir, "default", testLogger())
	require.NoError(t, m.LoadThemes())
	return m
}

// countingMeta counts metadata reads and can be made to fail.
type countingMeta struct {
	MetaStore
	reads int
	fail  error
}

func (c *countingMeta) GetItemMeta(ctx context.Context, objectType string, id int64, key string) (string, error) {
	c.reads++
	if c.fail != nil {
		return "", c.fail
	}
	return c.MetaStore.GetItemMeta(ctx, objectType, id, key)
}

type harness struct {
	sw       *Switcher
	settings *settings.Store
	queries  *store.Queries
	meta     *countingMeta
	cache    *cache.Resolution
	backend  *cache.MemoryCache
	themes   *theme.Manager
	hooks    *hook.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "switcher.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	queries := store.New(db)

	logger := testLogger()
	hooks := hook.NewRegistry(logger)
	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = backend.Close() })
	resolution := cache.NewResolution(backend, time.Hour, 100*time.Millisecond, hooks, logger)

	types := settings.NewContentTypes(queries, logger)
	_, err = types.Replace(context.Background(), model.KindPostType, []model.ContentType{
		{Name: "product", Label: "Products", Public: true},
	})
	require.NoError(t, err)

	st := settings.NewStore(queries, types, resolution, hooks, logger)
	meta := &countingMeta{MetaStore: queries}
	themes := testThemes(t)

	sw := New(Deps{
		Registry:      themes,
		Meta:          meta,
		Settings:      st,
		Cache:         resolution,
		Capability:    NewHookedCapability(nil, hooks, logger),
		Hooks:         hooks,
		Logger:        logger,
		LookupTimeout: 100 * time.Millisecond,
	})

	return &harness{
		sw:       sw,
		settings: st,
		queries:  queries,
		meta:     meta,
		cache:    resolution,
		backend:  backend,
		themes:   themes,
		hooks:    hooks,
	}
}

func (h *harness) save(t *testing.T, partial map[string]any) {
	t.Helper()
	_, err := h.settings.Save(context.Background(), partial)
	require.NoError(t, err)
}

func (h *harness) resolve(cc ContentContext) Decision {
	return h.sw.NewRequest(context.Background(), Input{Context: cc}).Decision()
}

var editor = Actor{Authenticated: true, Capabilities: []string{model.CapEditPosts}}

func previewQuery(theme string) url.Values {
	return url.Values{settings.DefaultQueryParam: {theme}}
}

func postOverride(theme string) map[string]any {
	return map[string]any{"post_type_overrides": map[string]any{"post": map[string]any{"theme": theme}}}
}

func TestResolve_ItemOverrideBeatsContentType(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.save(t, postOverride("classic-theme"))
	require.NoError(t, h.sw.SetItemTheme(ctx, model.ObjectPost, 5, "modern-theme"))

	d := h.resolve(Singular(5, "post"))
	assert.Equal(t, Decision{Theme: "modern-theme", Source: SourceItem}, d)
}

func TestResolve_ContentTypeOverride(t *testing.T) {
	h := newHarness(t)
	h.save(t, map[string]any{"post_type_overrides": map[string]any{
		"post":    map[string]any{"theme": "classic-theme"},
		"product": map[string]any{"theme": "modern-theme"},
	}})

	assert.Equal(t, Decision{Theme: "classic-theme", Source: SourceContentType}, h.resolve(Singular(1, "post")))
	assert.Equal(t, Decision{Theme: "modern-theme", Source: SourceContentType}, h.resolve(Singular(2, "product")))
}

func TestResolve_NoOverride(t *testing.T) {
	h := newHarness(t)
	h.save(t, map[string]any{
		"post_type_overrides": map[string]any{"post": map[string]any{"theme": settings.UseActive}},
		"taxonomy_overrides":  map[string]any{"category": map[string]any{"theme": ""}},
	})

	tests := []struct {
		name string
		cc   ContentContext
	}{
		{"home page", ContentContext{}},
		{"use_active sentinel", Singular(1, "post")},
		{"empty taxonomy theme", TermArchive(3, "category")},
		{"type without override", Singular(2, "page")},
		{"unregistered type", Singular(4, "unknown")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := h.resolve(tt.cc)
			assert.False(t, d.Overrides())
			assert.Equal(t, SourceNone, d.Source)
		})
	}
}

func TestResolve_MissingThemeFallsThrough(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Stored directly: the API refuses unknown themes.
	require.NoError(t, h.queries.SetItemMeta(ctx, model.ObjectPost, 1, model.ThemeMetaKey, "deleted-theme"))
	h.save(t, postOverride("classic-theme"))
	assert.Equal(t, Decision{Theme: "classic-theme", Source: SourceContentType}, h.resolve(Singular(1, "post")))

	h.save(t, postOverride("also-deleted"))
	assert.Equal(t, Decision{Source: SourceNone}, h.resolve(Singular(1, "post")))

	// A child theme without its parent is not usable either.
	h.save(t, postOverride("orphan-child"))
	assert.Equal(t, Decision{Source: SourceNone}, h.resolve(Singular(2, "post")))
}

func TestResolve_Taxonomy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.save(t, map[string]any{"taxonomy_overrides": map[string]any{"category": map[string]any{"theme": "classic-theme"}}})

	assert.Equal(t, Decision{Theme: "classic-theme", Source: SourceContentType}, h.resolve(TermArchive(7, "category")))

	require.NoError(t, h.sw.SetItemTheme(ctx, model.ObjectTerm, 7, "modern-theme"))
	assert.Equal(t, Decision{Theme: "modern-theme", Source: SourceItem}, h.resolve(TermArchive(7, "category")))
	assert.Equal(t, Decision{Theme: "classic-theme", Source: SourceContentType}, h.resolve(TermArchive(8, "category")))

	// Term ids and post ids live in separate spaces.
	assert.Equal(t, SourceNone, h.resolve(Singular(7, "page")).Source)
}

func TestResolve_EndToEndItemOverride(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.save(t, postOverride("classic-theme"))
	item := Singular(1, "post")

	assert.Equal(t, "classic-theme", h.resolve(item).Theme)

	require.NoError(t, h.sw.SetItemTheme(ctx, model.ObjectPost, 1, "modern-theme"))
	assert.Equal(t, "modern-theme", h.resolve(item).Theme)

	require.NoError(t, h.sw.SetItemTheme(ctx, model.ObjectPost, 1, ""))
	assert.Equal(t, "classic-theme", h.resolve(item).Theme)

	_, err := h.queries.GetItemMeta(ctx, model.ObjectPost, 1, model.ThemeMetaKey)
	assert.Error(t, err, "clearing must delete the metadata, not store an empty value")
}

func TestResolve_SettingsWriteInvalidatesCache(t *testing.T) {
	h := newHarness(t)
	h.save(t, postOverride("classic-theme"))
	item := Singular(1, "post")

	assert.Equal(t, "classic-theme", h.resolve(item).Theme)
	_, cached := h.cache.Lookup(context.Background(), cache.KindPostType, "post")
	require.True(t, cached)

	h.save(t, postOverride("modern-theme"))
	_, cached = h.cache.Lookup(context.Background(), cache.KindPostType, "post")
	assert.False(t, cached, "settings write must delete type-level entries")
	assert.Equal(t, "modern-theme", h.resolve(item).Theme)
}

func TestResolve_StaleSharedEntryIgnored(t *testing.T) {
	h := newHarness(t)
	h.save(t, postOverride("classic-theme"))

	// An entry written from an older snapshot, e.g. by a request that
	// raced a settings write in another process.
	h.cache.Store(context.Background(), cache.KindPostType, "post", cache.Entry{Theme: "modern-theme", Rev: "old"})

	assert.Equal(t, "classic-theme", h.resolve(Singular(1, "post")).Theme)
}

func TestResolve_MemoizesPerRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.sw.SetItemTheme(ctx, model.ObjectPost, 1, "modern-theme"))
	require.NoError(t, h.sw.ClearCaches(ctx))

	memo := cache.NewMemo()
	snap := h.settings.Load(ctx)
	for range 3 {
		d := h.sw.resolver.Resolve(ctx, snap, Singular(1, "post"), memo)
		assert.Equal(t, "modern-theme", d.Theme)
	}
	assert.Equal(t, 1, h.meta.reads)

	// The next request is served from the shared cache.
	assert.Equal(t, "modern-theme", h.resolve(Singular(1, "post")).Theme)
	assert.Equal(t, 1, h.meta.reads)
}

func TestResolve_MetaFailureMeansNoItemOverride(t *testing.T) {
	h := newHarness(t)
	h.save(t, postOverride("classic-theme"))
	h.meta.fail = errors.New("database is locked")

	assert.Equal(t, Decision{Theme: "classic-theme", Source: SourceContentType}, h.resolve(Singular(1, "post")))
	_, cached := h.cache.Lookup(context.Background(), cache.KindPost, "1")
	assert.False(t, cached, "a failed read must not be cached")
}

func TestPreview_OutranksAssignmentAndNeverPersists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.save(t, postOverride("classic-theme"))
	before := h.settings.Load(ctx)

	req := h.sw.NewRequest(ctx, Input{Context: Singular(1, "post"), Actor: editor, Query: previewQuery("modern-theme")})
	assert.True(t, req.Gate().IsActive())
	assert.Equal(t, Decision{Theme: "modern-theme", Source: SourcePreview}, req.Decision())

	next := h.sw.NewRequest(ctx, Input{Context: Singular(1, "post"), Actor: editor})
	assert.Equal(t, Decision{Theme: "classic-theme", Source: SourceContentType}, next.Decision())

	assert.Equal(t, before, h.settings.Load(ctx))
	_, err := h.queries.GetItemMeta(ctx, model.ObjectPost, 1, model.ThemeMetaKey)
	assert.Error(t, err)
}

func TestPreview_InactiveConditions(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		actor   Actor
		query   url.Values
		reason  string
	}{
		{"preview disabled", false, editor, previewQuery("modern-theme"), reasonDisabled},
		{"actor lacks capability", true, Actor{Authenticated: true}, previewQuery("modern-theme"), reasonUnauthorized},
		{"anonymous actor", true, Actor{Capabilities: []string{model.CapEditPosts}}, previewQuery("modern-theme"), reasonUnauthorized},
		{"parameter absent", true, editor, url.Values{}, reasonNoParam},
		{"parameter empty", true, editor, previewQuery("  "), reasonNoParam},
		{"theme not installed", true, editor, previewQuery("nonexistent-theme"), reasonInvalidTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.save(t, map[string]any{"preview_enabled": tt.enabled})

			req := h.sw.NewRequest(ctx, Input{Context: ContentContext{}, Actor: tt.actor, Query: tt.query})
			assert.False(t, req.Gate().IsActive())
			_, ok := req.Gate().RequestedTheme()
			assert.False(t, ok)
			assert.Equal(t, tt.reason, req.Gate().reason)
			assert.Empty(t, req.BodyMarkers())
			assert.Equal(t, SourceNone, req.Decision().Source)
		})
	}
}

func TestPreview_NonexistentThemeFallsThrough(t *testing.T) {
	h := newHarness(t)
	h.save(t, postOverride("classic-theme"))

	req := h.sw.NewRequest(context.Background(), Input{
		Context: Singular(1, "post"),
		Actor:   editor,
		Query:   previewQuery("nonexistent-theme"),
	})
	assert.False(t, req.Gate().IsActive())
	assert.Equal(t, Decision{Theme: "classic-theme", Source: SourceContentType}, req.Decision())
}

func TestPreview_CustomQueryParam(t *testing.T) {
	h := newHarness(t)
	h.save(t, map[string]any{"query_param": "Try-Theme!"})

	snap := h.settings.Load(context.Background())
	require.Equal(t, "trytheme", snap.QueryParam)

	req := h.sw.NewRequest(context.Background(), Input{Actor: editor, Query: url.Values{"trytheme": {"modern-theme"}}})
	assert.True(t, req.Gate().IsActive())

	req = h.sw.NewRequest(context.Background(), Input{Actor: editor, Query: previewQuery("modern-theme")})
	assert.False(t, req.Gate().IsActive())
}

func TestPreview_CapabilityFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Collaborators may grant preview to actors without edit_posts.
	h.hooks.RegisterFunc(hook.FilterCanPreview, "subscribers", "test", func(_ context.Context, data any) (any, error) {
		p := data.(*PreviewPermission)
		if p.Actor.Authenticated {
			p.Allowed = true
		}
		return p, nil
	})

	subscriber := Actor{Authenticated: true}
	req := h.sw.NewRequest(ctx, Input{Actor: subscriber, Query: previewQuery("modern-theme")})
	assert.True(t, req.Gate().IsActive())

	req = h.sw.NewRequest(ctx, Input{Actor: Actor{}, Query: previewQuery("modern-theme")})
	assert.False(t, req.Gate().IsActive())
}

func TestPreview_FailingCapabilityFilterDenies(t *testing.T) {
	h := newHarness(t)
	h.hooks.RegisterFunc(hook.FilterCanPreview, "broken", "test", func(context.Context, any) (any, error) {
		return nil, errors.New("boom")
	})

	req := h.sw.NewRequest(context.Background(), Input{Actor: editor, Query: previewQuery("modern-theme")})
	assert.False(t, req.Gate().IsActive())
}

func TestResolvedThemeFilter(t *testing.T) {
	h := newHarness(t)
	h.save(t, postOverride("classic-theme"))

	h.hooks.RegisterFunc(hook.FilterResolvedTheme, "swap", "test", func(_ context.Context, data any) (any, error) {
		d := data.(*Decision)
		switch d.Theme {
		case "classic-theme":
			d.Theme = "not-installed"
		case "":
			d.Theme = "modern-theme"
			d.Source = SourceContentType
		}
		return d, nil
	})

	// Filtering to an uninstalled theme keeps the original decision.
	assert.Equal(t, "classic-theme", h.resolve(Singular(1, "post")).Theme)
	assert.Equal(t, "modern-theme", h.resolve(Singular(1, "page")).Theme)
}

func TestResolveTemplateBaseAndStylesheet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.save(t, map[string]any{"post_type_overrides": map[string]any{
		"post": map[string]any{"theme": "child-theme"},
	}})

	req := h.sw.NewRequest(ctx, Input{Context: Singular(1, "post")})
	assert.Equal(t, "classic-theme", req.ResolveTemplateBase("default"), "a child theme's templates come from its parent")
	assert.Equal(t, "child-theme", req.ResolveStylesheetBase("default"))

	home := h.sw.NewRequest(ctx, Input{})
	assert.Equal(t, "default", home.ResolveTemplateBase("default"))
	assert.Equal(t, "default", home.ResolveStylesheetBase("default"))
}

func TestResolveTemplateFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := h.themes.ThemesDir()
	def := func(name string) string { return filepath.Join(root, "default", name) }
	in := func(slug, rel string) string {
		p, err := filepath.Abs(filepath.Join(root, slug, filepath.FromSlash(rel)))
		require.NoError(t, err)
		return p
	}

	tests := []struct {
		name  string
		theme string
		def   string
		want  string
	}{
		{"same-named file", "classic-theme", def("single.php"), in("classic-theme", "single.php")},
		{"classic index fallback", "classic-theme", def("archive.php"), in("classic-theme", "index.php")},
		{"block index fallback", "modern-theme", def("single.php"), in("modern-theme", "templates/index.html")},
		{"child file", "child-theme", def("page.php"), in("child-theme", "page.php")},
		{"parent file for child", "child-theme", def("single.php"), in("classic-theme", "single.php")},
		{"parent index for child", "child-theme", def("search.php"), in("classic-theme", "index.php")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := h.sw.NewRequest(ctx, Input{Actor: editor, Query: previewQuery(tt.theme)})
			require.True(t, req.Gate().IsActive())
			assert.Equal(t, tt.want, req.ResolveTemplateFile(tt.def))
		})
	}

	t.Run("no override keeps default", func(t *testing.T) {
		req := h.sw.NewRequest(ctx, Input{})
		assert.Equal(t, def("single.php"), req.ResolveTemplateFile(def("single.php")))
	})
}

func TestResolveTemplateFile_NothingUsableKeepsDefault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A half-installed theme: metadata only, no templates at all.
	writeFile(t, h.themes.ThemesDir(), "bare-theme/style.css", "/*\nTheme Name: Bare\n*/")
	require.NoError(t, h.themes.Reload())

	req := h.sw.NewRequest(ctx, Input{Actor: editor, Query: previewQuery("bare-theme")})
	require.True(t, req.Gate().IsActive())
	assert.Equal(t, "/srv/default/single.php", req.ResolveTemplateFile("/srv/default/single.php"))
	assert.Equal(t, "", req.ResolveTemplateFile(""))
}

func TestBodyMarkers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.sw.NewRequest(ctx, Input{Actor: editor, Query: previewQuery("modern-theme")})
	assert.Equal(t, []string{"sts-preview-mode", "sts-preview-modern-theme"}, req.BodyMarkers())

	// Persistent assignments are not preview mode.
	h.save(t, postOverride("classic-theme"))
	req = h.sw.NewRequest(ctx, Input{Context: Singular(1, "post"), Actor: editor})
	assert.Equal(t, "classic-theme", req.Decision().Theme)
	assert.Empty(t, req.BodyMarkers())
}

func TestRequestSnapshotIsStable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.save(t, postOverride("classic-theme"))

	req := h.sw.NewRequest(ctx, Input{Context: Singular(1, "post")})
	h.save(t, postOverride("modern-theme"))

	assert.Equal(t, "classic-theme", req.Settings().PostTypeTheme("post"))
	assert.Equal(t, "classic-theme", req.Decision().Theme)
}
