// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/store"
	"github.com/olegiv/themeswitcher/internal/util"
)

// excludedPostTypes are never offered for overrides.
var excludedPostTypes = map[string]bool{"attachment": true}

// ContentTypes is the registry of content types and taxonomies the host has
// synced. Built-in types are always registered.
type ContentTypes struct {
	queries *store.Queries
	logger  *slog.Logger

	mu         sync.RWMutex
	postTypes  map[string]model.ContentType
	taxonomies map[string]model.ContentType
}

// NewContentTypes creates a registry holding only the built-in types. Call
// Load to add host-registered ones.
func NewContentTypes(queries *store.Queries, logger *slog.Logger) *ContentTypes {
	c := &ContentTypes{queries: queries, logger: logger}
	c.postTypes = withBuiltins(model.BuiltinPostTypes, nil)
	c.taxonomies = withBuiltins(model.BuiltinTaxonomies, nil)
	return c
}

func withBuiltins(builtins, registered []model.ContentType) map[string]model.ContentType {
	m := make(map[string]model.ContentType, len(builtins)+len(registered))
	for _, ct := range registered {
		m[ct.Name] = ct
	}
	for _, ct := range builtins {
		if _, ok := m[ct.Name]; !ok {
			m[ct.Name] = ct
		}
	}
	return m
}

// Load reads registered types from the store.
func (c *ContentTypes) Load(ctx context.Context) error {
	postTypes, err := c.queries.ListContentTypes(ctx, model.KindPostType)
	if err != nil {
		return fmt.Errorf("listing post types: %w", err)
	}
	taxonomies, err := c.queries.ListContentTypes(ctx, model.KindTaxonomy)
	if err != nil {
		return fmt.Errorf("listing taxonomies: %w", err)
	}

	c.mu.Lock()
	c.postTypes = withBuiltins(model.BuiltinPostTypes, postTypes)
	c.taxonomies = withBuiltins(model.BuiltinTaxonomies, taxonomies)
	c.mu.Unlock()
	return nil
}

// PostTypeExists reports whether name is a registered content type.
func (c *ContentTypes) PostTypeExists(name string) bool {
	if excludedPostTypes[name] {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.postTypes[name]
	return ok
}

// TaxonomyExists reports whether name is a registered taxonomy.
func (c *ContentTypes) TaxonomyExists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.taxonomies[name]
	return ok
}

// PostTypes returns public content types sorted by name.
func (c *ContentTypes) PostTypes() []model.ContentType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return publicSorted(c.postTypes)
}

// Taxonomies returns public taxonomies sorted by name.
func (c *ContentTypes) Taxonomies() []model.ContentType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return publicSorted(c.taxonomies)
}

func publicSorted(m map[string]model.ContentType) []model.ContentType {
	out := make([]model.ContentType, 0, len(m))
	for _, ct := range m {
		if ct.Public && !excludedPostTypes[ct.Name] {
			out = append(out, ct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Replace swaps the registered set of one kind for types. Names are
// sanitized; empty names and excluded types are skipped. It returns the
// resulting registered list.
func (c *ContentTypes) Replace(ctx context.Context, kind string, types []model.ContentType) ([]model.ContentType, error) {
	if kind != model.KindPostType && kind != model.KindTaxonomy {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	clean := make([]model.ContentType, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, ct := range types {
		name := util.SanitizeName(ct.Name)
		if name == "" || seen[name] || excludedPostTypes[name] {
			continue
		}
		seen[name] = true
		label := util.SanitizeTextField(ct.Label)
		if label == "" {
			label = name
		}
		clean = append(clean, model.ContentType{Kind: kind, Name: name, Label: label, Public: ct.Public})
	}

	db, ok := c.queries.DB()
	if !ok {
		return nil, fmt.Errorf("content type registry requires a database handle")
	}
	err := store.InTx(ctx, db, func(q *store.Queries) error {
		if err := q.DeleteContentTypesByKind(ctx, kind); err != nil {
			return err
		}
		for _, ct := range clean {
			if err := q.UpsertContentType(ctx, ct); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replacing %s registry: %w", kind, err)
	}

	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("content types replaced", "kind", kind, "count", len(clean))

	if kind == model.KindPostType {
		return c.PostTypes(), nil
	}
	return c.Taxonomies(), nil
}
