// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/metrics"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/store"
)

// Invalidator drops derived state that depends on settings.
type Invalidator interface {
	InvalidateSettings(ctx context.Context)
}

// Store loads and saves the settings record. Writes are serialized.
type Store struct {
	mu          sync.Mutex
	queries     *store.Queries
	types       TypeRegistry
	invalidator Invalidator
	hooks       *hook.Registry
	logger      *slog.Logger
}

// NewStore creates a settings store. invalidator and hooks may be nil.
func NewStore(queries *store.Queries, types TypeRegistry, invalidator Invalidator, hooks *hook.Registry, logger *slog.Logger) *Store {
	return &Store{
		queries:     queries,
		types:       types,
		invalidator: invalidator,
		hooks:       hooks,
		logger:      logger,
	}
}

// Load returns a sanitized snapshot. Read or decode failures are logged and
// yield Defaults; Load never fails.
func (s *Store) Load(ctx context.Context) Settings {
	snap, err := s.load(ctx, s.queries)
	if err != nil {
		s.logger.Error("failed to read settings", "error", err, "category", model.EventCategorySettings)
		return Defaults()
	}
	return snap
}

// load reads the stored record through q. A missing record yields Defaults;
// any other read error is returned.
func (s *Store) load(ctx context.Context, q *store.Queries) (Settings, error) {
	raw, err := q.GetOption(ctx, OptionName)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	doc := Decode(raw)
	if shape := DetectShape(doc); shape != ShapeStructured && shape != ShapeEmpty {
		s.logger.Debug("upgrading stored settings", "shape", shape.String())
	}
	snap := Sanitize(doc, s.types)
	snap.Revision = revisionOf(raw)
	return snap, nil
}

// Save merges partial over the current settings, sanitizes the result,
// persists it and invalidates derived state. Only recognised top-level keys
// of any layout are taken from partial. It returns the persisted settings.
// If the current record cannot be read nothing is written.
func (s *Store) Save(ctx context.Context, partial any) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next Settings
	err := s.inTx(ctx, func(q *store.Queries) error {
		current, err := s.load(ctx, q)
		if err != nil {
			return err
		}

		merged := current.toRaw()
		for k, v := range Migrate(Decode(partial)) {
			merged[k] = v
		}
		next = Sanitize(merged, s.types)

		rev, err := s.write(ctx, q, next)
		if err != nil {
			return err
		}
		next.Revision = rev
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	metrics.SettingsWritesTotal.Inc()

	if s.invalidator != nil {
		s.invalidator.InvalidateSettings(ctx)
	}
	if s.hooks != nil {
		if err := s.hooks.CallNoResult(ctx, hook.ActionSettingsSaved, next.Clone()); err != nil {
			s.logger.Warn("settings saved hook failed", "error", err, "category", model.EventCategorySettings)
		}
	}

	s.logger.Info("settings saved",
		"post_type_overrides", len(next.PostTypeOverrides),
		"taxonomy_overrides", len(next.TaxonomyOverrides),
		"preview_enabled", next.PreviewEnabled,
	)
	return next, nil
}

// Reset deletes the stored record so that Load returns defaults.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.queries.DeleteOption(ctx, OptionName); err != nil {
		return fmt.Errorf("deleting settings: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateSettings(ctx)
	}
	return nil
}

// inTx runs fn in a transaction when the store holds a database handle, and
// directly on the bound queries otherwise.
func (s *Store) inTx(ctx context.Context, fn func(q *store.Queries) error) error {
	if db, ok := s.queries.DB(); ok {
		return store.InTx(ctx, db, fn)
	}
	return fn(s.queries)
}

func (s *Store) write(ctx context.Context, q *store.Queries, next Settings) (string, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return "", fmt.Errorf("encoding settings: %w", err)
	}
	if err := q.UpsertOption(ctx, OptionName, string(data)); err != nil {
		return "", fmt.Errorf("writing settings: %w", err)
	}
	return revisionOf(string(data)), nil
}
