// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package switcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/olegiv/themeswitcher/internal/hook"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/settings"
	"github.com/olegiv/themeswitcher/internal/store"
	"github.com/olegiv/themeswitcher/internal/theme"
	"github.com/olegiv/themeswitcher/internal/util"
)

// ErrInvalidItem is returned for object types other than post and term, or
// non-positive ids.
var ErrInvalidItem = errors.New("invalid content item")

// MetaStore reads and writes per-item metadata. *store.Queries implements it.
type MetaStore interface {
	MetaReader
	SetItemMeta(ctx context.Context, objectType string, objectID int64, key, value string) error
	DeleteItemMeta(ctx context.Context, objectType string, objectID int64, key string) (int64, error)
	ListItemMetaByKey(ctx context.Context, key string) ([]store.ItemMeta, error)
}

// ItemThemeChange is passed to hook.ActionItemThemeChanged.
type ItemThemeChange struct {
	ObjectType string
	ObjectID   int64
	Theme      string // empty when cleared
}

// ItemTheme returns the raw theme stored on a post or term, without
// validating it against the registry.
func (s *Switcher) ItemTheme(ctx context.Context, objectType string, id int64) (string, error) {
	if err := validItem(objectType, id); err != nil {
		return "", err
	}
	v, err := s.meta.GetItemMeta(ctx, objectType, id, model.ThemeMetaKey)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading item theme: %w", err)
	}
	return v, nil
}

// SetItemTheme assigns a theme to a post or term. An empty value, or the
// use-active sentinel, removes the assignment instead of storing it. A
// non-empty theme must be installed.
func (s *Switcher) SetItemTheme(ctx context.Context, objectType string, id int64, slug string) error {
	if err := validItem(objectType, id); err != nil {
		return err
	}

	slug = util.SanitizeTextField(slug)
	if slug == "" || slug == settings.UseActive {
		return s.ClearItemTheme(ctx, objectType, id)
	}
	if !s.registry.Exists(slug) {
		return fmt.Errorf("%w: %s", theme.ErrThemeNotFound, slug)
	}

	if err := s.meta.SetItemMeta(ctx, objectType, id, model.ThemeMetaKey, slug); err != nil {
		return fmt.Errorf("writing item theme: %w", err)
	}
	s.itemChanged(ctx, objectType, id, slug)
	return nil
}

// ClearItemTheme removes the assignment from a post or term. Clearing an item
// without one is not an error.
func (s *Switcher) ClearItemTheme(ctx context.Context, objectType string, id int64) error {
	if err := validItem(objectType, id); err != nil {
		return err
	}
	if _, err := s.meta.DeleteItemMeta(ctx, objectType, id, model.ThemeMetaKey); err != nil {
		return fmt.Errorf("deleting item theme: %w", err)
	}
	s.itemChanged(ctx, objectType, id, "")
	return nil
}

func (s *Switcher) itemChanged(ctx context.Context, objectType string, id int64, slug string) {
	if s.cache != nil {
		s.cache.InvalidateItem(ctx, itemKind(objectType), strconv.FormatInt(id, 10))
	}

	s.logger.Info("item theme changed", "object", objectType, "id", id, "theme", slug)

	if s.hooks != nil {
		change := ItemThemeChange{ObjectType: objectType, ObjectID: id, Theme: slug}
		if err := s.hooks.CallNoResult(ctx, hook.ActionItemThemeChanged, change); err != nil {
			s.logger.Warn("item theme hook failed", "error", err)
		}
	}
}

func validItem(objectType string, id int64) error {
	if objectType != model.ObjectPost && objectType != model.ObjectTerm {
		return fmt.Errorf("%w: object type %q", ErrInvalidItem, objectType)
	}
	if id <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidItem, id)
	}
	return nil
}
