// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package switcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/olegiv/themeswitcher/internal/metrics"
	"github.com/olegiv/themeswitcher/internal/model"
)

// Notice reports a configured override whose theme is not installed.
// References are "post_type:<name>", "taxonomy:<name>", "post:<id>" or
// "term:<id>".
type Notice struct {
	Theme      string   `json:"theme"`
	References []string `json:"references"`
}

// MissingThemes audits the settings and every per-item assignment against
// the registry.
func (s *Switcher) MissingThemes(ctx context.Context) ([]Notice, error) {
	refs := s.settings.Load(ctx).ConfiguredThemes()

	metas, err := s.meta.ListItemMetaByKey(ctx, model.ThemeMetaKey)
	if err != nil {
		return nil, fmt.Errorf("listing item themes: %w", err)
	}
	for _, m := range metas {
		if m.MetaValue == "" {
			continue
		}
		refs[m.MetaValue] = append(refs[m.MetaValue], itemKind(m.ObjectType)+":"+strconv.FormatInt(m.ObjectID, 10))
	}

	var notices []Notice
	for slug, where := range refs {
		if s.registry.Exists(slug) {
			continue
		}
		sort.Strings(where)
		notices = append(notices, Notice{Theme: slug, References: where})
	}
	sort.Slice(notices, func(i, j int) bool { return notices[i].Theme < notices[j].Theme })
	return notices, nil
}

// Audit runs MissingThemes and logs one warning per missing theme.
func (s *Switcher) Audit(ctx context.Context) ([]Notice, error) {
	notices, err := s.MissingThemes(ctx)
	if err != nil {
		return nil, err
	}

	for _, n := range notices {
		s.logger.Warn("configured theme is not installed",
			"theme", n.Theme,
			"references", n.References,
			"category", model.EventCategoryTheme,
		)
	}
	metrics.MissingThemeNotices.Set(float64(len(notices)))
	return notices, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
