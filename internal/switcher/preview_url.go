// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package switcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/olegiv/themeswitcher/internal/theme"
	"github.com/olegiv/themeswitcher/internal/util"
)

// ErrPreviewUnavailable is returned when preview is disabled or the actor may
// not preview. The two cases are not distinguished.
var ErrPreviewUnavailable = errors.New("preview unavailable")

// PreviewURL returns target with the preview query parameter set to slug.
// An empty slug removes the parameter, which exits preview mode.
func (s *Switcher) PreviewURL(ctx context.Context, actor Actor, target, slug string) (string, error) {
	snap := s.settings.Load(ctx)
	if !snap.PreviewEnabled || !s.capability.CanPreview(ctx, actor) {
		return "", ErrPreviewUnavailable
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing target url: %w", err)
	}

	q := u.Query()
	slug = util.SanitizeTextField(slug)
	if slug == "" {
		q.Del(snap.QueryParam)
	} else {
		if !s.registry.Exists(slug) {
			return "", fmt.Errorf("%w: %s", theme.ErrThemeNotFound, slug)
		}
		q.Set(snap.QueryParam, slug)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
