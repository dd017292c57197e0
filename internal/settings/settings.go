// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package settings holds the switcher configuration: the typed Settings
// snapshot, migration of older persisted shapes, the sanitization contract
// and the persistent store.
package settings

import (
	"encoding/json"
	"hash/fnv"
	"maps"
	"strconv"
)

const (
	// UseActive means "no override, defer to the live theme".
	UseActive = "use_active"

	// DefaultQueryParam is the preview query parameter when none is configured.
	DefaultQueryParam = "sts_theme"

	// OptionName is the options row holding the persisted settings.
	OptionName = "smart_theme_switcher_settings"

	// SchemaVersion is written with every save.
	SchemaVersion = 2
)

// Override is a per content-type or per taxonomy theme assignment.
type Override struct {
	Theme string `json:"theme"`
}

// IsSet reports whether the override names a theme rather than deferring.
func (o Override) IsSet() bool {
	return o.Theme != "" && o.Theme != UseActive
}

// Settings is an immutable-by-convention snapshot. Use Clone before mutating
// a value obtained from a Store.
type Settings struct {
	Version             int                 `json:"version"`
	PostTypeOverrides   map[string]Override `json:"post_type_overrides"`
	TaxonomyOverrides   map[string]Override `json:"taxonomy_overrides"`
	PreviewEnabled      bool                `json:"preview_enabled"`
	BannerEnabled       bool                `json:"banner_enabled"`
	QueryParam          string              `json:"query_param"`
	DefaultPreviewTheme string              `json:"default_preview_theme"`
	DebugEnabled        bool                `json:"debug_enabled"`

	// Revision identifies the stored record this snapshot was read from.
	// Empty for defaults.
	Revision string `json:"-"`
}

// Defaults returns a fully populated Settings with default values.
func Defaults() Settings {
	return Settings{
		Version:           SchemaVersion,
		PostTypeOverrides: map[string]Override{},
		TaxonomyOverrides: map[string]Override{},
		PreviewEnabled:    true,
		BannerEnabled:     true,
		QueryParam:        DefaultQueryParam,
	}
}

// PostTypeTheme returns the configured theme for a content type, or "" when
// the type has no override or defers to the active theme.
func (s Settings) PostTypeTheme(postType string) string {
	if o, ok := s.PostTypeOverrides[postType]; ok && o.IsSet() {
		return o.Theme
	}
	return ""
}

// TaxonomyTheme returns the configured theme for a taxonomy, or "".
func (s Settings) TaxonomyTheme(taxonomy string) string {
	if o, ok := s.TaxonomyOverrides[taxonomy]; ok && o.IsSet() {
		return o.Theme
	}
	return ""
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	c.PostTypeOverrides = maps.Clone(s.PostTypeOverrides)
	c.TaxonomyOverrides = maps.Clone(s.TaxonomyOverrides)
	if c.PostTypeOverrides == nil {
		c.PostTypeOverrides = map[string]Override{}
	}
	if c.TaxonomyOverrides == nil {
		c.TaxonomyOverrides = map[string]Override{}
	}
	return c
}

// ConfiguredThemes returns every theme slug referenced by an override.
func (s Settings) ConfiguredThemes() map[string][]string {
	refs := make(map[string][]string)
	for name, o := range s.PostTypeOverrides {
		if o.IsSet() {
			refs[o.Theme] = append(refs[o.Theme], "post_type:"+name)
		}
	}
	for name, o := range s.TaxonomyOverrides {
		if o.IsSet() {
			refs[o.Theme] = append(refs[o.Theme], "taxonomy:"+name)
		}
	}
	return refs
}

// toRaw converts s back into the generic form accepted by Sanitize.
func (s Settings) toRaw() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]any{}
	}
	return raw
}

// revisionOf fingerprints a stored settings document.
func revisionOf(doc string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(doc))
	return strconv.FormatUint(h.Sum64(), 36)
}
