// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package settings

// Shape identifies which generation of the persisted layout a raw document
// carries. Documents written by older releases can mix generations.
type Shape int

const (
	// ShapeEmpty carries no recognised keys.
	ShapeEmpty Shape = iota
	// ShapeLegacy is the flat layout: enable_preview_banner,
	// default_preview_theme, preview_query_param.
	ShapeLegacy
	// ShapeIntermediate keys entries under post_types / taxonomies with an
	// optional enabled flag and keeps toggles under advanced.
	ShapeIntermediate
	// ShapeStructured is the current layout.
	ShapeStructured
)

func (s Shape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeIntermediate:
		return "intermediate"
	case ShapeStructured:
		return "structured"
	default:
		return "empty"
	}
}

// Top-level keys of the current layout.
const (
	keyVersion             = "version"
	keyPostTypeOverrides   = "post_type_overrides"
	keyTaxonomyOverrides   = "taxonomy_overrides"
	keyPreviewEnabled      = "preview_enabled"
	keyBannerEnabled       = "banner_enabled"
	keyQueryParam          = "query_param"
	keyDefaultPreviewTheme = "default_preview_theme"
	keyDebugEnabled        = "debug_enabled"
)

var structuredKeys = []string{
	keyVersion,
	keyPostTypeOverrides,
	keyTaxonomyOverrides,
	keyPreviewEnabled,
	keyBannerEnabled,
	keyQueryParam,
	keyDefaultPreviewTheme,
	keyDebugEnabled,
}

// Keys of older layouts.
const (
	keyPostTypes     = "post_types"
	keyTaxonomies    = "taxonomies"
	keyAdvanced      = "advanced"
	keyEnablePreview = "enable_preview"

	keyEnablePreviewBanner = "enable_preview_banner"
	keyPreviewQueryParam   = "preview_query_param"
)

// Shapes reports every layout generation present in raw, newest first.
func Shapes(raw map[string]any) []Shape {
	var shapes []Shape
	if hasAny(raw, keyPostTypeOverrides, keyTaxonomyOverrides, keyPreviewEnabled, keyBannerEnabled, keyQueryParam) {
		shapes = append(shapes, ShapeStructured)
	}
	if hasAny(raw, keyPostTypes, keyTaxonomies, keyAdvanced, keyEnablePreview) {
		shapes = append(shapes, ShapeIntermediate)
	}
	if hasAny(raw, keyEnablePreviewBanner, keyPreviewQueryParam) {
		shapes = append(shapes, ShapeLegacy)
	}
	return shapes
}

// DetectShape returns the newest layout generation present in raw.
func DetectShape(raw map[string]any) Shape {
	if shapes := Shapes(raw); len(shapes) > 0 {
		return shapes[0]
	}
	if hasAny(raw, keyDefaultPreviewTheme) {
		return ShapeLegacy
	}
	return ShapeEmpty
}

// Migrate rewrites raw into the current layout. Keys of the current layout
// always win; older layouts only fill keys the newer ones leave unspecified,
// intermediate before legacy. Unknown keys are dropped.
func Migrate(raw map[string]any) map[string]any {
	out := make(map[string]any, len(structuredKeys))
	for _, k := range structuredKeys {
		if v, ok := raw[k]; ok && v != nil {
			out[k] = v
		}
	}

	// Intermediate layout.
	fill(out, keyPostTypeOverrides, raw[keyPostTypes], migrateEntries)
	fill(out, keyTaxonomyOverrides, raw[keyTaxonomies], migrateEntries)
	if adv, ok := raw[keyAdvanced].(map[string]any); ok {
		fill(out, keyPreviewEnabled, adv[keyPreviewEnabled], nil)
		fill(out, keyDebugEnabled, adv[keyDebugEnabled], nil)
	}
	fill(out, keyPreviewEnabled, raw[keyEnablePreview], nil)

	// Flat legacy layout. The banner toggle gated both the banner and preview.
	fill(out, keyPreviewEnabled, raw[keyEnablePreviewBanner], nil)
	fill(out, keyBannerEnabled, raw[keyEnablePreviewBanner], nil)
	fill(out, keyQueryParam, raw[keyPreviewQueryParam], nil)

	return out
}

// fill sets out[key] from v when out has no value yet and v is present.
func fill(out map[string]any, key string, v any, convert func(any) any) {
	if v == nil {
		return
	}
	if _, ok := out[key]; ok {
		return
	}
	if convert != nil {
		v = convert(v)
	}
	out[key] = v
}

// migrateEntries converts {name: {enabled, theme}} into {name: {theme}}.
// An entry explicitly disabled defers to the active theme.
func migrateEntries(v any) any {
	entries, ok := v.(map[string]any)
	if !ok {
		return v
	}

	out := make(map[string]any, len(entries))
	for name, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			out[name] = entry
			continue
		}
		theme := m["theme"]
		if enabled, present := m["enabled"]; present && !truthy(enabled) {
			theme = UseActive
		}
		out[name] = map[string]any{"theme": theme}
	}
	return out
}

func hasAny(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}
