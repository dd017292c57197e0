// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Registry kinds for content types and taxonomies.
const (
	KindPostType = "post_type"
	KindTaxonomy = "taxonomy"
)

// Object types that can carry a per-item theme override.
const (
	ObjectPost = "post"
	ObjectTerm = "term"
)

// ThemeMetaKey is the metadata key holding a directly-assigned theme.
const ThemeMetaKey = "smart_theme_switcher_active_theme"

// BuiltinPostTypes are always registered, regardless of host sync.
var BuiltinPostTypes = []ContentType{
	{Kind: KindPostType, Name: "post", Label: "Posts", Public: true},
	{Kind: KindPostType, Name: "page", Label: "Pages", Public: true},
}

// BuiltinTaxonomies are always registered, regardless of host sync.
var BuiltinTaxonomies = []ContentType{
	{Kind: KindTaxonomy, Name: "category", Label: "Categories", Public: true},
	{Kind: KindTaxonomy, Name: "post_tag", Label: "Tags", Public: true},
}

// ContentType describes a registered content type or taxonomy.
type ContentType struct {
	Kind   string `json:"-"`
	Name   string `json:"name"`
	Label  string `json:"label"`
	Public bool   `json:"public"`
}
