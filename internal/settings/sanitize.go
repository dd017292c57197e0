// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package settings

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/olegiv/themeswitcher/internal/util"
)

// TypeRegistry answers whether a content type or taxonomy is registered.
type TypeRegistry interface {
	PostTypeExists(name string) bool
	TaxonomyExists(name string) bool
}

// Decode turns an untyped payload into a generic document. It accepts JSON
// bytes or strings, generic maps and Settings values. Anything else, or
// malformed JSON, yields an empty document.
func Decode(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case Settings:
		return v.toRaw()
	case *Settings:
		if v == nil {
			return map[string]any{}
		}
		return v.toRaw()
	case []byte:
		return decodeJSON(v)
	case string:
		return decodeJSON([]byte(v))
	case json.RawMessage:
		return decodeJSON(v)
	default:
		return map[string]any{}
	}
}

func decodeJSON(data []byte) map[string]any {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return map[string]any{}
	}
	return doc
}

// Sanitize converts an untyped payload of any supported layout into a fully
// populated Settings. Entries for unregistered types are dropped; every other
// field falls back to its default when missing or malformed.
func Sanitize(raw any, types TypeRegistry) Settings {
	doc := Migrate(Decode(raw))
	s := Defaults()

	if v, ok := doc[keyPostTypeOverrides]; ok {
		s.PostTypeOverrides = sanitizeOverrides(v, types.PostTypeExists)
	}
	if v, ok := doc[keyTaxonomyOverrides]; ok {
		s.TaxonomyOverrides = sanitizeOverrides(v, types.TaxonomyExists)
	}
	if v, ok := doc[keyPreviewEnabled]; ok {
		s.PreviewEnabled = truthy(v)
	}
	if v, ok := doc[keyBannerEnabled]; ok {
		s.BannerEnabled = truthy(v)
	}
	if v, ok := doc[keyDebugEnabled]; ok {
		s.DebugEnabled = truthy(v)
	}
	if v, ok := doc[keyQueryParam].(string); ok {
		if key := util.SanitizeKey(v); key != "" {
			s.QueryParam = key
		}
	}
	if v, ok := doc[keyDefaultPreviewTheme].(string); ok {
		s.DefaultPreviewTheme = util.SanitizeTextField(v)
	}

	return s
}

// sanitizeOverrides keeps entries whose sanitized key is registered. An entry
// may be {"theme": slug} or a bare slug string.
func sanitizeOverrides(v any, registered func(string) bool) map[string]Override {
	out := map[string]Override{}

	entries, ok := v.(map[string]any)
	if !ok {
		return out
	}

	for name, entry := range entries {
		key := util.SanitizeName(name)
		if key == "" || !registered(key) {
			continue
		}

		var theme string
		switch e := entry.(type) {
		case map[string]any:
			theme, _ = e["theme"].(string)
		case string:
			theme = e
		}

		theme = util.SanitizeTextField(theme)
		if theme == "" {
			theme = UseActive
		}
		out[key] = Override{Theme: theme}
	}
	return out
}

// truthy coerces loosely typed input to a boolean: "yes", "on", "true",
// non-zero numbers and non-empty arrays or objects are true; "no", "off",
// "false", "0", "" and empty arrays or objects are false.
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "", "0", "no", "off", "false", "n":
			return false
		default:
			if f, err := strconv.ParseFloat(strings.TrimSpace(b), 64); err == nil {
				return f != 0
			}
			return true
		}
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	case json.Number:
		f, err := b.Float64()
		return err == nil && f != 0
	case []any:
		return len(b) > 0
	case map[string]any:
		return len(b) > 0
	case nil:
		return false
	default:
		return true
	}
}
