// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides sanitizers for untrusted identifiers and text
// (setting keys, query parameter names, HTML class tokens, free text) and
// path helpers that keep template lookups inside a theme directory.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// keyRegex matches anything that is not allowed in a key.
	keyRegex = regexp.MustCompile(`[^a-z0-9_]+`)
	// slugKeyRegex is keyRegex plus hyphen, used for registry names.
	slugKeyRegex = regexp.MustCompile(`[^a-z0-9_-]+`)
	// classRegex matches characters not allowed in an HTML class token.
	classRegex = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	// whitespaceRegex collapses runs of whitespace.
	whitespaceRegex = regexp.MustCompile(`\s+`)

	textPolicy = bluemonday.StrictPolicy()
)

// foldAccents decomposes accented characters and drops the combining marks.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SanitizeKey reduces s to a lowercase identifier of letters, digits and
// underscores. Non-ASCII letters are transliterated first, so "Thème"
// becomes "theme". The result may be empty.
func SanitizeKey(s string) string {
	s = unidecode.Unidecode(foldAccents(s))
	s = strings.ToLower(s)
	return keyRegex.ReplaceAllString(s, "")
}

// SanitizeName is SanitizeKey that also keeps hyphens. Content type and
// taxonomy names from the host use this form.
func SanitizeName(s string) string {
	s = unidecode.Unidecode(foldAccents(s))
	s = strings.ToLower(strings.TrimSpace(s))
	return slugKeyRegex.ReplaceAllString(s, "")
}

// SanitizeHTMLClass strips everything that cannot appear in a class token.
func SanitizeHTMLClass(s string) string {
	return classRegex.ReplaceAllString(s, "")
}

// SanitizeTextField strips markup, control characters and line breaks,
// collapses whitespace and trims the result.
func SanitizeTextField(s string) string {
	s = textPolicy.Sanitize(s)
	// bluemonday leaves entities escaped; identifiers never contain them.
	s = strings.NewReplacer("&amp;", "&", "&lt;", "", "&gt;", "", "&#34;", "", "&#39;", "").Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
