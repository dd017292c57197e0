// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package theme provides the registry of installed themes: discovery on disk,
// metadata parsing, parent/child relationships and template file lookup.
package theme

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrThemeNotFound is returned when a slug does not name an installed theme.
var ErrThemeNotFound = errors.New("theme not found")

// Metadata files recognised in a theme directory.
const (
	ConfigFile     = "theme.json"
	StylesheetFile = "style.css"
)

// Index templates used as the last resort inside a theme.
const (
	ClassicIndex = "index.php"
	BlockIndex   = "templates/index.html"
)

// blockIndexLegacy is the pre-5.9 location of a block theme's index template.
const blockIndexLegacy = "block-templates/index.html"

// Config represents the theme metadata loaded from theme.json or the
// style.css header.
type Config struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Template    string `json:"template,omitempty"` // parent theme slug
}

// Theme represents one installed theme directory.
type Theme struct {
	Slug   string // directory name (used as identifier)
	Path   string // filesystem path to theme directory
	Config Config
}

// IsBlock reports whether the theme directory currently ships a block index
// template. The check hits the filesystem on every call.
func (t *Theme) IsBlock() bool {
	return t.fileExists(BlockIndex) || t.fileExists(blockIndexLegacy)
}

// IsChild reports whether the theme declares a parent.
func (t *Theme) IsChild() bool {
	return t.Config.Template != "" && t.Config.Template != t.Slug
}

// TemplateSlug returns the slug of the theme that provides templates: the
// parent for a child theme, the theme itself otherwise.
func (t *Theme) TemplateSlug() string {
	if t.IsChild() {
		return t.Config.Template
	}
	return t.Slug
}

// StylesheetSlug returns the slug of the theme that provides the stylesheet.
func (t *Theme) StylesheetSlug() string {
	return t.Slug
}

// DisplayName returns the human readable name, falling back to the slug.
func (t *Theme) DisplayName() string {
	if t.Config.Name != "" {
		return t.Config.Name
	}
	return t.Slug
}

// fileExists reports whether rel names a regular file inside the theme.
func (t *Theme) fileExists(rel string) bool {
	info, err := os.Stat(filepath.Join(t.Path, filepath.FromSlash(rel)))
	return err == nil && !info.IsDir()
}

// headerFields maps style.css header labels to Config fields.
var headerFields = map[string]func(*Config, string){
	"theme name":  func(c *Config, v string) { c.Name = v },
	"version":     func(c *Config, v string) { c.Version = v },
	"author":      func(c *Config, v string) { c.Author = v },
	"description": func(c *Config, v string) { c.Description = v },
	"template":    func(c *Config, v string) { c.Template = v },
}

// parseStylesheetHeader reads "Label: value" lines from the leading comment
// of a style.css file. Only the first 8 KiB are inspected.
func parseStylesheetHeader(data []byte) Config {
	if len(data) > 8192 {
		data = data[:8192]
	}

	var cfg Config
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "/*")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(strings.TrimSuffix(line, "*/"))

		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		set, known := headerFields[strings.ToLower(strings.TrimSpace(label))]
		if !known {
			continue
		}
		set(&cfg, strings.TrimSpace(value))
	}
	return cfg
}

// merge fills empty fields of c from other.
func (c *Config) merge(other Config) {
	if c.Name == "" {
		c.Name = other.Name
	}
	if c.Version == "" {
		c.Version = other.Version
	}
	if c.Author == "" {
		c.Author = other.Author
	}
	if c.Description == "" {
		c.Description = other.Description
	}
	if c.Template == "" {
		c.Template = other.Template
	}
}
