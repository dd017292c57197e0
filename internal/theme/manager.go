// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/olegiv/themeswitcher/internal/util"
)

// Manager handles theme discovery and lookup. It is safe for concurrent use;
// Reload swaps the whole theme set atomically.
type Manager struct {
	themesDir   string
	activeTheme string
	themes      map[string]*Theme
	mu          sync.RWMutex
	logger      *slog.Logger
}

// NewManager creates a new theme manager.
func NewManager(themesDir, activeTheme string, logger *slog.Logger) *Manager {
	return &Manager{
		themesDir:   themesDir,
		activeTheme: activeTheme,
		themes:      make(map[string]*Theme),
		logger:      logger,
	}
}

// LoadThemes scans the themes directory and loads all themes.
func (m *Manager) LoadThemes() error {
	themes, err := m.scan()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.themes = themes
	m.mu.Unlock()

	m.logger.Info("themes loaded", "count", len(themes), "path", m.themesDir)
	return nil
}

// Reload rescans the themes directory. The previous set stays in place if the
// scan fails.
func (m *Manager) Reload() error {
	return m.LoadThemes()
}

func (m *Manager) scan() (map[string]*Theme, error) {
	themes := make(map[string]*Theme)

	entries, err := os.ReadDir(m.themesDir)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("themes directory does not exist", "path", m.themesDir)
		return themes, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading themes directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		slug := entry.Name()
		t, err := m.loadTheme(slug, filepath.Join(m.themesDir, slug))
		if err != nil {
			m.logger.Debug("skipping directory", "theme", slug, "error", err)
			continue
		}

		themes[slug] = t
		m.logger.Debug("loaded theme", "theme", slug, "version", t.Config.Version, "parent", t.Config.Template)
	}

	return themes, nil
}

// loadTheme loads a single theme from the given path. A directory is a theme
// when it carries theme.json or a style.css header.
func (m *Manager) loadTheme(slug, path string) (*Theme, error) {
	var (
		cfg   Config
		found bool
	)

	if data, err := os.ReadFile(filepath.Join(path, ConfigFile)); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
		}
		found = true
	}

	if data, err := os.ReadFile(filepath.Join(path, StylesheetFile)); err == nil {
		cfg.merge(parseStylesheetHeader(data))
		found = true
	}

	if !found {
		return nil, fmt.Errorf("no %s or %s", ConfigFile, StylesheetFile)
	}

	return &Theme{Slug: slug, Path: path, Config: cfg}, nil
}

// Exists reports whether slug names a usable theme. A child theme whose
// parent is missing is not usable.
func (m *Manager) Exists(slug string) bool {
	if slug == "" {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usable(slug)
}

func (m *Manager) usable(slug string) bool {
	t, ok := m.themes[slug]
	if !ok {
		return false
	}
	if t.IsChild() {
		_, ok = m.themes[t.Config.Template]
	}
	return ok
}

// GetTheme returns a theme by slug.
func (m *Manager) GetTheme(slug string) (*Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.themes[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrThemeNotFound, slug)
	}
	return t, nil
}

// Names returns slug to display name for every usable theme.
func (m *Manager) Names() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[string]string, len(m.themes))
	for slug, t := range m.themes {
		if m.usable(slug) {
			names[slug] = t.DisplayName()
		}
	}
	return names
}

// Info represents a theme with its configuration and active status.
type Info struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Author   string `json:"author,omitempty"`
	Parent   string `json:"parent,omitempty"`
	Block    bool   `json:"block"`
	IsActive bool   `json:"active"`
}

// ListThemesWithActive returns all usable themes sorted by slug.
func (m *Manager) ListThemesWithActive() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.themes))
	for slug, t := range m.themes {
		if !m.usable(slug) {
			continue
		}
		infos = append(infos, Info{
			Slug:     slug,
			Name:     t.DisplayName(),
			Version:  t.Config.Version,
			Author:   t.Config.Author,
			Parent:   t.Config.Template,
			Block:    t.IsBlock(),
			IsActive: slug == m.activeTheme,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Slug < infos[j].Slug })
	return infos
}

// ActiveTheme returns the slug of the site's active theme.
func (m *Manager) ActiveTheme() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeTheme
}

// SetActiveTheme sets the site's active theme.
func (m *Manager) SetActiveTheme(slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.usable(slug) {
		return fmt.Errorf("%w: %s", ErrThemeNotFound, slug)
	}
	m.activeTheme = slug
	m.logger.Info("active theme set", "theme", slug)
	return nil
}

// IsBlockTheme reports whether the theme or its parent ships block templates.
func (m *Manager) IsBlockTheme(slug string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.themes[slug]
	if !ok {
		return false
	}
	if t.IsBlock() {
		return true
	}
	if parent, ok := m.themes[t.Config.Template]; ok && t.IsChild() {
		return parent.IsBlock()
	}
	return false
}

// Template returns the template slug (parent slug for child themes).
func (m *Manager) Template(slug string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.themes[slug]; ok {
		return t.TemplateSlug()
	}
	return ""
}

// Stylesheet returns the stylesheet slug.
func (m *Manager) Stylesheet(slug string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.themes[slug]; ok {
		return t.StylesheetSlug()
	}
	return ""
}

// LocateTemplate looks for rel inside the theme and then, for child themes,
// inside the parent. It returns the absolute path of the first match.
func (m *Manager) LocateTemplate(slug, rel string) (string, bool) {
	m.mu.RLock()
	t, ok := m.themes[slug]
	var parent *Theme
	if ok && t.IsChild() {
		parent = m.themes[t.Config.Template]
	}
	m.mu.RUnlock()

	if !ok || rel == "" {
		return "", false
	}

	for _, candidate := range []*Theme{t, parent} {
		if candidate == nil {
			continue
		}
		path, err := util.JoinWithin(candidate.Path, filepath.FromSlash(rel))
		if err != nil {
			return "", false
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ThemesDir returns the themes directory path.
func (m *Manager) ThemesDir() string {
	return m.themesDir
}

// ThemeCount returns the number of loaded themes.
func (m *Manager) ThemeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.themes)
}
