// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package theme

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger configured for tests (errors only).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeFile writes content under dir, creating parents.
func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// testThemesDir builds a themes directory:
//
//	classic-theme  style.css, index.php, single.php
//	modern-theme   theme.json, templates/index.html
//	child-theme    style.css (Template: classic-theme), page.php
//	orphan-child   style.css (Template: missing-parent)
//	not-a-theme    README only
func testThemesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "classic-theme/style.css", `/*
Theme Name: Classic Theme
Version: 1.2.0
Author: Jane
Description: A classic theme.
*/
body { color: black; }
`)
	writeFile(t, dir, "classic-theme/index.php", "<?php // index")
	writeFile(t, dir, "classic-theme/single.php", "<?php // single")

	writeFile(t, dir, "modern-theme/theme.json", `{"name":"Modern Theme","version":"2.0.0","author":"Joe"}`)
	writeFile(t, dir, "modern-theme/templates/index.html", "<!-- wp:post-content /-->")

	writeFile(t, dir, "child-theme/style.css", "/*\n Theme Name: Child Theme\n Template: classic-theme\n*/\n")
	writeFile(t, dir, "child-theme/page.php", "<?php // page")

	writeFile(t, dir, "orphan-child/style.css", "/*\nTheme Name: Orphan\nTemplate: missing-parent\n*/")

	writeFile(t, dir, "not-a-theme/README", "nothing here")
	writeFile(t, dir, "stray.txt", "file at root")

	return dir
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(testThemesDir(t), "classic-theme", testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}
	return m
}

func TestLoadThemes(t *testing.T) {
	m := testManager(t)

	if got := m.ThemeCount(); got != 4 {
		t.Errorf("ThemeCount() = %d, want 4", got)
	}

	classic, err := m.GetTheme("classic-theme")
	if err != nil {
		t.Fatalf("GetTheme(classic-theme): %v", err)
	}
	if classic.Config.Name != "Classic Theme" {
		t.Errorf("Name = %q, want %q", classic.Config.Name, "Classic Theme")
	}
	if classic.Config.Version != "1.2.0" {
		t.Errorf("Version = %q, want %q", classic.Config.Version, "1.2.0")
	}
	if classic.Config.Author != "Jane" {
		t.Errorf("Author = %q, want %q", classic.Config.Author, "Jane")
	}
	if classic.IsBlock() {
		t.Error("classic-theme should not be a block theme")
	}

	modern, err := m.GetTheme("modern-theme")
	if err != nil {
		t.Fatalf("GetTheme(modern-theme): %v", err)
	}
	if modern.Config.Name != "Modern Theme" {
		t.Errorf("Name = %q, want %q", modern.Config.Name, "Modern Theme")
	}
	if !modern.IsBlock() {
		t.Error("modern-theme should be a block theme")
	}
}

func TestLoadThemes_MissingDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"), "", testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}
	if m.ThemeCount() != 0 {
		t.Errorf("ThemeCount() = %d, want 0", m.ThemeCount())
	}
}

func TestLoadThemes_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken/theme.json", "{not json")
	writeFile(t, dir, "good/style.css", "/* Theme Name: Good */")

	m := NewManager(dir, "", testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}
	if m.Exists("broken") {
		t.Error("theme with invalid theme.json should be skipped")
	}
	if !m.Exists("good") {
		t.Error("good theme should load")
	}
}

func TestExists(t *testing.T) {
	m := testManager(t)

	tests := []struct {
		slug string
		want bool
	}{
		{"classic-theme", true},
		{"modern-theme", true},
		{"child-theme", true},
		{"orphan-child", false},
		{"not-a-theme", false},
		{"nonexistent-theme", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := m.Exists(tt.slug); got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.slug, got, tt.want)
			}
		})
	}
}

func TestGetTheme_NotFound(t *testing.T) {
	m := testManager(t)
	_, err := m.GetTheme("nonexistent-theme")
	if !errors.Is(err, ErrThemeNotFound) {
		t.Errorf("GetTheme error = %v, want ErrThemeNotFound", err)
	}
}

func TestTemplateAndStylesheet(t *testing.T) {
	m := testManager(t)

	tests := []struct {
		slug           string
		wantTemplate   string
		wantStylesheet string
	}{
		{"classic-theme", "classic-theme", "classic-theme"},
		{"child-theme", "classic-theme", "child-theme"},
		{"nonexistent-theme", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := m.Template(tt.slug); got != tt.wantTemplate {
				t.Errorf("Template(%q) = %q, want %q", tt.slug, got, tt.wantTemplate)
			}
			if got := m.Stylesheet(tt.slug); got != tt.wantStylesheet {
				t.Errorf("Stylesheet(%q) = %q, want %q", tt.slug, got, tt.wantStylesheet)
			}
		})
	}
}

func TestIsBlockTheme(t *testing.T) {
	dir := testThemesDir(t)
	writeFile(t, dir, "block-child/style.css", "/*\nTheme Name: Block Child\nTemplate: modern-theme\n*/")
	writeFile(t, dir, "legacy-block/block-templates/index.html", "<!-- -->")
	writeFile(t, dir, "legacy-block/style.css", "/* Theme Name: Legacy Block */")

	m := NewManager(dir, "", testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}

	tests := []struct {
		slug string
		want bool
	}{
		{"modern-theme", true},
		{"block-child", true},
		{"legacy-block", true},
		{"classic-theme", false},
		{"child-theme", false},
		{"nonexistent-theme", false},
	}
	for _, tt := range tests {
		if got := m.IsBlockTheme(tt.slug); got != tt.want {
			t.Errorf("IsBlockTheme(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}

func TestIsBlockTheme_FollowsTemplatesOnDisk(t *testing.T) {
	m := testManager(t)
	dir := m.ThemesDir()

	if m.IsBlockTheme("classic-theme") {
		t.Fatal("classic-theme should start as a classic theme")
	}

	// No reload: adding the block index inside templates/ is enough.
	writeFile(t, dir, "classic-theme/templates/index.html", "<!-- wp:post-content /-->")
	if !m.IsBlockTheme("classic-theme") {
		t.Error("IsBlockTheme(classic-theme) = false after adding templates/index.html")
	}
	if !m.IsBlockTheme("child-theme") {
		t.Error("child of a block parent should be a block theme")
	}

	if err := os.RemoveAll(filepath.Join(dir, "classic-theme", "templates")); err != nil {
		t.Fatalf("remove templates: %v", err)
	}
	if m.IsBlockTheme("classic-theme") {
		t.Error("IsBlockTheme(classic-theme) = true after removing templates/")
	}
}

func TestLocateTemplate(t *testing.T) {
	m := testManager(t)
	dir := m.ThemesDir()

	tests := []struct {
		name   string
		slug   string
		rel    string
		want   string
		wantOK bool
	}{
		{"own file", "classic-theme", "single.php", filepath.Join(dir, "classic-theme", "single.php"), true},
		{"missing file", "classic-theme", "archive.php", "", false},
		{"child own file", "child-theme", "page.php", filepath.Join(dir, "child-theme", "page.php"), true},
		{"child falls back to parent", "child-theme", "single.php", filepath.Join(dir, "classic-theme", "single.php"), true},
		{"block index", "modern-theme", BlockIndex, filepath.Join(dir, "modern-theme", "templates", "index.html"), true},
		{"traversal rejected", "classic-theme", "../modern-theme/theme.json", "", false},
		{"directory is not a template", "modern-theme", "templates", "", false},
		{"unknown theme", "nonexistent-theme", "index.php", "", false},
		{"empty name", "classic-theme", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.LocateTemplate(tt.slug, tt.rel)
			if ok != tt.wantOK {
				t.Fatalf("LocateTemplate(%q, %q) ok = %v, want %v", tt.slug, tt.rel, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("LocateTemplate(%q, %q) = %q, want %q", tt.slug, tt.rel, got, tt.want)
			}
		})
	}
}

func TestNamesAndList(t *testing.T) {
	m := testManager(t)

	names := m.Names()
	if len(names) != 3 {
		t.Fatalf("Names() has %d entries, want 3: %v", len(names), names)
	}
	if names["child-theme"] != "Child Theme" {
		t.Errorf("names[child-theme] = %q", names["child-theme"])
	}
	if _, ok := names["orphan-child"]; ok {
		t.Error("orphan child should not be listed")
	}

	infos := m.ListThemesWithActive()
	if len(infos) != 3 {
		t.Fatalf("ListThemesWithActive() len = %d, want 3", len(infos))
	}
	if infos[0].Slug != "child-theme" || infos[1].Slug != "classic-theme" || infos[2].Slug != "modern-theme" {
		t.Errorf("unexpected order: %+v", infos)
	}
	if !infos[1].IsActive {
		t.Error("classic-theme should be active")
	}
	if infos[0].Parent != "classic-theme" {
		t.Errorf("child parent = %q", infos[0].Parent)
	}
}

func TestSetActiveTheme(t *testing.T) {
	m := testManager(t)

	if err := m.SetActiveTheme("modern-theme"); err != nil {
		t.Fatalf("SetActiveTheme: %v", err)
	}
	if m.ActiveTheme() != "modern-theme" {
		t.Errorf("ActiveTheme() = %q", m.ActiveTheme())
	}

	if err := m.SetActiveTheme("orphan-child"); !errors.Is(err, ErrThemeNotFound) {
		t.Errorf("SetActiveTheme(orphan-child) error = %v, want ErrThemeNotFound", err)
	}
	if m.ActiveTheme() != "modern-theme" {
		t.Error("active theme changed after failed SetActiveTheme")
	}
}

func TestReload(t *testing.T) {
	m := testManager(t)

	if m.Exists("new-theme") {
		t.Fatal("new-theme should not exist yet")
	}
	writeFile(t, m.ThemesDir(), "new-theme/style.css", "/* Theme Name: New */")
	if err := os.RemoveAll(filepath.Join(m.ThemesDir(), "modern-theme")); err != nil {
		t.Fatal(err)
	}

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !m.Exists("new-theme") {
		t.Error("new-theme should exist after reload")
	}
	if m.Exists("modern-theme") {
		t.Error("modern-theme should be gone after reload")
	}
}

func TestParseStylesheetHeader(t *testing.T) {
	css := `/*
 * Theme Name: Starred
 * Template: parent
 * Version: 0.1
 * Text Domain: starred
 */`
	cfg := parseStylesheetHeader([]byte(css))
	if cfg.Name != "Starred" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Template != "parent" {
		t.Errorf("Template = %q", cfg.Template)
	}
	if cfg.Version != "0.1" {
		t.Errorf("Version = %q", cfg.Version)
	}
}

func TestDisplayNameFallback(t *testing.T) {
	th := &Theme{Slug: "bare"}
	if th.DisplayName() != "bare" {
		t.Errorf("DisplayName() = %q, want bare", th.DisplayName())
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	m := testManager(t)

	var calls atomic.Int32
	w, err := NewWatcher(m, func() { calls.Add(1) }, testLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop() }()

	staging := t.TempDir()
	writeFile(t, staging, "late-theme/style.css", "/* Theme Name: Late */")
	if err := os.Rename(filepath.Join(staging, "late-theme"), filepath.Join(m.ThemesDir(), "late-theme")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.Exists("late-theme") && calls.Load() > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("watcher did not reload: exists=%v calls=%d", m.Exists("late-theme"), calls.Load())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	m := testManager(t)
	w, err := NewWatcher(m, nil, testLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
