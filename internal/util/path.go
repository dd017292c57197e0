// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TemplateBasename returns only the file name of a template reference,
// dropping any directory components. Returns an empty string for inputs
// that do not name a file.
func TemplateBasename(ref string) string {
	base := filepath.Base(filepath.Clean(ref))
	if base == "." || base == ".." || base == "" || base == string(filepath.Separator) {
		return ""
	}
	return base
}

// JoinWithin joins components onto base and fails if the result escapes base.
func JoinWithin(base string, components ...string) (string, error) {
	absBase, err := filepath.Abs(filepath.Clean(base))
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	full := filepath.Join(append([]string{absBase}, components...)...)
	if full != absBase && !strings.HasPrefix(full, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", full)
	}

	return full, nil
}
