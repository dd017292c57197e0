// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryTheme    = "theme"
	EventCategorySettings = "settings"
	EventCategoryCache    = "cache"
	EventCategoryAuth     = "auth"
	EventCategorySystem   = "system"
)

// Event is a persisted log entry. Warning events in the theme category
// double as admin-facing notices.
type Event struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"` // JSON object
	CreatedAt time.Time `json:"created_at"`
}
