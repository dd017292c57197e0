// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain constants and small value types shared
// across the theme switcher: capabilities, content kinds, event levels,
// and API key helpers.
package model

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"slices"
	"time"
)

// Capabilities granted to API keys. The host maps its own users onto these.
const (
	// CapEditPosts allows previewing themes and assigning per-item overrides.
	CapEditPosts = "edit_posts"
	// CapManageOptions allows reading and writing switcher settings.
	CapManageOptions = "manage_options"
)

// APIKeyPrefixLength is the number of leading characters kept for display.
const APIKeyPrefixLength = 8

// AllCapabilities returns every capability an API key can hold.
func AllCapabilities() []string {
	return []string{CapEditPosts, CapManageOptions}
}

// IsKnownCapability reports whether c is a capability this service understands.
func IsKnownCapability(c string) bool {
	return slices.Contains(AllCapabilities(), c)
}

// APIKey represents a host integration credential.
type APIKey struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	KeyHash      string       `json:"-"`
	KeyPrefix    string       `json:"key_prefix"`
	Capabilities string       `json:"-"` // JSON array stored as string
	LastUsedAt   sql.NullTime `json:"last_used_at,omitempty"`
	ExpiresAt    sql.NullTime `json:"expires_at,omitempty"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
}

// GenerateAPIKey generates a new random API key.
// Returns the raw key (shown once) and its display prefix.
func GenerateAPIKey() (rawKey string, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}

	rawKey = base64.URLEncoding.EncodeToString(buf)
	prefix = rawKey[:APIKeyPrefixLength]

	return rawKey, prefix, nil
}

// HashAPIKey creates a SHA-256 hash of the API key for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// GetCapabilities parses the JSON capability list.
func (k *APIKey) GetCapabilities() []string {
	return ParseCapabilities(k.Capabilities)
}

// Can reports whether the key holds the capability.
func (k *APIKey) Can(capability string) bool {
	return slices.Contains(k.GetCapabilities(), capability)
}

// IsExpired checks if the API key has expired.
func (k *APIKey) IsExpired() bool {
	if !k.ExpiresAt.Valid {
		return false
	}
	return time.Now().After(k.ExpiresAt.Time)
}

// IsValid checks if the API key is active and not expired.
func (k *APIKey) IsValid() bool {
	return k.IsActive && !k.IsExpired()
}

// ParseCapabilities decodes a JSON array of capability names.
// Malformed input yields an empty list.
func ParseCapabilities(s string) []string {
	var caps []string
	if s == "" || s == "[]" {
		return caps
	}
	_ = json.Unmarshal([]byte(s), &caps)
	return caps
}

// CapabilitiesToJSON converts a slice of capabilities to a JSON string.
func CapabilitiesToJSON(caps []string) string {
	if len(caps) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(caps)
	return string(data)
}
