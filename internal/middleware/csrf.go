// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig holds configuration for cross-origin protection.
// filippo.io/csrf/gorilla checks Fetch metadata headers, so server-to-server
// calls from the host (which send none) pass while cross-site browser
// requests to mutating routes are refused.
type CSRFConfig struct {
	// AuthKey is a 32-byte key. The Fetch metadata check does not use it
	// but the gorilla-compatible constructor requires one.
	AuthKey []byte

	// TrustedOrigins are host[:port] values allowed to make cross-origin
	// requests, typically the CMS admin origin.
	TrustedOrigins []string

	Logger *slog.Logger
}

// DefaultCSRFConfig returns a CSRFConfig. In development the local admin
// origins are trusted in addition to the configured ones.
func DefaultCSRFConfig(authKey []byte, trusted []string, isDev bool, logger *slog.Logger) CSRFConfig {
	cfg := CSRFConfig{
		AuthKey:        authKey,
		TrustedOrigins: append([]string(nil), trusted...),
		Logger:         logger,
	}
	// csrf library expects host-only values, not full URLs
	if isDev {
		cfg.TrustedOrigins = append(cfg.TrustedOrigins, "localhost:8080", "127.0.0.1:8080")
	}
	return cfg
}

// CSRF returns a middleware that provides cross-origin protection.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []csrf.Option{
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := "unknown"
			if err := csrf.FailureReason(r); err != nil {
				reason = err.Error()
			}
			logger.Warn("cross-origin request rejected",
				"category", "auth",
				"reason", reason,
				"method", r.Method,
				"path", r.URL.Path,
				"origin", r.Header.Get("Origin"),
				"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
			)
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Cross-origin request rejected", nil)
		})),
	}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}
