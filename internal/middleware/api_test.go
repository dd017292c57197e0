// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/themeswitcher/internal/model"
)

// fakeKeys is an in-memory KeyStore keyed by hash.
type fakeKeys struct {
	mu   sync.Mutex
	keys map[string]model.APIKey
	used map[int64]time.Time
	fail bool
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{keys: make(map[string]model.APIKey), used: make(map[int64]time.Time)}
}

func (f *fakeKeys) add(raw string, key model.APIKey) {
	key.KeyHash = model.HashAPIKey(raw)
	f.keys[key.KeyHash] = key
}

func (f *fakeKeys) GetAPIKeyByHash(_ context.Context, keyHash string) (model.APIKey, error) {
	if f.fail {
		return model.APIKey{}, errors.New("database is locked")
	}
	key, ok := f.keys[keyHash]
	if !ok {
		return model.APIKey{}, sql.ErrNoRows
	}
	return key, nil
}

func (f *fakeKeys) UpdateAPIKeyLastUsed(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used[id] = at
	return nil
}

var simpleOKHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func executeRequest(handler http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func executeAuthRequest(handler http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func executeWithAPIKey(handler http.Handler, apiKey model.APIKey) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), ContextKeyAPIKey, apiKey))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	if err := json.NewDecoder(w.Body).Decode(&apiErr); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return apiErr
}

func TestWriteAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, http.StatusBadRequest, "validation_error", "Invalid input", map[string]string{"post_id": "must be positive"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	apiErr := decodeAPIError(t, w)
	if apiErr.Error.Code != "validation_error" || apiErr.Error.Message != "Invalid input" {
		t.Errorf("unexpected error body: %+v", apiErr)
	}
	if apiErr.Error.Details["post_id"] != "must be positive" {
		t.Errorf("details = %v", apiErr.Error.Details)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	keys := newFakeKeys()
	keys.add("valid-key", model.APIKey{ID: 1, IsActive: true, Capabilities: `["edit_posts"]`})
	keys.add("inactive-key", model.APIKey{ID: 2, IsActive: false})
	keys.add("expired-key", model.APIKey{ID: 3, IsActive: true, ExpiresAt: sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}})
	keys.add("future-key", model.APIKey{ID: 4, IsActive: true, ExpiresAt: sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}})

	var seen *model.APIKey
	handler := APIKeyAuth(keys, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAPIKey(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
		wantID int64
	}{
		{"missing header", "", http.StatusUnauthorized, 0},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0},
		{"no token", "Bearer ", http.StatusUnauthorized, 0},
		{"unknown key", "Bearer nope", http.StatusUnauthorized, 0},
		{"inactive key", "Bearer inactive-key", http.StatusUnauthorized, 0},
		{"expired key", "Bearer expired-key", http.StatusUnauthorized, 0},
		{"valid key", "Bearer valid-key", http.StatusOK, 1},
		{"lowercase scheme", "bearer valid-key", http.StatusOK, 1},
		{"future expiry", "Bearer future-key", http.StatusOK, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			w := executeAuthRequest(handler, tt.header)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.wantID == 0 {
				if seen != nil {
					t.Error("handler should not run for rejected keys")
				}
				return
			}
			if seen == nil || seen.ID != tt.wantID {
				t.Errorf("api key in context = %+v, want id %d", seen, tt.wantID)
			}
		})
	}
}

func TestAPIKeyAuth_StoreFailure(t *testing.T) {
	keys := newFakeKeys()
	keys.fail = true
	w := executeAuthRequest(APIKeyAuth(keys, testLogger())(simpleOKHandler), "Bearer anything")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if code := decodeAPIError(t, w).Error.Code; code != "internal_error" {
		t.Errorf("code = %q", code)
	}
}

func TestGetAPIKey_NoKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetAPIKey(req) != nil {
		t.Error("expected nil API key")
	}
}

func TestRequireCapability(t *testing.T) {
	handler := RequireCapability(model.CapManageOptions)(simpleOKHandler)

	if w := executeRequest(handler, http.MethodGet, "/"); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	tests := []struct {
		name string
		caps string
		want int
	}{
		{"has capability", `["edit_posts","manage_options"]`, http.StatusOK},
		{"lacks capability", `["edit_posts"]`, http.StatusForbidden},
		{"empty list", `[]`, http.StatusForbidden},
		{"empty string", "", http.StatusForbidden},
		{"malformed", "manage_options", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := executeWithAPIKey(handler, model.APIKey{ID: 1, IsActive: true, Capabilities: tt.caps})
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAPIRateLimit(t *testing.T) {
	handler := APIRateLimit(1, 2)(simpleOKHandler)

	if w := executeRequest(handler, http.MethodGet, "/"); w.Code != http.StatusOK {
		t.Errorf("no key should bypass the limiter, got %d", w.Code)
	}

	key1 := model.APIKey{ID: 1}
	key2 := model.APIKey{ID: 2}
	for i := range 2 {
		if w := executeWithAPIKey(handler, key1); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	w := executeWithAPIKey(handler, key1)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	if w := executeWithAPIKey(handler, key2); w.Code != http.StatusOK {
		t.Errorf("separate key should have its own bucket, got %d", w.Code)
	}
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(1, 1)
	handler := rl.Middleware()(simpleOKHandler)

	send := func(remote string, headers map[string]string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/resolve", nil)
		req.RemoteAddr = remote
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if got := send("10.0.0.1:1234", nil); got != http.StatusOK {
		t.Fatalf("first request: %d", got)
	}
	if got := send("10.0.0.1:5678", nil); got != http.StatusTooManyRequests {
		t.Errorf("same IP, different port should share a bucket: %d", got)
	}
	if got := send("10.0.0.2:1234", nil); got != http.StatusOK {
		t.Errorf("different IP: %d", got)
	}
	if got := send("10.0.0.3:1", map[string]string{"X-Forwarded-For": "192.0.2.7, 10.0.0.3"}); got != http.StatusOK {
		t.Errorf("forwarded client: %d", got)
	}
	if got := send("10.0.0.4:1", map[string]string{"X-Real-IP": "192.0.2.7"}); got != http.StatusTooManyRequests {
		t.Errorf("X-Real-IP should map to the same client as X-Forwarded-For: %d", got)
	}
}

func TestLimiterCacheBounded(t *testing.T) {
	lc := newLimiterCache[int](1, 1)
	for i := range maxLimiters + 5 {
		lc.get(i)
	}
	if n := len(lc.limiters); n > maxLimiters {
		t.Errorf("limiter cache grew to %d entries", n)
	}
}
