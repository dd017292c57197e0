// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type typedValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestTypedCache_SetGet(t *testing.T) {
	backend := newTestMemoryCache(0)
	defer func() { _ = backend.Close() }()
	tc := NewTypedCache[typedValue](backend, time.Minute)
	ctx := context.Background()

	if err := tc.Set(ctx, "v", typedValue{Name: "a", Count: 2}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := tc.Get(ctx, "v")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "a" || got.Count != 2 {
		t.Errorf("unexpected value: %+v", got)
	}

	if _, err := tc.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestTypedCache_UndecodableIsMiss(t *testing.T) {
	backend := newTestMemoryCache(0)
	defer func() { _ = backend.Close() }()
	tc := NewTypedCache[typedValue](backend, time.Minute)
	ctx := context.Background()

	_ = backend.Set(ctx, "bad", []byte("{not json"), 0)

	if _, err := tc.Get(ctx, "bad"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for corrupt entry, got %v", err)
	}
}

func TestTypedCache_GetOrSet(t *testing.T) {
	backend := newTestMemoryCache(0)
	defer func() { _ = backend.Close() }()
	tc := NewTypedCache[typedValue](backend, time.Minute)
	ctx := context.Background()

	calls := 0
	compute := func() (typedValue, error) {
		calls++
		return typedValue{Name: "computed"}, nil
	}

	for range 3 {
		v, err := tc.GetOrSet(ctx, "k", compute)
		if err != nil {
			t.Fatalf("GetOrSet failed: %v", err)
		}
		if v.Name != "computed" {
			t.Errorf("unexpected value: %+v", v)
		}
	}
	if calls != 1 {
		t.Errorf("expected compute once, got %d", calls)
	}

	boom := errors.New("boom")
	if _, err := tc.GetOrSet(ctx, "other", func() (typedValue, error) { return typedValue{}, boom }); !errors.Is(err, boom) {
		t.Errorf("expected compute error, got %v", err)
	}
	if has, _ := backend.Has(ctx, "other"); has {
		t.Error("failed compute must not be cached")
	}
}
