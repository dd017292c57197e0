// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that also persists WARN and ERROR
// records as events. Warning events in the theme category are what the admin
// notices endpoint reports.
package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/themeswitcher/internal/model"
)

// CategoryKey is the attribute that sets an event's category explicitly.
const CategoryKey = "category"

// EventWriter persists events. *store.Queries implements it.
type EventWriter interface {
	CreateEvent(ctx context.Context, e model.Event) error
}

// EventHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to an EventWriter.
type EventHandler struct {
	inner  slog.Handler
	writer EventWriter
	level  slog.Level
	attrs  []slog.Attr // accumulated by WithAttrs
	group  string
}

// NewEventHandler wraps inner. Records at WARN and above are persisted.
func NewEventHandler(inner slog.Handler, writer EventWriter) *EventHandler {
	return NewEventHandlerWithLevel(inner, writer, slog.LevelWarn)
}

// NewEventHandlerWithLevel wraps inner with a custom persistence threshold.
func NewEventHandlerWithLevel(inner slog.Handler, writer EventWriter, level slog.Level) *EventHandler {
	return &EventHandler{inner: inner, writer: writer, level: level}
}

// Enabled implements slog.Handler.
func (h *EventHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level && h.writer != nil {
		h.persist(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.inner = h.inner.WithAttrs(attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return c
}

// WithGroup implements slog.Handler.
func (h *EventHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.inner = h.inner.WithGroup(name)
	c.group = h.qualifyKey(name)
	return c
}

func (h *EventHandler) clone() *EventHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	return &c
}

func (h *EventHandler) qualifyKey(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func (h *EventHandler) qualify(a slog.Attr) slog.Attr {
	if a.Key == CategoryKey {
		return a
	}
	return slog.Attr{Key: h.qualifyKey(a.Key), Value: a.Value}
}

// persist writes r as an event. It uses a fresh context so the event is kept
// even when the request that logged it was cancelled; failures are dropped.
func (h *EventHandler) persist(r slog.Record) {
	attrs := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	created := r.Time
	if created.IsZero() {
		created = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = h.writer.CreateEvent(ctx, model.Event{
		ID:        uuid.NewString(),
		Level:     eventLevel(r.Level),
		Category:  category(r.Message, attrs),
		Message:   r.Message,
		Metadata:  metadata(attrs),
		CreatedAt: created,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// category returns the explicit category attribute, the last one winning, or
// infers one from the message.
func category(msg string, attrs []slog.Attr) string {
	var explicit string
	for _, a := range attrs {
		if a.Key == CategoryKey {
			explicit = a.Value.String()
		}
	}
	if explicit != "" {
		return explicit
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "auth") || strings.Contains(msg, "rate limit"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "theme"):
		return model.EventCategoryTheme
	case strings.Contains(msg, "setting"):
		return model.EventCategorySettings
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

// metadata encodes attributes other than the category as a JSON object.
func metadata(attrs []slog.Attr) string {
	fields := make(map[string]any, len(attrs))
	for _, a := range attrs {
		if a.Key == CategoryKey {
			continue
		}
		fields[a.Key] = attrValue(a.Value)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		m := make(map[string]any)
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value)
		}
		return m
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if _, err := json.Marshal(v.Any()); err != nil {
			return v.String()
		}
		return v.Any()
	default:
		return v.Any()
	}
}

// ParseLevel maps a configured level name to a slog.Level, defaulting to INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
