// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/themeswitcher/internal/model"
)

const createEvent = `
INSERT INTO events (id, level, category, message, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

// CreateEvent stores an event.
func (q *Queries) CreateEvent(ctx context.Context, e model.Event) error {
	_, err := q.db.ExecContext(ctx, createEvent, e.ID, e.Level, e.Category, e.Message, e.Metadata, e.CreatedAt.UTC())
	return err
}

// ListEventsParams filters an event listing. Empty fields match everything.
type ListEventsParams struct {
	Category string
	Level    string
	Since    time.Time
	Limit    int64
}

const listEvents = `
SELECT id, level, category, message, metadata, created_at FROM events
WHERE (?1 = '' OR category = ?1)
  AND (?2 = '' OR level = ?2)
  AND created_at >= ?3
ORDER BY created_at DESC
LIMIT ?4`

// ListEvents returns the newest events matching arg.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	limit := arg.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Category, arg.Level, arg.Since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const deleteEventsBefore = `DELETE FROM events WHERE created_at < ?`

// DeleteEventsBefore prunes old events and returns how many were removed.
func (q *Queries) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEventsBefore, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
