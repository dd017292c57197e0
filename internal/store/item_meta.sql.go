// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// ItemMeta is a metadata value attached to a post or term.
type ItemMeta struct {
	ObjectType string
	ObjectID   int64
	MetaKey    string
	MetaValue  string
	UpdatedAt  time.Time
}

const getItemMeta = `
SELECT meta_value FROM item_meta
WHERE object_type = ? AND object_id = ? AND meta_key = ?`

// GetItemMeta returns a single metadata value, or sql.ErrNoRows.
func (q *Queries) GetItemMeta(ctx context.Context, objectType string, objectID int64, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getItemMeta, objectType, objectID, key).Scan(&value)
	return value, err
}

const setItemMeta = `
INSERT INTO item_meta (object_type, object_id, meta_key, meta_value, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(object_type, object_id, meta_key)
DO UPDATE SET meta_value = excluded.meta_value, updated_at = excluded.updated_at`

// SetItemMeta writes a metadata value.
func (q *Queries) SetItemMeta(ctx context.Context, objectType string, objectID int64, key, value string) error {
	_, err := q.db.ExecContext(ctx, setItemMeta, objectType, objectID, key, value, time.Now().UTC())
	return err
}

const deleteItemMeta = `
DELETE FROM item_meta WHERE object_type = ? AND object_id = ? AND meta_key = ?`

// DeleteItemMeta removes a metadata value. It returns the number of rows removed.
func (q *Queries) DeleteItemMeta(ctx context.Context, objectType string, objectID int64, key string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteItemMeta, objectType, objectID, key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listItemMetaByKey = `
SELECT object_type, object_id, meta_key, meta_value, updated_at
FROM item_meta WHERE meta_key = ?
ORDER BY object_type, object_id`

// ListItemMetaByKey returns every item carrying the given key.
func (q *Queries) ListItemMetaByKey(ctx context.Context, key string) ([]ItemMeta, error) {
	rows, err := q.db.QueryContext(ctx, listItemMetaByKey, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ItemMeta
	for rows.Next() {
		var i ItemMeta
		if err := rows.Scan(&i.ObjectType, &i.ObjectID, &i.MetaKey, &i.MetaValue, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
