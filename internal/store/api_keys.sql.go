// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/themeswitcher/internal/model"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, capabilities, last_used_at, expires_at, is_active, created_at`

func scanAPIKey(row interface{ Scan(...any) error }) (model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Capabilities,
		&k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedAt)
	return k, err
}

// CreateAPIKeyParams holds the values for a new API key row.
type CreateAPIKeyParams struct {
	Name         string
	KeyHash      string
	KeyPrefix    string
	Capabilities string
	ExpiresAt    sql.NullTime
}

const createAPIKey = `
INSERT INTO api_keys (name, key_hash, key_prefix, capabilities, expires_at, is_active, created_at)
VALUES (?, ?, ?, ?, ?, 1, ?)
RETURNING ` + apiKeyColumns

// CreateAPIKey inserts a new active key.
func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx, createAPIKey,
		arg.Name, arg.KeyHash, arg.KeyPrefix, arg.Capabilities, arg.ExpiresAt, time.Now().UTC())
	return scanAPIKey(row)
}

const getAPIKeyByHash = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = ?`

// GetAPIKeyByHash looks a key up by its SHA-256 hash.
func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	return scanAPIKey(q.db.QueryRowContext(ctx, getAPIKeyByHash, keyHash))
}

const listAPIKeys = `SELECT ` + apiKeyColumns + ` FROM api_keys ORDER BY id`

// ListAPIKeys returns every key.
func (q *Queries) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	rows, err := q.db.QueryContext(ctx, listAPIKeys)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

const updateAPIKeyLastUsed = `UPDATE api_keys SET last_used_at = ? WHERE id = ?`

// UpdateAPIKeyLastUsed records when a key was last presented.
func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, updateAPIKeyLastUsed, at.UTC(), id)
	return err
}

const deactivateAPIKey = `UPDATE api_keys SET is_active = 0 WHERE id = ?`

// DeactivateAPIKey revokes a key without deleting it.
func (q *Queries) DeactivateAPIKey(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deactivateAPIKey, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
