// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"

	"github.com/olegiv/themeswitcher/internal/model"
)

const listContentTypes = `
SELECT kind, name, label, public FROM content_types WHERE kind = ? ORDER BY name`

// ListContentTypes returns the host-registered types of the given kind.
func (q *Queries) ListContentTypes(ctx context.Context, kind string) ([]model.ContentType, error) {
	rows, err := q.db.QueryContext(ctx, listContentTypes, kind)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var types []model.ContentType
	for rows.Next() {
		var ct model.ContentType
		if err := rows.Scan(&ct.Kind, &ct.Name, &ct.Label, &ct.Public); err != nil {
			return nil, err
		}
		types = append(types, ct)
	}
	return types, rows.Err()
}

const upsertContentType = `
INSERT INTO content_types (kind, name, label, public) VALUES (?, ?, ?, ?)
ON CONFLICT(kind, name) DO UPDATE SET label = excluded.label, public = excluded.public`

// UpsertContentType registers or updates a type.
func (q *Queries) UpsertContentType(ctx context.Context, ct model.ContentType) error {
	_, err := q.db.ExecContext(ctx, upsertContentType, ct.Kind, ct.Name, ct.Label, ct.Public)
	return err
}

const deleteContentTypesByKind = `DELETE FROM content_types WHERE kind = ?`

// DeleteContentTypesByKind removes every registered type of a kind.
func (q *Queries) DeleteContentTypesByKind(ctx context.Context, kind string) error {
	_, err := q.db.ExecContext(ctx, deleteContentTypesByKind, kind)
	return err
}
