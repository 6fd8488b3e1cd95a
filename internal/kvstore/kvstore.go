// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package kvstore is a small document/field key-value store. A document is
// addressed by key and holds flat fields such as "processedDays.2020_07_12".
package kvstore

import (
	"context"
	"embed"
	"errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "gomigrate_tracemap_ledger"

var ErrEmptyKey = errors.New("document and field keys must not be empty")

type Store interface {
	// Get returns the value of field in doc. ok is false when either is absent.
	Get(ctx context.Context, doc, field string) (value string, ok bool, err error)

	// Update sets all fields of doc in one atomic step, creating the
	// document when needed. Other fields are left untouched.
	Update(ctx context.Context, doc string, fields map[string]string) error

	// Fields returns every field of doc.
	Fields(ctx context.Context, doc string) (map[string]string, error)

	Close() error
}

func checkKeys(doc string, fields map[string]string) error {
	if doc == "" {
		return ErrEmptyKey
	}
	for k := range fields {
		if k == "" {
			return ErrEmptyKey
		}
	}
	return nil
}
