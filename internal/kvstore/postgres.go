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

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	pgGetSQL    = `SELECT value FROM ledger_fields WHERE doc = $1 AND field = $2`
	pgFieldsSQL = `SELECT field, value FROM ledger_fields WHERE doc = $1`
	pgUpsertSQL = `INSERT INTO ledger_fields (doc, field, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (doc, field) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres uses pool and applies the schema migrations. The store owns
// the pool from then on.
func NewPostgres(pool *pgxpool.Pool) (*PostgresStore, error) {
	if err := migratePostgres(pool); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the connection pool for session-scoped work such as
// advisory locks.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func migratePostgres(pool *pgxpool.Pool) error {
	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	dbDriver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return fmt.Errorf("failed to create pgx driver: %w", err)
	}
	defer func() { _ = dbDriver.Close() }()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return runUp(m)
}

func runUp(m *migrate.Migrate) error {
	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return errors.New("ledger migration is dirty, please fix it before proceeding")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, _, _ := m.Version()
	slog.Debug("Ledger schema ready", slog.Uint64("version", uint64(version)))
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, doc, field string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, pgGetSQL, doc, field).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", doc, field, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, doc string, fields map[string]string) error {
	if err := checkKeys(doc, fields); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for field, value := range fields {
			if _, err := tx.Exec(ctx, pgUpsertSQL, doc, field, value); err != nil {
				return fmt.Errorf("update %s/%s: %w", doc, field, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Fields(ctx context.Context, doc string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, pgFieldsSQL, doc)
	if err != nil {
		return nil, fmt.Errorf("fields %s: %w", doc, err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		out[field] = value
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
