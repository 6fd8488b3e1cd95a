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

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/tracemap/internal/logctx"
)

// Locker grants a lease on one (document, period) so two runs for the same
// period never interleave their read-compare-write of the fingerprint.
type Locker interface {
	// TryLock returns ok=false without waiting when another holder has the
	// lease. release must be called once when ok is true.
	TryLock(ctx context.Context, doc, periodKey string) (release func(), ok bool, err error)
}

func lockName(doc, periodKey string) string {
	return doc + "/" + periodKey
}

// LockKey maps a lease name onto the int64 key space of advisory locks.
func LockKey(doc, periodKey string) int64 {
	return int64(xxhash.Sum64String(lockName(doc, periodKey)))
}

type localLocker struct {
	mu   sync.Mutex
	held mapset.Set[string]
}

// NewLocalLocker serializes runs inside one process.
func NewLocalLocker() Locker {
	return &localLocker{held: mapset.NewThreadUnsafeSet[string]()}
}

func (l *localLocker) TryLock(_ context.Context, doc, periodKey string) (func(), bool, error) {
	name := lockName(doc, periodKey)
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held.Add(name) {
		return nil, false, nil
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.held.Remove(name)
		})
	}, true, nil
}

type pgLocker struct {
	pool *pgxpool.Pool
}

// NewPostgresLocker uses session advisory locks, so the lease also holds
// across processes sharing the ledger database.
func NewPostgresLocker(pool *pgxpool.Pool) Locker {
	return &pgLocker{pool: pool}
}

func (l *pgLocker) TryLock(ctx context.Context, doc, periodKey string) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection for lease: %w", err)
	}

	key := LockKey(doc, periodKey)
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			uctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := conn.Exec(uctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
				logctx.FromContext(ctx).Warn("Failed to release lease, dropping connection", "lease", lockName(doc, periodKey), "error", err)
				_ = conn.Conn().Close(uctx)
			}
			conn.Release()
		})
	}, true, nil
}
