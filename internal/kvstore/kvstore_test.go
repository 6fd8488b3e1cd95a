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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "2020_daily-tracks", "processedDays.2020_07_12")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Update(ctx, "2020_daily-tracks", map[string]string{
		"processedDays.2020_07_12": "v1:abc",
		"statistics.2020_07_12":    "12",
	}))
	v, ok, err := s.Get(ctx, "2020_daily-tracks", "processedDays.2020_07_12")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1:abc", v)

	require.NoError(t, s.Update(ctx, "2020_daily-tracks", map[string]string{
		"processedDays.2020_07_12": "v1:def",
	}))
	fields, err := s.Fields(ctx, "2020_daily-tracks")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"processedDays.2020_07_12": "v1:def",
		"statistics.2020_07_12":    "12",
	}, fields)

	_, ok, err = s.Get(ctx, "2020_heatmap", "processedDays.2020_07_12")
	require.NoError(t, err)
	assert.False(t, ok, "documents are independent")

	assert.ErrorIs(t, s.Update(ctx, "", map[string]string{"a": "b"}), ErrEmptyKey)
	assert.ErrorIs(t, s.Update(ctx, "doc", map[string]string{"": "b"}), ErrEmptyKey)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Reopening runs the migrations again and keeps the data.
	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	v, ok, err := s.Get(context.Background(), "2020_daily-tracks", "statistics.2020_07_12")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "12", v)
}
