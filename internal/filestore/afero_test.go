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

package filestore

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memStore(t *testing.T) (Store, afero.Fs) {
	t.Helper()
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv", 0o755))
	fs := afero.NewBasePathFs(base, "/srv")
	return NewAferoStore(fs, "mem"), fs
}

func TestAferoStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := memStore(t)

	require.NoError(t, s.Put(ctx, "out/tracks.geojson", []byte(`{"a":1}`)))
	got, err := ReadAll(ctx, s, "out/tracks.geojson")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Put(ctx, "out/tracks.geojson", []byte(`{"a":2}`)))
	got, err = ReadAll(ctx, s, "out/tracks.geojson")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))

	files, err := s.List(ctx, "out")
	require.NoError(t, err)
	require.Len(t, files, 1, "temp files must not be left behind")
	assert.Equal(t, "out/tracks.geojson", files[0].Name)
}

func TestAferoStore_ListSkipsDirectoriesAndReportsModTime(t *testing.T) {
	ctx := context.Background()
	s, fs := memStore(t)

	require.NoError(t, afero.WriteFile(fs, "2020_07_12/a.igc", []byte("a"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "2020_07_12/b.igc", []byte("bb"), 0o644))
	require.NoError(t, fs.MkdirAll("2020_07_12/nested", 0o755))

	when := time.Date(2020, 7, 12, 18, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("2020_07_12/b.igc", when, when))

	files, err := s.List(ctx, "2020_07_12")
	require.NoError(t, err)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	require.Len(t, files, 2)
	assert.Equal(t, "2020_07_12/a.igc", files[0].Name)
	assert.Equal(t, "2020_07_12/b.igc", files[1].Name)
	assert.Equal(t, int64(2), files[1].Size)
	assert.True(t, files[1].ModTime.Equal(when))
}

func TestAferoStore_MissingDirIsEmpty(t *testing.T) {
	s, _ := memStore(t)
	files, err := s.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestAferoStore_GetMissing(t *testing.T) {
	s, _ := memStore(t)
	_, err := s.Get(context.Background(), "missing.igc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAferoStore_DeleteIgnoresMissing(t *testing.T) {
	ctx := context.Background()
	s, fs := memStore(t)
	require.NoError(t, afero.WriteFile(fs, "x.json", []byte("{}"), 0o644))

	require.NoError(t, s.Delete(ctx, "x.json", "never-existed.json"))
	exists, err := afero.Exists(fs, "x.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
