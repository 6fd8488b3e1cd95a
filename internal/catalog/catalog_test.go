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

package catalog

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/tracemap/internal/filestore"
	"github.com/cardinalhq/tracemap/internal/period"
)

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func memFS(t *testing.T) afero.Fs {
	t.Helper()
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv", 0o755))
	return afero.NewBasePathFs(base, "/srv")
}

func touch(t *testing.T, fs afero.Fs, name string, mod time.Time) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(name), 0o644))
	require.NoError(t, fs.Chtimes(name, mod, mod))
}

func sortedNames(files []SourceFile) []string {
	names := Names(files)
	sort.Strings(names)
	return names
}

func TestListFiles_ModTime(t *testing.T) {
	loc := paris(t)
	fs := memFS(t)
	touch(t, fs, "drop/a.zip", time.Date(2020, 7, 12, 9, 0, 0, 0, loc))
	touch(t, fs, "drop/b.ZIP", time.Date(2020, 7, 12, 23, 30, 0, 0, loc))
	touch(t, fs, "drop/c.zip", time.Date(2020, 7, 13, 0, 30, 0, 0, loc))
	touch(t, fs, "drop/d.txt", time.Date(2020, 7, 12, 9, 0, 0, 0, loc))
	touch(t, fs, "drop/e.zip", time.Date(2020, 7, 11, 23, 59, 0, 0, loc))
	// 22:30 UTC on the 12th is already the 13th in Paris.
	touch(t, fs, "drop/f.zip", time.Date(2020, 7, 12, 22, 30, 0, 0, time.UTC))

	c, err := New(filestore.NewAferoStore(fs, "mem"), Config{Layout: LayoutModTime, Dir: "drop", Suffixes: []string{"zip"}}, loc)
	require.NoError(t, err)

	p, err := period.Parse(period.Day, "2020_07_12", loc)
	require.NoError(t, err)

	files, err := c.ListFiles(context.Background(), p, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"drop/a.zip", "drop/b.ZIP"}, sortedNames(files))
	for _, f := range files {
		assert.Equal(t, "2020_07_12", f.Day)
	}

	files, err = c.ListFiles(context.Background(), p, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"drop/a.zip", "drop/b.ZIP", "drop/c.zip", "drop/f.zip"}, sortedNames(files))

	files, err = c.ListFiles(context.Background(), p, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"drop/a.zip", "drop/b.ZIP", "drop/e.zip"}, sortedNames(files))
}

func TestListFiles_Prefix(t *testing.T) {
	loc := paris(t)
	fs := memFS(t)
	old := time.Date(2019, 1, 1, 0, 0, 0, 0, loc)
	touch(t, fs, "2020_07_12/a.igc", old)
	touch(t, fs, "2020_07_12/b.zip", old)
	touch(t, fs, "2020_07_12/notes.md", old)
	touch(t, fs, "2020_07_13/c.igc", old)

	c, err := New(filestore.NewAferoStore(fs, "mem"), Config{Layout: LayoutPrefix}, loc)
	require.NoError(t, err)
	p, err := period.Parse(period.Day, "2020_07_12", loc)
	require.NoError(t, err)

	files, err := c.ListFiles(context.Background(), p, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020_07_12/a.igc", "2020_07_12/b.zip"}, sortedNames(files))

	files, err = c.ListFiles(context.Background(), p, 2)
	require.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Equal(t, "2020_07_13", files[2].Day)
}

func TestListFiles_EmptyIsNotAnError(t *testing.T) {
	loc := paris(t)
	c, err := New(filestore.NewAferoStore(memFS(t), "mem"), Config{Dir: "missing"}, loc)
	require.NoError(t, err)
	p := period.OfDay(time.Date(2020, 7, 12, 0, 0, 0, 0, loc))

	files, err := c.ListFiles(context.Background(), p, 0)
	require.NoError(t, err)
	assert.Empty(t, files)
}

type failingStore struct {
	filestore.Store
}

func (failingStore) Name() string { return "broken" }

func (failingStore) List(context.Context, string) ([]filestore.FileInfo, error) {
	return nil, errors.New("421 service not available")
}

func (failingStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("unused")
}

func TestListFiles_TransportError(t *testing.T) {
	c, err := New(failingStore{}, Config{}, time.UTC)
	require.NoError(t, err)

	_, err = c.ListFiles(context.Background(), period.OfDay(time.Now()), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestNew_UnknownLayout(t *testing.T) {
	_, err := New(failingStore{}, Config{Layout: "sharded"}, time.UTC)
	assert.Error(t, err)
}

func TestWindowFor(t *testing.T) {
	p := period.OfYear(time.Date(2020, 5, 5, 0, 0, 0, 0, time.UTC))
	w := WindowFor(p, p.LookaheadDays())
	assert.True(t, w.Contains(time.Date(2020, 12, 31, 12, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2019, 12, 31, 12, 0, 0, 0, time.UTC)))
}
