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
	"io"
	"net/textproto"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFTP struct {
	files   map[string][]byte
	times   map[string]time.Time
	dirs    map[string]bool
	quit    int
	listErr error
}

func newFakeFTP() *fakeFTP {
	return &fakeFTP{files: map[string][]byte{}, times: map[string]time.Time{}, dirs: map[string]bool{"/": true}}
}

func notFound() error {
	return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file or directory"}
}

func (f *fakeFTP) List(dir string) ([]*ftp.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if !f.dirs[dir] {
		return nil, notFound()
	}
	var out []*ftp.Entry
	for name, data := range f.files {
		if path.Dir(name) == dir {
			out = append(out, &ftp.Entry{Name: path.Base(name), Type: ftp.EntryTypeFile, Size: uint64(len(data)), Time: f.times[name]})
		}
	}
	for d := range f.dirs {
		if d != dir && path.Dir(d) == dir {
			out = append(out, &ftp.Entry{Name: path.Base(d), Type: ftp.EntryTypeFolder})
		}
	}
	return out, nil
}

func (f *fakeFTP) Fetch(p string) ([]byte, error) {
	data, ok := f.files[p]
	if !ok {
		return nil, notFound()
	}
	return data, nil
}

func (f *fakeFTP) Stor(p string, r io.Reader) error {
	if !f.dirs[path.Dir(p)] {
		return notFound()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.files[p] = data
	return nil
}

func (f *fakeFTP) Rename(from, to string) error {
	data, ok := f.files[from]
	if !ok {
		return notFound()
	}
	delete(f.files, from)
	f.files[to] = data
	return nil
}

func (f *fakeFTP) MakeDir(p string) error {
	f.dirs[p] = true
	return nil
}

func (f *fakeFTP) Delete(p string) error {
	if _, ok := f.files[p]; !ok {
		return notFound()
	}
	delete(f.files, p)
	return nil
}

func (f *fakeFTP) Quit() error {
	f.quit++
	return nil
}

func fakeFTPStore(conn *fakeFTP, root string) (*ftpStore, *int) {
	dials := 0
	s := newFTPStore("ftp.example.org", root, func(context.Context) (ftpConn, error) {
		dials++
		return conn, nil
	})
	return s, &dials
}

func TestFTPStore_PutCreatesDirsAndRenames(t *testing.T) {
	ctx := context.Background()
	conn := newFakeFTP()
	s, dials := fakeFTPStore(conn, "tracemap")

	require.NoError(t, s.Put(ctx, "2020/tracks.geojson", []byte("{}")))
	assert.Equal(t, []byte("{}"), conn.files["/tracemap/2020/tracks.geojson"])
	for name := range conn.files {
		assert.False(t, strings.HasSuffix(name, ".part"), "leftover %s", name)
	}

	got, err := ReadAll(ctx, s, "2020/tracks.geojson")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
	assert.Equal(t, 1, *dials, "connection is reused")
}

func TestFTPStore_List(t *testing.T) {
	conn := newFakeFTP()
	conn.dirs["/2020_07_12"] = true
	conn.dirs["/2020_07_12/sub"] = true
	when := time.Date(2020, 7, 12, 19, 30, 0, 0, time.UTC)
	conn.files["/2020_07_12/a.zip"] = []byte("zip")
	conn.times["/2020_07_12/a.zip"] = when

	s, _ := fakeFTPStore(conn, "")
	files, err := s.List(context.Background(), "2020_07_12")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2020_07_12/a.zip", files[0].Name)
	assert.Equal(t, int64(3), files[0].Size)
	assert.True(t, files[0].ModTime.Equal(when))

	files, err = s.List(context.Background(), "2020_07_13")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFTPStore_TransportErrorDropsConnection(t *testing.T) {
	conn := newFakeFTP()
	conn.listErr = errors.New("connection reset by peer")
	s, dials := fakeFTPStore(conn, "")

	_, err := s.List(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, 1, conn.quit)

	conn.listErr = nil
	_, err = s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, *dials)
}

func TestFTPStore_GetAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := fakeFTPStore(newFakeFTP(), "")

	_, err := s.Get(ctx, "nope.igc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "nope.igc"))
}

func TestFTPStore_DialFailure(t *testing.T) {
	s := newFTPStore("ftp.example.org", "", func(context.Context) (ftpConn, error) {
		return nil, errors.New("refused")
	})
	_, err := s.List(context.Background(), "")
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}

func TestFTPCredentialsAddress(t *testing.T) {
	assert.Equal(t, "ftp.example.org:21", FTPCredentials{Server: "ftp.example.org"}.address())
	assert.Equal(t, "ftp.example.org:2121", FTPCredentials{Server: "ftp.example.org:2121"}.address())
}
