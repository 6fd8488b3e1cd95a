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
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
)

type aferoStore struct {
	fs    afero.Fs
	label string
}

var _ Store = (*aferoStore)(nil)

// NewAferoStore wraps any afero filesystem. Tests use a MemMapFs.
func NewAferoStore(fs afero.Fs, label string) Store {
	return &aferoStore{fs: fs, label: label}
}

// NewLocalStore roots a store at a directory on the local disk.
func NewLocalStore(root string) Store {
	return NewAferoStore(afero.NewBasePathFs(afero.NewOsFs(), root), "file://"+root)
}

func (s *aferoStore) Name() string {
	return s.label
}

func (s *aferoStore) List(_ context.Context, dir string) ([]FileInfo, error) {
	d := dir
	if d == "" {
		d = "."
	}
	entries, err := afero.ReadDir(s.fs, d)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s/%s: %w", s.label, dir, err)
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, FileInfo{
			Name:    joinKey(dir, e.Name()),
			ModTime: e.ModTime(),
			Size:    e.Size(),
		})
	}
	return out, nil
}

func (s *aferoStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", s.label, name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s/%s: %w", s.label, name, err)
	}
	return f, nil
}

// Put writes to a temp file beside the target and renames it into place, so a
// reader never sees a half-written artifact.
func (s *aferoStore) Put(_ context.Context, name string, data []byte) error {
	dir := path.Dir(name)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s/%s: %w", s.label, dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+path.Base(name)+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s/%s: %w", s.label, name, err)
	}
	tmpName := path.Join(dir, path.Base(tmp.Name()))

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write %s/%s: %w", s.label, name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close %s/%s: %w", s.label, name, err)
	}
	if err := s.fs.Rename(tmpName, name); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename into %s/%s: %w", s.label, name, err)
	}
	return nil
}

func (s *aferoStore) Delete(_ context.Context, names ...string) error {
	for _, name := range names {
		if err := s.fs.Remove(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s/%s: %w", s.label, name, err)
		}
	}
	return nil
}

func (s *aferoStore) Close() error {
	return nil
}
