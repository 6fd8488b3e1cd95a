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

// Package filestore gives every source and destination of the pipeline the
// same four operations, whatever sits behind them: a local directory, an FTP
// server, or a cloud bucket.
package filestore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the named file does not exist.
var ErrNotFound = errors.New("file not found")

// FileInfo describes one listed file. Name is relative to the store root and
// can be passed back to Get.
type FileInfo struct {
	Name    string
	ModTime time.Time
	Size    int64
}

type Store interface {
	// Name identifies the store in logs, e.g. "ftp://host/tracemap".
	Name() string

	// List returns the files directly inside dir ("" is the root).
	// A missing directory is an empty listing, not an error.
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Get opens the named file. The caller closes the reader.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Put replaces the named file with data.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the named files. Missing files are ignored.
	Delete(ctx context.Context, names ...string) error

	Close() error
}

// ReadAll fetches a whole file and releases the reader.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	r, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func joinKey(root, name string) string {
	if root == "" {
		return strings.TrimPrefix(path.Clean("/"+name), "/")
	}
	return strings.TrimPrefix(path.Join(root, name), "/")
}

func dirPrefix(root, dir string) string {
	p := joinKey(root, dir)
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

// ContentType picks the MIME type published with an artifact.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".geojson":
		return "application/geo+json"
	case ".json":
		return "application/json"
	case ".zip":
		return "application/zip"
	case ".igc":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
