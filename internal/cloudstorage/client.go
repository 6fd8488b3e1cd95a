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

package cloudstorage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cardinalhq/tracemap/internal/storageprofile"
)

// ErrObjectNotFound is returned by GetObject when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Client provides a unified interface for cloud storage operations across different providers
type Client interface {
	// ListObjects returns the objects directly under prefix. Keys nested
	// deeper than the next "/" are not returned.
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// GetObject opens the object for reading. The caller closes the reader.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// PutObject writes body to key, replacing any existing object.
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// DeleteObjects deletes keys and returns the ones that could not be deleted.
	// Missing keys count as deleted.
	DeleteObjects(ctx context.Context, bucket string, keys []string) ([]string, error)
}

// ClientProvider creates storage clients for a profile.
type ClientProvider interface {
	NewClient(ctx context.Context, profile storageprofile.StorageProfile) (Client, error)
}
