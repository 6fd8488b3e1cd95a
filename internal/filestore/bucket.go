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
	"fmt"
	"io"
	"strings"

	"github.com/cardinalhq/tracemap/internal/cloudstorage"
)

type bucketStore struct {
	client cloudstorage.Client
	bucket string
	root   string
	label  string
}

var _ Store = (*bucketStore)(nil)

// NewBucketStore exposes bucket/root through the Store contract.
func NewBucketStore(client cloudstorage.Client, scheme, bucket, root string) Store {
	root = strings.Trim(root, "/")
	label := scheme + "://" + bucket
	if root != "" {
		label += "/" + root
	}
	return &bucketStore{client: client, bucket: bucket, root: root, label: label}
}

func (s *bucketStore) Name() string {
	return s.label
}

func (s *bucketStore) List(ctx context.Context, dir string) ([]FileInfo, error) {
	objects, err := s.client.ListObjects(ctx, s.bucket, dirPrefix(s.root, dir))
	if err != nil {
		return nil, err
	}

	out := make([]FileInfo, 0, len(objects))
	for _, obj := range objects {
		name := obj.Key
		if s.root != "" {
			name = strings.TrimPrefix(name, s.root+"/")
		}
		out = append(out, FileInfo{
			Name:    name,
			ModTime: obj.LastModified,
			Size:    obj.Size,
		})
	}
	return out, nil
}

func (s *bucketStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.client.GetObject(ctx, s.bucket, joinKey(s.root, name))
	if err != nil {
		if errors.Is(err, cloudstorage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", s.label, name, ErrNotFound)
		}
		return nil, err
	}
	return r, nil
}

func (s *bucketStore) Put(ctx context.Context, name string, data []byte) error {
	return s.client.PutObject(ctx, s.bucket, joinKey(s.root, name), data, ContentType(name))
}

func (s *bucketStore) Delete(ctx context.Context, names ...string) error {
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = joinKey(s.root, n)
	}
	failed, err := s.client.DeleteObjects(ctx, s.bucket, keys)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d objects from %s: %s", len(failed), s.label, strings.Join(failed, ", "))
	}
	return nil
}

func (s *bucketStore) Close() error {
	return nil
}
