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
	"maps"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]string
}

var _ Store = (*memoryStore)(nil)

// NewMemory returns a process-local store, for tests and dry runs.
func NewMemory() Store {
	return &memoryStore{docs: map[string]map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, doc, field string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.docs[doc][field]
	return v, ok, nil
}

func (m *memoryStore) Update(_ context.Context, doc string, fields map[string]string) error {
	if err := checkKeys(doc, fields); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.docs[doc]
	if d == nil {
		d = map[string]string{}
		m.docs[doc] = d
	}
	maps.Copy(d, fields)
	return nil
}

func (m *memoryStore) Fields(_ context.Context, doc string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.docs[doc]), nil
}

func (m *memoryStore) Close() error {
	return nil
}
