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

package gcpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageOptions(t *testing.T) {
	cfg := &storageConfig{}
	WithImpersonateServiceAccount("tracemap@project.iam.gserviceaccount.com")(cfg)
	WithEndpoint("http://localhost:4443/storage/v1/")(cfg)
	assert.Equal(t, "tracemap@project.iam.gserviceaccount.com", cfg.ServiceAccountEmail)
	assert.Equal(t, "http://localhost:4443/storage/v1/", cfg.Endpoint)
}

func TestStorageClientKey(t *testing.T) {
	key1 := storageClientKey{ServiceAccountEmail: "a@example.com"}
	key2 := storageClientKey{ServiceAccountEmail: "a@example.com"}
	key3 := storageClientKey{ServiceAccountEmail: "a@example.com", Endpoint: "http://localhost:4443"}

	assert.Equal(t, key1, key2)
	assert.NotEqual(t, key1, key3)
}
