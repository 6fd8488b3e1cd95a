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

package awsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardinalhq/tracemap/internal/storageprofile"
)

func TestS3OptionsForProfile(t *testing.T) {
	p := storageprofile.StorageProfile{
		Name:          "minio",
		CloudProvider: "aws",
		Region:        "us-east-1",
		Role:          "arn:aws:iam::1:role/x",
		Bucket:        "b",
		Endpoint:      "http://localhost:9000",
		UsePathStyle:  true,
		InsecureTLS:   true,
	}

	var sc s3Config
	for _, o := range S3OptionsForProfile(p) {
		o(&sc)
	}
	assert.Equal(t, "us-east-1", sc.Region)
	assert.Equal(t, "arn:aws:iam::1:role/x", sc.RoleARN)
	assert.Len(t, sc.applyS3s, 2)
	assert.Len(t, sc.applyConfigs, 1)
}

func TestS3OptionsForProfile_Minimal(t *testing.T) {
	assert.Empty(t, S3OptionsForProfile(storageprofile.StorageProfile{Bucket: "b"}))
}
