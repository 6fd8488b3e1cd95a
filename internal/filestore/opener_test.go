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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
	}{
		{"ftp:/public_html/maps", Location{Kind: KindFTP, Root: "/public_html/maps"}},
		{"ftp", Location{Kind: KindFTP}},
		{"local:/var/lib/tracemap", Location{Kind: KindLocal, Root: "/var/lib/tracemap"}},
		{" bucket:maps/2020/out ", Location{Kind: KindBucket, Profile: "maps", Root: "2020/out"}},
		{"BUCKET:maps", Location{Kind: KindBucket, Profile: "maps"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocation_Errors(t *testing.T) {
	_, err := ParseLocation("sftp:/maps")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = ParseLocation("bucket:/prefix")
	assert.Error(t, err)
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "bucket:maps/out", Location{Kind: KindBucket, Profile: "maps", Root: "out"}.String())
	assert.Equal(t, "ftp:/maps", Location{Kind: KindFTP, Root: "/maps"}.String())
}
