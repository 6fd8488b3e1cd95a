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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectChild(t *testing.T) {
	tests := []struct {
		prefix, key string
		want        bool
	}{
		{"2020_07_12/", "2020_07_12/a.igc", true},
		{"2020_07_12/", "2020_07_12/sub/a.igc", false},
		{"2020_07_12/", "2020_07_13/a.igc", false},
		{"2020_07_12/", "2020_07_12/", false},
		{"", "a.igc", true},
		{"", "dir/a.igc", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, directChild(tt.prefix, tt.key), "%s %s", tt.prefix, tt.key)
	}
}
