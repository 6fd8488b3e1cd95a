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

package fingerprint

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_EmptyIsNone(t *testing.T) {
	assert.Equal(t, None, Compute(nil))
	assert.Equal(t, None, Compute([]string{}))
	assert.True(t, Compute(nil).IsNone())
	assert.Equal(t, "<none>", Compute(nil).String())
}

func TestCompute_OrderIndependent(t *testing.T) {
	ids := []string{
		"2020_07_12/a.igc",
		"2020_07_12/b.igc",
		"2020_07_12/c.zip",
		"2020_07_12/d.zip",
		"2020_07_12/e.igc",
	}
	want := Compute(ids)
	require.False(t, want.IsNone())

	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		shuffled := append([]string(nil), ids...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Compute(shuffled))
	}
}

func TestCompute_DuplicatesCollapse(t *testing.T) {
	assert.Equal(t,
		Compute([]string{"a.igc", "b.igc"}),
		Compute([]string{"b.igc", "a.igc", "a.igc"}))
}

func TestCompute_DetectsChanges(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
	}{
		{"added file", []string{"a.igc"}, []string{"a.igc", "b.igc"}},
		{"renamed file", []string{"a.igc"}, []string{"a2.igc"}},
		{"boundary shift", []string{"ab", "c"}, []string{"a", "bc"}},
		{"joined names", []string{"a,b"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, Compute(tt.a), Compute(tt.b))
		})
	}
}

func TestCompute_Versioned(t *testing.T) {
	fp := Compute([]string{"a.igc"})
	assert.Equal(t, FormatVersion, fp.Version())
	assert.Len(t, string(fp), len(FormatVersion)+1+64)
	assert.Equal(t, "", None.Version())
	assert.Equal(t, "", Fingerprint("d41d8cd98f00b204e9800998ecf8427e").Version())
}
