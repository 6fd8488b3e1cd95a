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

package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestParse(t *testing.T) {
	loc := paris(t)

	p, err := Parse(Day, "2020_07_12", loc)
	require.NoError(t, err)
	assert.Equal(t, "2020_07_12", p.Key())
	assert.Equal(t, "2020-07-12", p.Date())
	assert.Equal(t, 2020, p.Year())
	assert.Equal(t, time.Date(2020, 7, 13, 0, 0, 0, 0, loc), p.End())

	y, err := Parse(Year, "2020", loc)
	require.NoError(t, err)
	assert.Equal(t, "2020", y.Key())
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, loc), y.End())
	assert.Equal(t, 365, y.LookaheadDays())

	for _, bad := range []string{"2020-07-12", "12_07_2020", ""} {
		_, err := Parse(Day, bad, loc)
		assert.Error(t, err, bad)
	}
	for _, bad := range []string{"20", "year", "20200"} {
		_, err := Parse(Year, bad, loc)
		assert.Error(t, err, bad)
	}
	_, err = Parse("week", "2020", loc)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	loc := paris(t)
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before cutover", time.Date(2020, 7, 12, 16, 59, 0, 0, loc), "2020_07_11"},
		{"at cutover", time.Date(2020, 7, 12, 17, 0, 0, 0, loc), "2020_07_12"},
		{"new year morning", time.Date(2021, 1, 1, 9, 0, 0, 0, loc), "2020_12_31"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Default(Day, tc.now, 17).Key())
		})
	}
	assert.Equal(t, "2021", Default(Year, time.Date(2021, 1, 1, 9, 0, 0, 0, loc), 17).Key())
}

func TestOverAndPrevious(t *testing.T) {
	loc := paris(t)
	y := OfYear(time.Date(2020, 6, 1, 0, 0, 0, 0, loc))
	assert.False(t, y.Over(time.Date(2020, 12, 31, 23, 59, 0, 0, loc)))
	assert.True(t, y.Over(time.Date(2021, 1, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, "2019", y.Previous(1).Key())

	d := OfDay(time.Date(2020, 3, 1, 12, 0, 0, 0, loc))
	assert.Equal(t, "2020_02_29", d.Previous(1).Key())
}
