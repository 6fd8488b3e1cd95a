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

package flight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThermalVario(t *testing.T) {
	t0 := time.Date(2020, 7, 12, 12, 0, 0, 0, time.UTC)
	th := Thermal{
		Entry: Fix{Altitude: 1000, Timestamp: t0},
		Exit:  Fix{Altitude: 1300, Timestamp: t0.Add(100 * time.Second)},
	}
	assert.InDelta(t, 3.0, th.Vario(), 1e-9)

	assert.Equal(t, 0.0, Thermal{Entry: th.Entry, Exit: th.Entry}.Vario())
}

func TestRecordDate(t *testing.T) {
	_, ok := (&Record{}).Date()
	assert.False(t, ok)

	d := time.Date(2020, 7, 12, 0, 0, 0, 0, time.UTC)
	got, ok := (&Record{FlightDate: d}).Date()
	assert.True(t, ok)
	assert.Equal(t, d, got)

	assert.False(t, Invalid().Valid())
}
