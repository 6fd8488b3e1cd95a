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

package reducer

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/cardinalhq/tracemap/internal/flight"
)

// FlightID derives a stable identity from the date, duration and header
// fields of a flight. Recordings carry no natural key.
func FlightID(f flight.Flight) string {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0x1f})
	}

	if d, ok := f.Date(); ok {
		write(strconv.FormatInt(d.Unix(), 10))
	} else {
		write("")
	}
	write(strconv.FormatFloat(f.DurationSeconds(), 'f', -1, 64))
	hdr := f.Header()
	write(hdr.Pilot)
	write(hdr.GliderType)
	write(hdr.GliderID)
	write(hdr.RecorderType)

	return fmt.Sprintf("%016x", h.Sum64())
}
