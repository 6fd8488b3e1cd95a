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
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/tracemap/internal/flight"
)

var t0 = time.Date(2020, 7, 12, 11, 0, 0, 0, time.UTC)

// straightFlight flies n fixes from (lon0, lat) eastwards, 0.01 degree apart.
func straightFlight(n int, lon0, lat float64, duration time.Duration) *flight.Record {
	fixes := make([]flight.Fix, n)
	for i := range fixes {
		fixes[i] = flight.Fix{
			Lon:       lon0 + float64(i)*0.01,
			Lat:       lat,
			Altitude:  1000,
			Timestamp: t0.Add(time.Duration(i) * time.Second),
		}
	}
	return &flight.Record{
		IsValid:    true,
		Duration:   duration.Seconds(),
		FlightDate: time.Date(2020, 7, 12, 0, 0, 0, 0, time.UTC),
		Points:     fixes,
		Meta:       flight.Header{Pilot: "Jane Doe", GliderType: "ASW 27", GliderID: "F-CXYZ", RecorderType: "LX8000"},
	}
}

func newReducer(t *testing.T, mutate func(*Policy)) *Reducer {
	t.Helper()
	p := DefaultPolicy()
	if mutate != nil {
		mutate(&p)
	}
	r, err := New(p)
	require.NoError(t, err)
	return r
}

func requireReason(t *testing.T, err error, want Reason) {
	t.Helper()
	rej, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, want, rej.Reason)
}

func TestTrack_InvalidShortCircuits(t *testing.T) {
	r := newReducer(t, func(p *Policy) { p.GeofenceEnabled = true })

	f := straightFlight(200, -40, 10, 10*time.Second)
	f.IsValid = false
	_, err := r.Track(f, "")
	requireReason(t, err, ReasonInvalid)

	_, err = r.Track(nil, "")
	requireReason(t, err, ReasonInvalid)
}

func TestTrack_DurationBoundary(t *testing.T) {
	r := newReducer(t, nil)

	_, err := r.Track(straightFlight(100, 2, 45, 2700*time.Second), "")
	assert.NoError(t, err)

	_, err = r.Track(straightFlight(100, 2, 45, 2699*time.Second), "")
	requireReason(t, err, ReasonTooShort)
}

func TestTrack_Decimation(t *testing.T) {
	r := newReducer(t, nil)

	feature, err := r.Track(straightFlight(10, 2, 45, time.Hour), "abc")
	require.NoError(t, err)

	line, ok := feature.Geometry.(orb.LineString)
	require.True(t, ok)
	require.Len(t, line, 3, "fixes 0, 4 and 8")
	assert.InDelta(t, 2.0, line[0][0], 1e-9)
	assert.InDelta(t, 2.04, line[1][0], 1e-9)
	assert.InDelta(t, 2.08, line[2][0], 1e-9)
	assert.InDelta(t, 45.0, line[0][1], 1e-9)
	assert.Equal(t, "abc", feature.Properties["flightId"])
}

func TestTrack_TooFewPoints(t *testing.T) {
	r := newReducer(t, nil)

	_, err := r.Track(straightFlight(4, 2, 45, time.Hour), "")
	requireReason(t, err, ReasonTooFewPoints)

	_, err = r.Track(straightFlight(5, 2, 45, time.Hour), "")
	assert.NoError(t, err)
}

func TestTrack_Geofence(t *testing.T) {
	r := newReducer(t, func(p *Policy) { p.GeofenceEnabled = true })

	_, err := r.Track(straightFlight(200, 2, 45, time.Hour), "")
	assert.NoError(t, err, "inside France")

	_, err = r.Track(straightFlight(200, 9.5, 45, time.Hour), "")
	requireReason(t, err, ReasonOutOfRegion)

	_, err = r.Track(straightFlight(40, 2, 45, time.Hour), "")
	requireReason(t, err, ReasonTooFewPoints)

	off := newReducer(t, nil)
	_, err = off.Track(straightFlight(200, 30, 10, time.Hour), "")
	assert.NoError(t, err, "geofence disabled treats every flight as in region")
}

func TestTrack_ConcaveRegion(t *testing.T) {
	// A U-shaped region: both ends of the track are inside but the middle
	// crosses the notch.
	r := newReducer(t, func(p *Policy) {
		p.GeofenceEnabled = true
		p.GeofenceStride = 1
		p.DecimationStride = 1
		p.Region = [][2]float64{{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}}
	})
	f := &flight.Record{
		IsValid:  true,
		Duration: 3600,
		Points: []flight.Fix{
			{Lon: 0.5, Lat: 2},
			{Lon: 2.5, Lat: 2},
		},
	}
	_, err := r.Track(f, "")
	requireReason(t, err, ReasonOutOfRegion)

	f.Points = []flight.Fix{{Lon: 0.5, Lat: 0.5}, {Lon: 2.5, Lat: 0.5}}
	_, err = r.Track(f, "")
	assert.NoError(t, err)
}

func TestThermals(t *testing.T) {
	r := newReducer(t, func(p *Policy) { p.MinDurationMinutes = 0 })

	f := straightFlight(3, 2, 45, time.Minute)
	f.ThermalList = []flight.Thermal{{
		Entry: flight.Fix{Lon: 2.1, Lat: 45.2, Altitude: 812.4, PressureAltitude: 790.6, Timestamp: t0},
		Exit:  flight.Fix{Lon: 2.1, Lat: 45.2, Altitude: 1212.4, Timestamp: t0.Add(3 * time.Minute)},
	}}

	features, err := r.Thermals(f)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, orb.Point{2.1, 45.2}, features[0].Geometry)
	assert.Equal(t, 2.22, features[0].Properties["vario"])
	assert.Equal(t, 791, features[0].Properties["alt_in"], "pressure altitude")
	assert.Equal(t, t0.Unix(), features[0].Properties["ts"])

	f.IsValid = false
	_, err = r.Thermals(f)
	requireReason(t, err, ReasonInvalid)
}

func TestFlightID(t *testing.T) {
	a := straightFlight(10, 2, 45, time.Hour)
	b := straightFlight(20, 3, 46, time.Hour)
	assert.Equal(t, FlightID(a), FlightID(b), "fixes do not take part")
	assert.Len(t, FlightID(a), 16)

	b.Meta.GliderID = "F-CABC"
	assert.NotEqual(t, FlightID(a), FlightID(b))

	c := straightFlight(10, 2, 45, time.Hour+time.Second)
	assert.NotEqual(t, FlightID(a), FlightID(c))

	feature, err := newReducer(t, nil).Track(a, "")
	require.NoError(t, err)
	assert.Equal(t, FlightID(a), feature.Properties["flightId"])
}

func TestPolicyValidate(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	p.DecimationStride = 0
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.GeofenceEnabled = true
	p.Region = [][2]float64{{0, 0}, {1, 1}}
	assert.Error(t, p.Validate())

	_, err := New(p)
	assert.Error(t, err)
}
