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

// Package reducer filters single flights and turns the survivors into
// GeoJSON features small enough to aggregate by the thousand.
package reducer

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cardinalhq/tracemap/internal/aggregate"
	"github.com/cardinalhq/tracemap/internal/flight"
)

type Reason string

const (
	ReasonInvalid      Reason = "INVALID"
	ReasonTooShort     Reason = "TOO_SHORT"
	ReasonOutOfRegion  Reason = "OUT_OF_REGION"
	ReasonTooFewPoints Reason = "TOO_FEW_POINTS"
	// ReasonParseFailed marks an upload that could not be read at all.
	ReasonParseFailed Reason = "PARSE_FAILED"
)

// Reasons lists every rejection reason, for metrics and reports.
var Reasons = []Reason{ReasonInvalid, ReasonTooShort, ReasonOutOfRegion, ReasonTooFewPoints, ReasonParseFailed}

// Rejection is returned when a flight is filtered out. It is an expected
// outcome and never aborts a run.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return "flight rejected: " + string(r.Reason)
	}
	return fmt.Sprintf("flight rejected: %s (%s)", r.Reason, r.Detail)
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps a Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Reducer applies one Policy. It holds no per-flight state and is safe for
// concurrent use.
type Reducer struct {
	policy Policy
	region orb.Polygon
}

func New(policy Policy) (*Reducer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Reducer{policy: policy, region: policy.polygon()}, nil
}

func (r *Reducer) Policy() Policy {
	return r.policy
}

// Track returns the flight as a decimated LineString feature. An empty id
// is replaced by FlightID(f). The filters run in a fixed order: validity,
// duration, region, then point count.
func (r *Reducer) Track(f flight.Flight, id string) (*geojson.Feature, error) {
	if err := r.screen(f); err != nil {
		return nil, err
	}

	fixes := f.Fixes()
	line := make(orb.LineString, 0, len(fixes)/r.policy.DecimationStride+1)
	for i := 0; i < len(fixes); i += r.policy.DecimationStride {
		line = append(line, orb.Point{fixes[i].Lon, fixes[i].Lat})
	}
	if len(line) < 2 {
		return nil, reject(ReasonTooFewPoints, "%d points after decimation", len(line))
	}

	if id == "" {
		id = FlightID(f)
	}
	feature := geojson.NewFeature(line)
	feature.Properties["flightId"] = id
	return feature, nil
}

// Thermals returns one Point feature per thermal entry, elevated to the
// entry's pressure altitude. Only the validity, duration and region filters
// apply.
func (r *Reducer) Thermals(f flight.Flight) ([]*geojson.Feature, error) {
	if err := r.screen(f); err != nil {
		return nil, err
	}

	thermals := f.Thermals()
	out := make([]*geojson.Feature, 0, len(thermals))
	for _, t := range thermals {
		feature := geojson.NewFeature(orb.Point{t.Entry.Lon, t.Entry.Lat})
		feature.Properties["vario"] = math.Round(t.Vario()*100) / 100
		feature.Properties[aggregate.ElevationProperty] = int(math.Round(t.Entry.PressureAltitude))
		feature.Properties["ts"] = t.Entry.Timestamp.Unix()
		out = append(out, feature)
	}
	return out, nil
}

func (r *Reducer) screen(f flight.Flight) error {
	if f == nil || !f.Valid() {
		return reject(ReasonInvalid, "")
	}
	if minutes := f.DurationSeconds() / 60; minutes < r.policy.MinDurationMinutes {
		return reject(ReasonTooShort, "%.1f min < %.0f min", minutes, r.policy.MinDurationMinutes)
	}
	if r.policy.GeofenceEnabled {
		if err := r.checkRegion(f.Fixes()); err != nil {
			return err
		}
	}
	return nil
}

// checkRegion samples every GeofenceStride-th fix and requires the resulting
// polyline to lie inside the region.
func (r *Reducer) checkRegion(fixes []flight.Fix) error {
	sample := make(orb.LineString, 0, len(fixes)/r.policy.GeofenceStride+1)
	for i := 0; i < len(fixes); i += r.policy.GeofenceStride {
		sample = append(sample, orb.Point{fixes[i].Lon, fixes[i].Lat})
	}
	if len(sample) < 2 {
		return reject(ReasonTooFewPoints, "%d points for the region check", len(sample))
	}
	if !lineInPolygon(sample, r.region) {
		return reject(ReasonOutOfRegion, "")
	}
	return nil
}
