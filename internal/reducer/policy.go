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
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"
)

type Policy struct {
	MinDurationMinutes float64 `mapstructure:"min_duration_minutes"`
	DecimationStride   int     `mapstructure:"decimation_stride"`
	GeofenceEnabled    bool    `mapstructure:"geofence_enabled"`
	GeofenceStride     int     `mapstructure:"geofence_stride"`
	// Region is a ring of [lon, lat] vertices. Closing it is optional.
	Region [][2]float64 `mapstructure:"region"`
}

// FranceRegion is a loose quadrilateral around mainland France and Corsica.
var FranceRegion = [][2]float64{
	{-6.566734, 51.722775},
	{10.645924, 51.726922},
	{10.328174, 41.196834},
	{-7.213631, 40.847787},
}

func DefaultPolicy() Policy {
	return Policy{
		MinDurationMinutes: 45,
		DecimationStride:   4,
		GeofenceEnabled:    false,
		GeofenceStride:     50,
		Region:             slices.Clone(FranceRegion),
	}
}

func (p Policy) Validate() error {
	if p.MinDurationMinutes < 0 {
		return errors.New("min_duration_minutes must not be negative")
	}
	if p.DecimationStride < 1 {
		return fmt.Errorf("decimation_stride must be at least 1, got %d", p.DecimationStride)
	}
	if p.GeofenceEnabled {
		if p.GeofenceStride < 1 {
			return fmt.Errorf("geofence_stride must be at least 1, got %d", p.GeofenceStride)
		}
		if len(p.Region) < 3 {
			return fmt.Errorf("region needs at least 3 vertices, got %d", len(p.Region))
		}
	}
	return nil
}

func (p Policy) polygon() orb.Polygon {
	if len(p.Region) == 0 {
		return nil
	}
	ring := make(orb.Ring, 0, len(p.Region)+1)
	for _, v := range p.Region {
		ring = append(ring, orb.Point{v[0], v[1]})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}
