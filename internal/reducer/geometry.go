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
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// lineInPolygon reports whether every vertex of line is inside poly and no
// segment crosses a ring edge, so a concave region cannot be cut through.
func lineInPolygon(line orb.LineString, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return true
	}
	for _, p := range line {
		if !planar.PolygonContains(poly, p) {
			return false
		}
	}
	for i := 1; i < len(line); i++ {
		for _, ring := range poly {
			for j := 1; j < len(ring); j++ {
				if segmentsCross(line[i-1], line[i], ring[j-1], ring[j]) {
					return false
				}
			}
		}
	}
	return true
}

// segmentsCross reports a proper crossing of ab and cd. Touching endpoints
// and collinear overlap do not count.
func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := orientation(c, d, a)
	d2 := orientation(c, d, b)
	d3 := orientation(a, b, c)
	d4 := orientation(a, b, d)
	return d1*d2 < 0 && d3*d4 < 0
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
