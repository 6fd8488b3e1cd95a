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

package aggregate

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ElevationProperty on a Point feature is written as the point's third
// coordinate. orb points only carry two.
const ElevationProperty = "alt_in"

type elevatedPoint struct {
	Type        string     `json:"type"`
	Coordinates [3]float64 `json:"coordinates"`
}

// CollectionJSON encodes the feature collection as GeoJSON, with elevated
// points as three dimensional positions.
func (s Snapshot) CollectionJSON() ([]byte, error) {
	features := make([]json.RawMessage, 0, len(s.Collection.Features))
	for _, f := range s.Collection.Features {
		raw, err := encodeFeature(f)
		if err != nil {
			return nil, err
		}
		features = append(features, raw)
	}
	return json.Marshal(struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}{Type: "FeatureCollection", Features: features})
}

func encodeFeature(f *geojson.Feature) (json.RawMessage, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	p, ok := f.Geometry.(orb.Point)
	if !ok {
		return raw, nil
	}
	alt, ok := elevation(f.Properties[ElevationProperty])
	if !ok {
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields["geometry"], err = json.Marshal(elevatedPoint{Type: "Point", Coordinates: [3]float64{p[0], p[1], alt}}); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func elevation(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
