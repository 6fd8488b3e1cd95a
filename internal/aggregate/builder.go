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

// Package aggregate accumulates reduced flights into one feature collection
// together with the run statistics and metadata.
package aggregate

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Builder struct {
	mu sync.Mutex

	features     []*geojson.Feature
	stats        Statistics
	bound        orb.Bound
	hasBound     bool
	processed    int
	meta         RunMetadata
	withThermals bool
}

type BuilderOption func(*Builder)

// WithThermalsCount reports the number of features as thermalsCount.
func WithThermalsCount() BuilderOption {
	return func(b *Builder) { b.withThermals = true }
}

func NewBuilder(target string, start time.Time, opts ...BuilderOption) *Builder {
	b := &Builder{
		stats: Statistics{},
		meta:  RunMetadata{TargetDate: target, StartDate: start},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetTotal records the catalog size.
func (b *Builder) SetTotal(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta.FlightsCount = n
}

// Accept adds the features of one processed flight. A flight may contribute
// no features, as a heatmap flight without thermals does; it still counts as
// processed.
func (b *Builder) Accept(features ...*geojson.Feature) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.processed++
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b.features = append(b.features, f)
		fb := f.Geometry.Bound()
		if b.hasBound {
			b.bound = b.bound.Union(fb)
		} else {
			b.bound = fb
			b.hasBound = true
		}
	}
}

// RecordStatistic counts one flight for key.
func (b *Builder) RecordStatistic(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats[key]++
}

// SetEndTime closes the run. Later calls are ignored.
func (b *Builder) SetEndTime(t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta.SetEndTime(t)
}

func (b *Builder) Processed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processed
}

// Snapshot is an immutable copy of the aggregate.
type Snapshot struct {
	Collection *geojson.FeatureCollection
	Statistics Statistics
	Metadata   RunMetadata
}

// Snapshot copies the current state. It does not modify the builder and can
// be called any number of times.
func (b *Builder) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	fc.Features = slices.Clone(b.features)
	if fc.Features == nil {
		fc.Features = []*geojson.Feature{}
	}

	meta := b.meta
	meta.ProcessedFlightsCount = b.processed
	if b.meta.EndDate != nil {
		end := *b.meta.EndDate
		meta.EndDate = &end
	}
	if b.withThermals {
		n := len(b.features)
		meta.ThermalsCount = &n
	}
	if b.hasBound {
		meta.BoundingBoxUpperLeft = []float64{b.bound.Min[0], b.bound.Max[1]}
		meta.BoundingBoxLowerRight = []float64{b.bound.Max[0], b.bound.Min[1]}
	}

	return Snapshot{
		Collection: fc,
		Statistics: maps.Clone(b.stats),
		Metadata:   meta,
	}
}

// Bound returns the extent of all accepted geometries. ok is false when
// nothing was accepted.
func (s Snapshot) Bound() (orb.Bound, bool) {
	if len(s.Metadata.BoundingBoxUpperLeft) != 2 {
		return orb.Bound{}, false
	}
	ul, lr := s.Metadata.BoundingBoxUpperLeft, s.Metadata.BoundingBoxLowerRight
	return orb.Bound{Min: orb.Point{ul[0], lr[1]}, Max: orb.Point{lr[0], ul[1]}}, true
}
