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

package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cardinalhq/tracemap/internal/period"
	"github.com/cardinalhq/tracemap/internal/publish"
	"github.com/cardinalhq/tracemap/internal/reducer"
)

// Mode selects what a product extracts from each flight.
type Mode string

const (
	ModeTracks   Mode = "tracks"
	ModeThermals Mode = "thermals"
)

// Product is one published map.
type Product struct {
	Name string
	Kind period.Kind
	// Base is the artifact base name, e.g. "tracks".
	Base string
	Mode Mode
	// StatsByFlightDate keys statistics by each flight's own date instead
	// of the period's first day.
	StatsByFlightDate bool
	Snapshot          publish.SnapshotPolicy
	// ValidityOnly skips the duration and region filters.
	ValidityOnly bool
}

var (
	DailyTracks = Product{
		Name:     "daily-tracks",
		Kind:     period.Day,
		Base:     "tracks",
		Mode:     ModeTracks,
		Snapshot: publish.SnapshotAlways,
	}
	YearlyTracks = Product{
		Name:              "yearly-tracks",
		Kind:              period.Year,
		Base:              "yearly-tracks",
		Mode:              ModeTracks,
		StatsByFlightDate: true,
		Snapshot:          publish.SnapshotYearEnd,
	}
	Heatmap = Product{
		Name:         "heatmap",
		Kind:         period.Day,
		Base:         "heatmap",
		Mode:         ModeThermals,
		Snapshot:     publish.SnapshotAlways,
		ValidityOnly: true,
	}
)

var products = []Product{DailyTracks, YearlyTracks, Heatmap}

func ProductNames() []string {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	return names
}

func LookupProduct(name string) (Product, error) {
	i := slices.IndexFunc(products, func(p Product) bool { return p.Name == name })
	if i < 0 {
		return Product{}, fmt.Errorf("%w: unknown product %q, want one of %s",
			ErrConfiguration, name, strings.Join(ProductNames(), ", "))
	}
	return products[i], nil
}

// Policy adapts the configured filter policy to the product.
func (p Product) Policy(base reducer.Policy) reducer.Policy {
	if p.ValidityOnly {
		base.MinDurationMinutes = 0
		base.GeofenceEnabled = false
	}
	return base
}
