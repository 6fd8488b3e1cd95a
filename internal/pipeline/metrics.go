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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	runCounter      metric.Int64Counter
	filesListed     metric.Int64Counter
	flightsAccepted metric.Int64Counter
	flightsRejected metric.Int64Counter
	runDuration     metric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/tracemap/internal/pipeline")

	var err error
	runCounter, err = meter.Int64Counter(
		"tracemap.runs",
		metric.WithDescription("Number of pipeline runs by product and status"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create runs counter: %w", err))
	}

	filesListed, err = meter.Int64Counter(
		"tracemap.files.listed",
		metric.WithDescription("Number of source files found by the catalog"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create files.listed counter: %w", err))
	}

	flightsAccepted, err = meter.Int64Counter(
		"tracemap.flights.accepted",
		metric.WithDescription("Number of flights added to an aggregate"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create flights.accepted counter: %w", err))
	}

	flightsRejected, err = meter.Int64Counter(
		"tracemap.flights.rejected",
		metric.WithDescription("Number of flights filtered out, by reason"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create flights.rejected counter: %w", err))
	}

	runDuration, err = meter.Float64Histogram(
		"tracemap.run.duration",
		metric.WithDescription("Wall time of a pipeline run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create run.duration histogram: %w", err))
	}
}
