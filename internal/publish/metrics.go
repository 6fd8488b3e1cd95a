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

package publish

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	publishedFiles  metric.Int64Counter
	publishedBytes  metric.Int64Counter
	publishFailures metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/tracemap/internal/publish")

	var err error
	publishedFiles, err = meter.Int64Counter(
		"tracemap.publish.files",
		metric.WithDescription("Number of artifacts written to destinations"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create publish.files counter: %w", err))
	}

	publishedBytes, err = meter.Int64Counter(
		"tracemap.publish.bytes",
		metric.WithDescription("Bytes written to destinations"),
		metric.WithUnit("By"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create publish.bytes counter: %w", err))
	}

	publishFailures, err = meter.Int64Counter(
		"tracemap.publish.failures",
		metric.WithDescription("Number of destinations a run failed to publish to"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create publish.failures counter: %w", err))
	}
}
