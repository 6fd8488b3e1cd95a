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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/tracemap/internal/filestore"
	"github.com/cardinalhq/tracemap/internal/logctx"
)

// Result is the outcome for one destination.
type Result struct {
	Destination string
	Written     []string
	Bytes       int64
	Err         error
}

// Report collects the per-destination results of one publication.
type Report struct {
	Results []Result
}

func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// OK is true when every destination received every artifact.
func (r Report) OK() bool {
	return len(r.Results) > 0 && r.Failed() == 0
}

// AllFailed is true when no destination succeeded.
func (r Report) AllFailed() bool {
	return r.Failed() == len(r.Results)
}

// Err combines the destination errors, or returns nil.
func (r Report) Err() error {
	var errs *multierror.Error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", res.Destination, res.Err))
		}
	}
	return errs.ErrorOrNil()
}

// Sink writes artifacts to a fixed list of destinations.
type Sink struct {
	dests   []filestore.Store
	base    string
	timeout time.Duration
}

type SinkOption func(*Sink)

// WithTimeout bounds every single write.
func WithTimeout(d time.Duration) SinkOption {
	return func(s *Sink) { s.timeout = d }
}

func NewSink(base string, dests []filestore.Store, opts ...SinkOption) *Sink {
	s := &Sink{dests: dests, base: base}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Base() string {
	return s.base
}

// Publish writes the latest set to every destination and, when periodKey is
// not empty, the stamped set after it. A failing destination does not stop
// the others; within a destination the first failure ends its writes so the
// metadata never announces an artifact that was not written.
func (s *Sink) Publish(ctx context.Context, arts Artifacts, periodKey string) Report {
	sets := []Names{LatestNames(s.base)}
	if periodKey != "" {
		sets = append(sets, DatedNames(s.base, periodKey))
	}

	var planned []file
	for _, names := range sets {
		files, err := arts.files(names)
		if err != nil {
			return s.failAll(err)
		}
		planned = append(planned, files...)
	}

	report := Report{Results: make([]Result, 0, len(s.dests))}
	for _, dest := range s.dests {
		report.Results = append(report.Results, s.publishTo(ctx, dest, planned))
	}
	return report
}

func (s *Sink) failAll(err error) Report {
	report := Report{}
	for _, dest := range s.dests {
		report.Results = append(report.Results, Result{Destination: dest.Name(), Err: err})
	}
	return report
}

func (s *Sink) publishTo(ctx context.Context, dest filestore.Store, files []file) Result {
	ll := logctx.FromContext(ctx).With("destination", dest.Name())
	res := Result{Destination: dest.Name()}
	attrs := metric.WithAttributes(attribute.String("destination", dest.Name()))

	for _, f := range files {
		if err := s.put(ctx, dest, f); err != nil {
			ll.Error("Failed to publish artifact", "file", f.name, "error", err)
			publishFailures.Add(ctx, 1, attrs)
			res.Err = err
			return res
		}
		res.Written = append(res.Written, f.name)
		res.Bytes += int64(len(f.data))
		publishedFiles.Add(ctx, 1, attrs)
		publishedBytes.Add(ctx, int64(len(f.data)), attrs)
	}

	ll.Info("Published artifacts", "files", len(res.Written), "bytes", res.Bytes)
	return res
}

func (s *Sink) put(ctx context.Context, dest filestore.Store, f file) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := dest.Put(ctx, f.name, f.data); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("put %s timed out after %s: %w", f.name, s.timeout, err)
		}
		return fmt.Errorf("put %s: %w", f.name, err)
	}
	return nil
}
