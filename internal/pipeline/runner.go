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

// Package pipeline runs one product over one period: list the uploads,
// skip when their fingerprint is unchanged, otherwise reduce every flight,
// publish the aggregate and record the fingerprint.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/tracemap/internal/aggregate"
	"github.com/cardinalhq/tracemap/internal/catalog"
	"github.com/cardinalhq/tracemap/internal/filestore"
	"github.com/cardinalhq/tracemap/internal/fingerprint"
	"github.com/cardinalhq/tracemap/internal/flight"
	"github.com/cardinalhq/tracemap/internal/idgen"
	"github.com/cardinalhq/tracemap/internal/ledger"
	"github.com/cardinalhq/tracemap/internal/logctx"
	"github.com/cardinalhq/tracemap/internal/period"
	"github.com/cardinalhq/tracemap/internal/publish"
	"github.com/cardinalhq/tracemap/internal/reducer"
)

// progressEvery is how often, in files, progress is logged.
const progressEvery = 5

// Deps are the collaborators of a Runner.
type Deps struct {
	Product Product
	Catalog *catalog.Catalog
	Source  filestore.Store
	Parser  flight.Parser
	Reducer *reducer.Reducer
	Sink    *publish.Sink
	Ledger  *ledger.Ledger
	// Locker is optional; without it concurrent runs of a period may race.
	Locker ledger.Locker
}

type Runner struct {
	Deps

	workers   int
	ioTimeout time.Duration
	now       func() time.Time
	ids       idgen.IDGenerator
}

type RunnerOption func(*Runner)

// WithWorkers reduces up to n flights at once. Feature order then no
// longer follows catalog order.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithIOTimeout bounds every single file fetch.
func WithIOTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.ioTimeout = d }
}

// WithClock replaces time.Now, for tests and for running in a fixed zone.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

func NewRunner(d Deps, opts ...RunnerOption) (*Runner, error) {
	switch {
	case d.Catalog == nil:
		return nil, fmt.Errorf("%w: no source catalog", ErrConfiguration)
	case d.Source == nil:
		return nil, fmt.Errorf("%w: no source store", ErrConfiguration)
	case d.Parser == nil:
		return nil, fmt.Errorf("%w: no flight parser", ErrConfiguration)
	case d.Reducer == nil:
		return nil, fmt.Errorf("%w: no reducer", ErrConfiguration)
	case d.Sink == nil:
		return nil, fmt.Errorf("%w: no publication sink", ErrConfiguration)
	case d.Ledger == nil:
		return nil, fmt.Errorf("%w: no ledger", ErrConfiguration)
	}
	r := &Runner{
		Deps:    d,
		workers: 1,
		now:     time.Now,
		ids:     idgen.NewULIDGenerator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Options tune a single run.
type Options struct {
	// Limit processes only the first Limit files, by name. Zero means all.
	Limit int
	// DryRun reduces and aggregates but neither publishes nor records.
	DryRun bool
	// Force ignores the recorded fingerprint.
	Force bool
}

// Run processes p and never returns an error: the outcome, failures
// included, is the Summary.
func (r *Runner) Run(ctx context.Context, p period.Period, opts Options) Summary {
	started := r.now()
	runID := r.ids.Make(started)
	ctx, ll := logctx.With(ctx,
		slog.String("run_id", runID),
		slog.String("product", r.Product.Name),
		slog.String("period", p.Key()),
	)

	sum := r.run(ctx, p, opts, started)
	sum.Product = r.Product.Name
	sum.Period = p.Key()
	sum.RunID = runID

	attrs := metric.WithAttributes(
		attribute.String("product", r.Product.Name),
		attribute.String("status", string(sum.Status)),
	)
	runCounter.Add(ctx, 1, attrs)
	runDuration.Record(ctx, time.Since(started).Seconds(), attrs)

	if sum.Err != nil {
		ll.Error("Run finished", slog.String("status", string(sum.Status)), slog.Any("error", sum.Err))
	} else {
		ll.Info("Run finished", slog.String("status", string(sum.Status)), slog.String("message", sum.Message))
	}
	return sum
}

func failed(err error) Summary {
	return Summary{Status: StatusFailed, Message: err.Error(), Err: err}
}

func (r *Runner) run(ctx context.Context, p period.Period, opts Options, started time.Time) Summary {
	ll := logctx.FromContext(ctx)
	doc := ledger.DocKey(p.Year(), r.Product.Name)

	if r.Locker != nil {
		release, ok, err := r.Locker.TryLock(ctx, doc, p.Key())
		if err != nil {
			return failed(fmt.Errorf("%w: %w", ErrLedger, err))
		}
		if !ok {
			return Summary{Status: StatusLocked, Message: "another run holds this period"}
		}
		defer release()
	}

	files, err := r.Catalog.ListFiles(ctx, p, p.LookaheadDays())
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrTransport, err))
	}
	filesListed.Add(ctx, int64(len(files)), metric.WithAttributes(attribute.String("product", r.Product.Name)))

	fp := fingerprint.Compute(catalog.Names(files))
	if fp.IsNone() {
		return Summary{Status: StatusEmpty, Message: "no files for period"}
	}

	last, err := r.Ledger.LastFingerprint(ctx, p)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrLedger, err))
	}
	if !opts.Force && last == fp {
		ll.Info("Fingerprint unchanged, skipping", slog.String("fingerprint", fp.String()))
		return Summary{Status: StatusUpToDate, Message: NoUpdateNeeded, Fingerprint: string(fp), Files: len(files)}
	}

	limited := opts.Limit > 0 && opts.Limit < len(files)
	if limited {
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
		files = files[:opts.Limit]
	}
	isLatestRun := !limited && !opts.DryRun

	var builderOpts []aggregate.BuilderOption
	if r.Product.Mode == ModeThermals {
		builderOpts = append(builderOpts, aggregate.WithThermalsCount())
	}
	builder := aggregate.NewBuilder(p.Key(), started, builderOpts...)
	builder.SetTotal(len(files))

	rejected, err := r.reduceAll(ctx, p, files, builder)
	if err != nil {
		return failed(err)
	}

	end := r.now()
	builder.SetEndTime(end)
	snap := builder.Snapshot()
	arts, err := publish.Encode(snap)
	if err != nil {
		return failed(err)
	}

	sum := Summary{
		Fingerprint: string(fp),
		Files:       len(files),
		Rejected:    rejected,
		Metadata:    arts.Metadata,
	}

	if opts.DryRun {
		sum.Status = StatusDryRun
		sum.Message = "dry run, nothing published"
		return sum
	}

	periodKey := ""
	if r.Product.Snapshot.Dated(isLatestRun, p, end) {
		periodKey = p.Key()
	}
	report := r.Sink.Publish(ctx, arts, periodKey)
	sum.Destinations = destinationResults(report)

	if err := report.Err(); err != nil {
		sum.Err = fmt.Errorf("%w: %w", ErrTransport, err)
		sum.Message = sum.Err.Error()
		sum.Status = StatusPartial
		if report.AllFailed() {
			sum.Status = StatusFailed
		}
		return sum
	}

	if limited {
		sum.Status = StatusPublished
		sum.Message = fmt.Sprintf("published %d of the period's files, ledger untouched", len(files))
		return sum
	}

	if err := r.Ledger.Commit(ctx, p, fp, builder.Processed()); err != nil {
		sum.Err = fmt.Errorf("%w: %w", ErrLedger, err)
		sum.Message = sum.Err.Error()
		sum.Status = StatusFailed
		return sum
	}

	sum.Status = StatusPublished
	sum.Message = string(arts.Metadata)
	return sum
}

func destinationResults(report publish.Report) []DestinationResult {
	out := make([]DestinationResult, 0, len(report.Results))
	for _, res := range report.Results {
		d := DestinationResult{Name: res.Destination, Written: res.Written, Bytes: res.Bytes}
		if res.Err != nil {
			d.Error = res.Err.Error()
		}
		out = append(out, d)
	}
	return out
}

// tally counts rejections across workers.
type tally struct {
	mu     sync.Mutex
	counts map[reducer.Reason]int
}

func (t *tally) add(reason reducer.Reason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts == nil {
		t.counts = map[reducer.Reason]int{}
	}
	t.counts[reason]++
}

// reduceAll feeds every file through the parser and reducer. A fetch
// failure aborts the run, since publishing without that file would record
// a fingerprint for data that was never aggregated.
func (r *Runner) reduceAll(ctx context.Context, p period.Period, files []catalog.SourceFile, b *aggregate.Builder) (map[reducer.Reason]int, error) {
	ll := logctx.FromContext(ctx)
	rejected := &tally{}
	total := len(files)

	process := func(ctx context.Context, i int, file catalog.SourceFile) error {
		if (i+1)%progressEvery == 0 || i+1 == total {
			ll.Info("Processing", slog.String("progress", fmt.Sprintf("%d/%d", i+1, total)), slog.String("file", file.Name))
		}
		reason, err := r.reduceOne(ctx, p, file, b)
		if err != nil {
			return err
		}
		if reason != "" {
			rejected.add(reason)
			flightsRejected.Add(ctx, 1, metric.WithAttributes(
				attribute.String("product", r.Product.Name),
				attribute.String("reason", string(reason)),
			))
		}
		return nil
	}

	if r.workers <= 1 {
		for i, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := process(ctx, i, file); err != nil {
				return nil, err
			}
		}
		return rejected.counts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return process(gctx, i, file)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rejected.counts, nil
}

// reduceOne returns the rejection reason, or "" when the flight was accepted.
func (r *Runner) reduceOne(ctx context.Context, p period.Period, file catalog.SourceFile, b *aggregate.Builder) (reducer.Reason, error) {
	ll := logctx.FromContext(ctx)

	raw, err := r.fetch(ctx, file.Name)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %w", ErrTransport, file.Name, err)
	}

	f, err := r.Parser.Parse(file.Name, raw)
	if err != nil {
		ll.Debug("Discarded", slog.String("file", file.Name), slog.String("reason", string(reducer.ReasonParseFailed)), slog.Any("error", err))
		return reducer.ReasonParseFailed, nil
	}

	switch r.Product.Mode {
	case ModeThermals:
		features, err := r.Reducer.Thermals(f)
		if err != nil {
			return discarded(ctx, file, err)
		}
		b.Accept(features...)
		b.RecordStatistic(p.Date())
	default:
		feature, err := r.Reducer.Track(f, "")
		if err != nil {
			return discarded(ctx, file, err)
		}
		b.Accept(feature)
		b.RecordStatistic(r.statisticKey(p, f))
	}
	flightsAccepted.Add(ctx, 1, metric.WithAttributes(attribute.String("product", r.Product.Name)))
	return "", nil
}

func discarded(ctx context.Context, file catalog.SourceFile, err error) (reducer.Reason, error) {
	rej, ok := reducer.AsRejection(err)
	if !ok {
		return "", err
	}
	logctx.FromContext(ctx).Debug("Discarded", slog.String("file", file.Name), slog.String("reason", string(rej.Reason)), slog.String("detail", rej.Detail))
	return rej.Reason, nil
}

func (r *Runner) statisticKey(p period.Period, f flight.Flight) string {
	if r.Product.StatsByFlightDate {
		if d, ok := f.Date(); ok {
			return d.Format(period.DateLayout)
		}
	}
	return p.Date()
}

func (r *Runner) fetch(ctx context.Context, name string) ([]byte, error) {
	if r.ioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ioTimeout)
		defer cancel()
	}
	data, err := filestore.ReadAll(ctx, r.Source, name)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("timed out after %s: %w", r.ioTimeout, err)
	}
	return data, err
}
