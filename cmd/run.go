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

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/tracemap/internal/pipeline"
)

type runFlags struct {
	product string
	target  string
	limit   int
	dryRun  bool
	force   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.product, "product", "", "Product to build (daily-tracks, yearly-tracks, heatmap); defaults to the configured one")
	cmd.Flags().StringVar(&f.target, "target", "", "Period to process, YYYY_MM_DD or YYYY; defaults by cutover hour")
	cmd.Flags().BoolVar(&f.force, "force", false, "Reprocess even when the uploads did not change")
}

func init() {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build and publish one product for one period",
		RunE: func(c *cobra.Command, _ []string) error {
			return withTelemetry("tracemap-run", func(ctx context.Context) error {
				return runOnce(ctx, c.OutOrStdout(), flags)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Process only the first N files by name; the ledger is left untouched")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Reduce and aggregate without publishing or recording")

	rootCmd.AddCommand(cmd)
}

func runOnce(ctx context.Context, out io.Writer, flags runFlags) error {
	started := time.Now()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close stores", slog.Any("error", err))
		}
	}()

	product, runner, err := a.runner(flags.product)
	if err != nil {
		return err
	}
	target, err := cfg.TargetPeriod(product, flags.target, time.Now())
	if err != nil {
		return err
	}

	sum := runner.Run(ctx, target, pipeline.Options{
		Limit:  flags.limit,
		DryRun: flags.dryRun,
		Force:  flags.force,
	})
	recordCommand(ctx, "run", started, sum.Failed())
	return report(out, []pipeline.Summary{sum})
}

// report prints the summaries as JSON and turns any failure into an error.
func report(out io.Writer, sums []pipeline.Summary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	var payload any = sums
	if len(sums) == 1 {
		payload = sums[0]
	}
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	var errs []error
	for _, s := range sums {
		if s.Failed() {
			errs = append(errs, fmt.Errorf("%s %s: %s", s.Product, s.Period, s.Status))
		}
	}
	return errors.Join(errs...)
}
