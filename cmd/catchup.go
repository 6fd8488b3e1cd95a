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
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/tracemap/internal/pipeline"
)

func init() {
	var (
		flags runFlags
		days  int
	)
	cmd := &cobra.Command{
		Use:   "catchup",
		Short: "Process the last N periods up to the target, oldest first",
		Long: `Run the product for every day from target minus N days up to the target.
Periods whose uploads did not change are skipped, so catching up after an
outage only republishes what is missing.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return withTelemetry("tracemap-catchup", func(ctx context.Context) error {
				return catchUp(ctx, c.OutOrStdout(), flags, days)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&days, "days", -1, "Number of periods before the target; defaults to schedule.catch_up_days")

	rootCmd.AddCommand(cmd)
}

func catchUp(ctx context.Context, out io.Writer, flags runFlags, days int) error {
	started := time.Now()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if days < 0 {
		days = cfg.Schedule.CatchUpDays
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

	sums := runner.CatchUp(ctx, target, days, pipeline.Options{Force: flags.force})
	recordCommand(ctx, "catchup", started, pipeline.AnyFailed(sums))
	if err := ctx.Err(); err != nil {
		return err
	}
	return report(out, sums)
}
