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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/tracemap/internal/healthcheck"
	"github.com/cardinalhq/tracemap/internal/pipeline"
	"github.com/cardinalhq/tracemap/internal/trigger"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger and health probes",
		Long: `Serve GET /run?targetDate=YYYY_MM_DD&catchUpDays=N&product=NAME next to
/healthz, /readyz and /livez. One run executes at a time.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withTelemetry("tracemap-serve", serve)
		},
	}
	rootCmd.AddCommand(cmd)
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	hs := healthcheck.NewServer(healthcheck.Config{Port: cfg.Server.Port})
	hs.SetReadyCondition("ledger", false)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close stores", slog.Any("error", err))
		}
	}()

	resolve := func(_ context.Context, name string) (pipeline.Product, trigger.Runner, error) {
		p, r, err := a.runner(name)
		if err != nil {
			return p, nil, err
		}
		return p, r, nil
	}
	hs.Handle("GET /run", trigger.New(resolve, cfg.TargetPeriod,
		trigger.WithMaxCatchUpDays(max(cfg.Schedule.CatchUpDays, 366))))

	hs.SetStatus(healthcheck.StatusHealthy)
	hs.SetReadyCondition("ledger", true)
	return hs.Start(ctx)
}
