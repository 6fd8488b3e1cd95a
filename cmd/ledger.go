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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/tracemap/internal/ledger"
)

func init() {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the run ledger",
	}

	var (
		product string
		year    int
	)
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print the recorded fingerprints and flight counts of one year",
		RunE: func(c *cobra.Command, _ []string) error {
			return withTelemetry("tracemap-ledger", func(ctx context.Context) error {
				return ledgerGet(ctx, c.OutOrStdout(), product, year)
			})
		},
	}
	getCmd.Flags().StringVar(&product, "product", "", "Product whose ledger to read; defaults to the configured one")
	getCmd.Flags().IntVar(&year, "year", 0, "Year to read; defaults to the current one")

	ledgerCmd.AddCommand(getCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func ledgerGet(ctx context.Context, out io.Writer, productName string, year int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	product, err := cfg.ResolveProduct(productName)
	if err != nil {
		return err
	}
	a := &app{cfg: cfg}
	if err := a.openLedger(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close ledger", slog.Any("error", err))
		}
	}()

	if year == 0 {
		loc, err := cfg.Schedule.Location()
		if err != nil {
			return err
		}
		year = time.Now().In(loc).Year()
	}
	entries, err := ledger.New(a.kv, product.Name).Entries(ctx, year)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"document": ledger.DocKey(year, product.Name),
		"entries":  entries,
	}); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
