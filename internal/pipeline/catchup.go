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
	"context"
	"log/slog"

	"github.com/cardinalhq/tracemap/internal/logctx"
	"github.com/cardinalhq/tracemap/internal/period"
)

// CatchUp runs the days periods before target and then target itself,
// oldest first. Each period is fingerprinted on its own, so already
// published periods are skipped cheaply. A failing period does not stop
// the others.
func (r *Runner) CatchUp(ctx context.Context, target period.Period, days int, opts Options) []Summary {
	if days < 0 {
		days = 0
	}
	out := make([]Summary, 0, days+1)
	for i := days; i >= 0; i-- {
		if ctx.Err() != nil {
			logctx.FromContext(ctx).Warn("Catch-up interrupted", slog.Int("remaining", i+1), slog.Any("error", ctx.Err()))
			break
		}
		out = append(out, r.Run(ctx, target.Previous(i), opts))
	}
	return out
}

// AnyFailed reports whether a summary in the list failed.
func AnyFailed(sums []Summary) bool {
	for _, s := range sums {
		if s.Failed() {
			return true
		}
	}
	return false
}
