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
	"time"

	"github.com/cardinalhq/tracemap/internal/period"
)

// SnapshotPolicy decides when period-stamped copies are written.
type SnapshotPolicy string

const (
	SnapshotAlways  SnapshotPolicy = "always"
	SnapshotYearEnd SnapshotPolicy = "year-end"
	SnapshotNever   SnapshotPolicy = "never"
)

func ParseSnapshotPolicy(s string) (SnapshotPolicy, error) {
	switch p := SnapshotPolicy(s); p {
	case SnapshotAlways, SnapshotYearEnd, SnapshotNever:
		return p, nil
	default:
		return "", fmt.Errorf("unknown snapshot policy %q", s)
	}
}

// Dated reports whether a run over p that ended at end also writes the
// stamped copies. Partial runs never do.
func (sp SnapshotPolicy) Dated(isLatestRun bool, p period.Period, end time.Time) bool {
	if !isLatestRun {
		return false
	}
	switch sp {
	case SnapshotAlways:
		return true
	case SnapshotYearEnd:
		return period.OfYear(p.Start).Over(end)
	default:
		return false
	}
}
