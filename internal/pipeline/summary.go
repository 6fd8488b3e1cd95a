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
	"encoding/json"
	"errors"

	"github.com/cardinalhq/tracemap/internal/reducer"
)

var (
	// ErrTransport is a listing, fetch or publish failure. Retrying is safe.
	ErrTransport = errors.New("transport error")
	// ErrLedger is a failure reading or writing the run ledger.
	ErrLedger = errors.New("ledger error")
	// ErrConfiguration is raised before any I/O is attempted.
	ErrConfiguration = errors.New("configuration error")
)

// NoUpdateNeeded is the message of a run skipped on an unchanged fingerprint.
const NoUpdateNeeded = "no update needed"

type Status string

const (
	StatusUpToDate  Status = "up_to_date"
	StatusPublished Status = "published"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusEmpty     Status = "empty"
	StatusLocked    Status = "locked"
	StatusDryRun    Status = "dry_run"
)

// DestinationResult reports one publication target.
type DestinationResult struct {
	Name    string   `json:"name"`
	Written []string `json:"written,omitempty"`
	Bytes   int64    `json:"bytes"`
	Error   string   `json:"error,omitempty"`
}

// Summary is the single user-visible outcome of a run.
type Summary struct {
	Product      string                 `json:"product"`
	Period       string                 `json:"period"`
	RunID        string                 `json:"runId"`
	Status       Status                 `json:"status"`
	Message      string                 `json:"message,omitempty"`
	Fingerprint  string                 `json:"fingerprint,omitempty"`
	Files        int                    `json:"files"`
	Rejected     map[reducer.Reason]int `json:"rejected,omitempty"`
	Destinations []DestinationResult    `json:"destinations,omitempty"`
	Metadata     json.RawMessage        `json:"metadata,omitempty"`

	// Err is the cause of a failed or partial run.
	Err error `json:"-"`
}

// Failed reports whether the run ended without its artifacts published
// everywhere. Up-to-date, empty, locked and dry runs are not failures.
func (s Summary) Failed() bool {
	return s.Status == StatusFailed || s.Status == StatusPartial
}
