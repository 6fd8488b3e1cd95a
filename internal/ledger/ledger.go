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

// Package ledger remembers, per product and period, the fingerprint of the
// last file set that was published successfully.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cardinalhq/tracemap/internal/fingerprint"
	"github.com/cardinalhq/tracemap/internal/kvstore"
	"github.com/cardinalhq/tracemap/internal/period"
)

const (
	processedPrefix  = "processedDays."
	statisticsPrefix = "statistics."
)

// DocKey names the document holding one product's year.
func DocKey(year int, product string) string {
	return fmt.Sprintf("%d_%s", year, product)
}

type Ledger struct {
	kv      kvstore.Store
	product string
}

func New(kv kvstore.Store, product string) *Ledger {
	return &Ledger{kv: kv, product: product}
}

// LastFingerprint returns fingerprint.None when p was never recorded.
func (l *Ledger) LastFingerprint(ctx context.Context, p period.Period) (fingerprint.Fingerprint, error) {
	v, ok, err := l.kv.Get(ctx, DocKey(p.Year(), l.product), processedPrefix+p.Key())
	if err != nil {
		return fingerprint.None, fmt.Errorf("read ledger for %s: %w", p.Key(), err)
	}
	if !ok {
		return fingerprint.None, nil
	}
	return fingerprint.Fingerprint(v), nil
}

// SetFingerprint records fp for p.
func (l *Ledger) SetFingerprint(ctx context.Context, p period.Period, fp fingerprint.Fingerprint) error {
	return l.update(ctx, p, map[string]string{processedPrefix + p.Key(): string(fp)}, fp)
}

// Commit records fp and the processed flight count for p in one update.
func (l *Ledger) Commit(ctx context.Context, p period.Period, fp fingerprint.Fingerprint, processed int) error {
	return l.update(ctx, p, map[string]string{
		processedPrefix + p.Key():  string(fp),
		statisticsPrefix + p.Key(): strconv.Itoa(processed),
	}, fp)
}

func (l *Ledger) update(ctx context.Context, p period.Period, fields map[string]string, fp fingerprint.Fingerprint) error {
	if fp.IsNone() {
		return fmt.Errorf("refusing to record an empty fingerprint for %s", p.Key())
	}
	if err := l.kv.Update(ctx, DocKey(p.Year(), l.product), fields); err != nil {
		return fmt.Errorf("write ledger for %s: %w", p.Key(), err)
	}
	return nil
}

// Entry is one recorded period.
type Entry struct {
	Period      string                  `json:"period"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Processed   *int                    `json:"processed,omitempty"`
}

// Entries lists the periods recorded for year, sorted by period.
func (l *Ledger) Entries(ctx context.Context, year int) ([]Entry, error) {
	fields, err := l.kv.Fields(ctx, DocKey(year, l.product))
	if err != nil {
		return nil, fmt.Errorf("read ledger for %d: %w", year, err)
	}

	byPeriod := map[string]*Entry{}
	get := func(key string) *Entry {
		e, ok := byPeriod[key]
		if !ok {
			e = &Entry{Period: key}
			byPeriod[key] = e
		}
		return e
	}
	for field, value := range fields {
		switch {
		case strings.HasPrefix(field, processedPrefix):
			get(strings.TrimPrefix(field, processedPrefix)).Fingerprint = fingerprint.Fingerprint(value)
		case strings.HasPrefix(field, statisticsPrefix):
			if n, err := strconv.Atoi(value); err == nil {
				get(strings.TrimPrefix(field, statisticsPrefix)).Processed = &n
			}
		}
	}

	out := make([]Entry, 0, len(byPeriod))
	for _, e := range byPeriod {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}
