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

// Package catalog enumerates the recorder files uploaded for a period.
package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/tracemap/internal/filestore"
	"github.com/cardinalhq/tracemap/internal/logctx"
	"github.com/cardinalhq/tracemap/internal/period"
)

type Layout string

const (
	// LayoutModTime keeps every upload in one directory and dates files by
	// their modification time.
	LayoutModTime Layout = "modtime"
	// LayoutPrefix files uploads under a YYYY_MM_DD/ directory per day.
	LayoutPrefix Layout = "prefix"
)

type Config struct {
	Layout   Layout   `mapstructure:"layout"`
	Dir      string   `mapstructure:"dir"`
	Suffixes []string `mapstructure:"suffixes"`
}

var DefaultSuffixes = []string{".zip", ".igc"}

// SourceFile is one candidate upload.
type SourceFile struct {
	Name    string
	ModTime time.Time
	// Day is the YYYY_MM_DD the file was attributed to.
	Day string
}

type Catalog struct {
	store    filestore.Store
	layout   Layout
	dir      string
	suffixes mapset.Set[string]
	loc      *time.Location
}

func New(store filestore.Store, cfg Config, loc *time.Location) (*Catalog, error) {
	layout := cfg.Layout
	if layout == "" {
		layout = LayoutModTime
	}
	if layout != LayoutModTime && layout != LayoutPrefix {
		return nil, fmt.Errorf("unknown source layout %q", cfg.Layout)
	}
	suffixes := cfg.Suffixes
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	set := mapset.NewThreadUnsafeSet[string]()
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		set.Add(s)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Catalog{
		store:    store,
		layout:   layout,
		dir:      strings.Trim(cfg.Dir, "/"),
		suffixes: set,
		loc:      loc,
	}, nil
}

// Window is an inclusive range of calendar days.
type Window struct {
	First time.Time
	Last  time.Time
}

// WindowFor spans from p's first day to relDays after it, in either direction.
func WindowFor(p period.Period, relDays int) Window {
	start := p.Start
	lookup := start.AddDate(0, 0, relDays)
	if lookup.Before(start) {
		return Window{First: lookup, Last: start}
	}
	return Window{First: start, Last: lookup}
}

// Contains compares calendar dates in the window's location.
func (w Window) Contains(t time.Time) bool {
	d := dayOf(t.In(w.First.Location()))
	return !d.Before(dayOf(w.First)) && !d.After(dayOf(w.Last))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ListFiles returns the uploads for p whose date falls within relDays of
// its start. Order is unspecified. A listing failure is returned as an error;
// an empty result is not one.
func (c *Catalog) ListFiles(ctx context.Context, p period.Period, relDays int) ([]SourceFile, error) {
	w := WindowFor(p, relDays)
	w.First = w.First.In(c.loc)
	w.Last = w.Last.In(c.loc)

	var (
		files []SourceFile
		err   error
	)
	switch c.layout {
	case LayoutPrefix:
		files, err = c.listByPrefix(ctx, w)
	default:
		files, err = c.listByModTime(ctx, w)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.store.Name(), err)
	}

	logctx.FromContext(ctx).Debug("Listed source files",
		"store", c.store.Name(),
		"layout", c.layout,
		"first", w.First.Format(period.DateLayout),
		"last", w.Last.Format(period.DateLayout),
		"count", len(files))
	return files, nil
}

func (c *Catalog) listByModTime(ctx context.Context, w Window) ([]SourceFile, error) {
	entries, err := c.store.List(ctx, c.dir)
	if err != nil {
		return nil, err
	}
	var out []SourceFile
	for _, e := range entries {
		if !c.matches(e.Name) || !w.Contains(e.ModTime) {
			continue
		}
		out = append(out, SourceFile{
			Name:    e.Name,
			ModTime: e.ModTime,
			Day:     e.ModTime.In(c.loc).Format("2006_01_02"),
		})
	}
	return out, nil
}

func (c *Catalog) listByPrefix(ctx context.Context, w Window) ([]SourceFile, error) {
	var out []SourceFile
	for d := dayOf(w.First); !d.After(dayOf(w.Last)); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day := d.Format("2006_01_02")
		entries, err := c.store.List(ctx, path.Join(c.dir, day))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !c.matches(e.Name) {
				continue
			}
			out = append(out, SourceFile{Name: e.Name, ModTime: e.ModTime, Day: day})
		}
	}
	return out, nil
}

func (c *Catalog) matches(name string) bool {
	return c.suffixes.Contains(strings.ToLower(path.Ext(name)))
}

// Names returns the file names in catalog order.
func Names(files []SourceFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
