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

// Package period names the unit of work of one pipeline run: a calendar day
// or a calendar year, anchored in the configured time zone.
package period

import (
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"
)

type Kind string

const (
	Day  Kind = "day"
	Year Kind = "year"
)

const (
	dayLayout  = "2006_01_02"
	yearLayout = "2006"
	// DateLayout formats statistic keys.
	DateLayout = "2006-01-02"
)

// Period is a day or a year. Start is midnight in the period's location.
type Period struct {
	Kind  Kind
	Start time.Time
}

// OfDay returns the day containing t, in t's location.
func OfDay(t time.Time) Period {
	y, m, d := t.Date()
	return Period{Kind: Day, Start: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// OfYear returns the year containing t, in t's location.
func OfYear(t time.Time) Period {
	return Period{Kind: Year, Start: time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())}
}

// Parse reads "2020_07_12" for days and "2020" for years.
func Parse(kind Kind, s string, loc *time.Location) (Period, error) {
	switch kind {
	case Day:
		t, err := time.ParseInLocation(dayLayout, s, loc)
		if err != nil {
			return Period{}, fmt.Errorf("invalid day %q, want YYYY_MM_DD: %w", s, err)
		}
		return OfDay(t), nil
	case Year:
		if _, err := strconv.Atoi(s); err != nil || len(s) != 4 {
			return Period{}, fmt.Errorf("invalid year %q, want YYYY", s)
		}
		t, err := time.ParseInLocation(yearLayout, s, loc)
		if err != nil {
			return Period{}, fmt.Errorf("invalid year %q: %w", s, err)
		}
		return OfYear(t), nil
	default:
		return Period{}, fmt.Errorf("unknown period kind %q", kind)
	}
}

// Default picks the period to process when none is given. Before the
// cutover hour the previous day is still collecting uploads, so it is the
// one processed.
func Default(kind Kind, now time.Time, cutoverHour int) Period {
	if kind == Year {
		return OfYear(now)
	}
	if now.Hour() < cutoverHour {
		now = now.AddDate(0, 0, -1)
	}
	return OfDay(now)
}

func (p Period) Key() string {
	if p.Kind == Year {
		return p.Start.Format(yearLayout)
	}
	return p.Start.Format(dayLayout)
}

func (p Period) String() string {
	return p.Key()
}

func (p Period) Year() int {
	return p.Start.Year()
}

// Date is the statistic key of the period's first day.
func (p Period) Date() string {
	return p.Start.Format(DateLayout)
}

// End is the first instant after the period.
func (p Period) End() time.Time {
	if p.Kind == Year {
		return p.Start.AddDate(1, 0, 0)
	}
	return p.Start.AddDate(0, 0, 1)
}

// Over reports whether the period has fully elapsed at now.
func (p Period) Over(now time.Time) bool {
	return !now.Before(p.End())
}

// LookaheadDays is how far past Start the catalog searches. A year covers
// Jan 1 plus 365 days, so Dec 31 of a leap year is included.
func (p Period) LookaheadDays() int {
	if p.Kind == Year {
		return 365
	}
	return 0
}

// Previous returns the period n units earlier.
func (p Period) Previous(n int) Period {
	if p.Kind == Year {
		return Period{Kind: Year, Start: p.Start.AddDate(-n, 0, 0)}
	}
	return Period{Kind: Day, Start: p.Start.AddDate(0, 0, -n)}
}
