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

package aggregate

import (
	"encoding/json"
	"sort"
	"time"
)

// RunMetadata is published next to every aggregate. Fields are declared in
// key order so the JSON output is sorted.
type RunMetadata struct {
	BoundingBoxLowerRight []float64  `json:"boundingBoxLowerRight,omitempty"`
	BoundingBoxUpperLeft  []float64  `json:"boundingBoxUpperLeft,omitempty"`
	Duration              string     `json:"duration,omitempty"`
	EndDate               *time.Time `json:"endDate,omitempty"`
	FlightsCount          int        `json:"flightsCount"`
	ProcessedFlightsCount int        `json:"processedFlightsCount"`
	StartDate             time.Time  `json:"startDate"`
	TargetDate            string     `json:"targetDate"`
	ThermalsCount         *int       `json:"thermalsCount,omitempty"`
}

// SetEndTime records the end of the run. Only the first call has an effect.
func (m *RunMetadata) SetEndTime(t time.Time) {
	if m.EndDate != nil {
		return
	}
	m.EndDate = &t
	m.Duration = t.Sub(m.StartDate).Round(time.Millisecond).String()
}

func (m RunMetadata) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// Statistics counts processed flights per date key.
type Statistics map[string]int

type statisticPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// MarshalJSON writes the time series as [{date, value}] sorted by date.
func (s Statistics) MarshalJSON() ([]byte, error) {
	points := make([]statisticPoint, 0, len(s))
	for k, v := range s {
		points = append(points, statisticPoint{Date: k, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return json.Marshal(points)
}

func (s *Statistics) UnmarshalJSON(data []byte) error {
	var points []statisticPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	out := make(Statistics, len(points))
	for _, p := range points {
		out[p.Date] += p.Value
	}
	*s = out
	return nil
}

func (s Statistics) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}
