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

// Package flight describes what the aggregation pipeline needs to know about
// one recorded flight. Decoding recorder files is the job of a Parser.
package flight

import "time"

// Fix is one timestamped GPS sample. Altitude is the GPS altitude when the
// recorder has one, else the pressure altitude.
type Fix struct {
	Lat              float64
	Lon              float64
	Altitude         float64
	PressureAltitude float64
	Timestamp        time.Time
}

// Thermal is a climbing segment detected by the parser.
type Thermal struct {
	Entry Fix
	Exit  Fix
}

// Vario is the mean climb rate in metres per second.
func (t Thermal) Vario() float64 {
	secs := t.Exit.Timestamp.Sub(t.Entry.Timestamp).Seconds()
	if secs <= 0 {
		return 0
	}
	return (t.Exit.Altitude - t.Entry.Altitude) / secs
}

// Glide is a gliding segment detected by the parser.
type Glide struct {
	Entry Fix
	Exit  Fix
}

// Header carries the identifying fields of a recording.
type Header struct {
	Pilot        string
	GliderType   string
	GliderID     string
	RecorderType string
}

type Flight interface {
	// Valid is false when the recording could not be decoded or failed the
	// parser's own sanity checks.
	Valid() bool
	DurationSeconds() float64
	// Date is the flight date when the recording declares one.
	Date() (time.Time, bool)
	Fixes() []Fix
	Thermals() []Thermal
	Glides() []Glide
	Header() Header
}

// Parser decodes raw recorder bytes. Malformed input yields a Flight whose
// Valid reports false; the error return is kept for I/O failures only.
type Parser interface {
	Parse(name string, raw []byte) (Flight, error)
}

// Record is a plain Flight value. Parsers and tests build flights with it.
type Record struct {
	IsValid     bool
	Duration    float64
	FlightDate  time.Time
	Points      []Fix
	ThermalList []Thermal
	GlideList   []Glide
	Meta        Header
}

var _ Flight = (*Record)(nil)

func (r *Record) Valid() bool              { return r.IsValid }
func (r *Record) DurationSeconds() float64 { return r.Duration }
func (r *Record) Fixes() []Fix             { return r.Points }
func (r *Record) Thermals() []Thermal      { return r.ThermalList }
func (r *Record) Glides() []Glide          { return r.GlideList }
func (r *Record) Header() Header           { return r.Meta }

func (r *Record) Date() (time.Time, bool) {
	return r.FlightDate, !r.FlightDate.IsZero()
}

// Invalid returns a Flight that every filter rejects.
func Invalid() Flight {
	return &Record{}
}
