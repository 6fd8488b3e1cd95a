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

// Package igc reads IGC flight recorder files, plain or zipped, into
// flight.Flight values. Only what the aggregation needs is decoded: B-record
// fixes, the flight date and the identifying H records.
package igc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/cardinalhq/tracemap/internal/flight"
)

// MinFixes is the fewest B records a valid recording has.
const MinFixes = 2

type Parser struct{}

var _ flight.Parser = Parser{}

// ErrUnreadableArchive is returned for zip files that hold no readable entry.
var ErrUnreadableArchive = errors.New("unreadable track archive")

// Parse fails only for archives it cannot open. Malformed IGC text gives an
// invalid flight instead.
func (Parser) Parse(name string, raw []byte) (flight.Flight, error) {
	if isZip(raw) {
		inner, err := unzipTrack(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrUnreadableArchive, err)
		}
		raw = inner
	}
	return Decode(bytes.NewReader(raw)), nil
}

func isZip(raw []byte) bool {
	return len(raw) >= 4 && bytes.Equal(raw[:4], []byte("PK\x03\x04"))
}

// unzipTrack returns the first .igc entry, or the first entry at all.
func unzipTrack(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, errors.New("empty archive")
	}
	entry := zr.File[0]
	for _, f := range zr.File {
		if strings.EqualFold(path.Ext(f.Name), ".igc") {
			entry = f
			break
		}
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// Decode reads IGC text. Unknown records are ignored.
func Decode(r io.Reader) flight.Flight {
	rec := &flight.Record{}
	var clocks []time.Duration

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r ")
		if line == "" {
			continue
		}
		switch line[0] {
		case 'H':
			parseHeader(rec, line)
		case 'B':
			clock, fix, ok := parseB(line)
			if ok {
				clocks = append(clocks, clock)
				rec.Points = append(rec.Points, fix)
			}
		}
	}
	if sc.Err() != nil {
		return flight.Invalid()
	}

	stampFixes(rec, clocks)
	rec.IsValid = !rec.FlightDate.IsZero() && len(rec.Points) >= MinFixes && rec.Duration > 0
	return rec
}

// stampFixes turns time-of-day clocks into timestamps on the flight date,
// rolling over midnight when the clock goes backwards.
func stampFixes(rec *flight.Record, clocks []time.Duration) {
	if len(clocks) == 0 {
		return
	}
	day := rec.FlightDate
	if day.IsZero() {
		day = time.Unix(0, 0).UTC()
	}
	var offset time.Duration
	for i := range rec.Points {
		if i > 0 && clocks[i] < clocks[i-1] {
			offset += 24 * time.Hour
		}
		rec.Points[i].Timestamp = day.Add(offset + clocks[i])
	}
	first, last := rec.Points[0].Timestamp, rec.Points[len(rec.Points)-1].Timestamp
	rec.Duration = last.Sub(first).Seconds()
}

func parseHeader(rec *flight.Record, line string) {
	if len(line) < 5 {
		return
	}
	code := line[2:5]
	value := ""
	if i := strings.IndexByte(line, ':'); i >= 0 {
		value = strings.TrimSpace(line[i+1:])
	}
	switch code {
	case "DTE":
		rec.FlightDate = parseDate(line[5:])
	case "PLT":
		rec.Meta.Pilot = value
	case "GTY":
		rec.Meta.GliderType = value
	case "GID":
		rec.Meta.GliderID = value
	case "FTY":
		rec.Meta.RecorderType = value
	}
}

// parseDate accepts both "HFDTE120720" and "HFDTEDATE:120720,01".
func parseDate(s string) time.Time {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return time.Time{}
	}
	d, err := time.Parse("020106", s[:6])
	if err != nil {
		return time.Time{}
	}
	return d.UTC()
}

// parseB decodes "BHHMMSSDDMMmmmNDDDMMmmmEVPPPPPGGGGG".
func parseB(line string) (time.Duration, flight.Fix, bool) {
	if len(line) < 35 {
		return 0, flight.Fix{}, false
	}
	hh, err1 := strconv.Atoi(line[1:3])
	mm, err2 := strconv.Atoi(line[3:5])
	ss, err3 := strconv.Atoi(line[5:7])
	if err1 != nil || err2 != nil || err3 != nil || hh > 23 || mm > 59 || ss > 59 {
		return 0, flight.Fix{}, false
	}
	clock := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second

	lat, ok := parseCoord(line[7:9], line[9:14], line[14])
	if !ok {
		return 0, flight.Fix{}, false
	}
	lon, ok := parseCoord(line[15:18], line[18:23], line[23])
	if !ok {
		return 0, flight.Fix{}, false
	}

	pressAlt, _ := strconv.Atoi(strings.TrimSpace(line[25:30]))
	gpsAlt, _ := strconv.Atoi(strings.TrimSpace(line[30:35]))
	alt := gpsAlt
	if alt == 0 {
		alt = pressAlt
	}

	return clock, flight.Fix{Lat: lat, Lon: lon, Altitude: float64(alt), PressureAltitude: float64(pressAlt)}, true
}

// parseCoord converts degrees and thousandths of minutes to decimal degrees.
func parseCoord(deg, minutes string, hemi byte) (float64, bool) {
	d, err := strconv.Atoi(deg)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, false
	}
	v := float64(d) + float64(m)/1000/60
	switch hemi {
	case 'N', 'E':
		return v, true
	case 'S', 'W':
		return -v, true
	default:
		return 0, false
	}
}
