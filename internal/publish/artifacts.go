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

// Package publish serializes an aggregate and writes it to every configured
// destination, under fixed "latest" names and, when the snapshot policy
// allows it, under period-stamped names as well.
package publish

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zip"

	"github.com/cardinalhq/tracemap/internal/aggregate"
)

// Names is the set of file names written for one run.
type Names struct {
	Collection string
	Zipped     string
	Metadata   string
	Statistics string
}

// LatestNames are the fixed names overwritten by every run.
func LatestNames(base string) Names {
	return Names{
		Collection: base + ".geojson",
		Zipped:     base + ".geojson.zip",
		Metadata:   base + "-metadata.json",
		Statistics: base + "-statistics.json",
	}
}

// DatedNames prefix the latest names with the period key.
func DatedNames(base, periodKey string) Names {
	return LatestNames(periodKey + "-" + base)
}

// Artifacts holds the serialized aggregate, independent of file names.
type Artifacts struct {
	Collection []byte
	Metadata   []byte
	Statistics []byte
}

// Encode serializes a snapshot.
func Encode(snap aggregate.Snapshot) (Artifacts, error) {
	collection, err := snap.CollectionJSON()
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode feature collection: %w", err)
	}
	metadata, err := snap.Metadata.JSON()
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode metadata: %w", err)
	}
	statistics, err := json.Marshal(snap.Statistics)
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode statistics: %w", err)
	}
	return Artifacts{Collection: collection, Metadata: metadata, Statistics: statistics}, nil
}

// Zip packs data as the single deflated entry name.
func Zip(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type file struct {
	name string
	data []byte
}

// files lays out the artifacts under names, in write order.
func (a Artifacts) files(n Names) ([]file, error) {
	zipped, err := Zip(n.Collection, a.Collection)
	if err != nil {
		return nil, fmt.Errorf("zip %s: %w", n.Collection, err)
	}
	return []file{
		{n.Collection, a.Collection},
		{n.Zipped, zipped},
		{n.Metadata, a.Metadata},
		{n.Statistics, a.Statistics},
	}, nil
}
