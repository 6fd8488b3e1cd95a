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

package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// FormatVersion prefixes every fingerprint so a change to the encoding
// below never compares equal to values written by an older build.
const FormatVersion = "v1"

// Fingerprint identifies the set of source file names seen for a period.
// The zero value is None.
type Fingerprint string

// None is returned for an empty or absent file set. It is never the digest
// of an empty set, so "nothing to process" stays distinct from "never processed".
const None Fingerprint = ""

func (f Fingerprint) IsNone() bool {
	return f == None
}

func (f Fingerprint) String() string {
	if f.IsNone() {
		return "<none>"
	}
	return string(f)
}

// Version returns the format version of f, or "" for None or unversioned values.
func (f Fingerprint) Version() string {
	v, _, ok := strings.Cut(string(f), ":")
	if !ok {
		return ""
	}
	return v
}

// Compute returns the fingerprint of a set of file identifiers.
// Order and duplicates do not matter.
func Compute(ids []string) Fingerprint {
	if len(ids) == 0 {
		return None
	}

	sorted := mapset.NewThreadUnsafeSet(ids...).ToSlice()
	slices.Sort(sorted)

	return Fingerprint(FormatVersion + ":" + hex.EncodeToString(digest(sorted)))
}

// digest hashes the length-prefixed identifiers, so ["ab","c"] and ["a","bc"]
// cannot collide.
func digest(sorted []string) []byte {
	h := sha256.New()
	_, _ = h.Write([]byte(FormatVersion))

	var lenbuf [binary.MaxVarintLen64]byte
	for _, id := range sorted {
		n := binary.PutUvarint(lenbuf[:], uint64(len(id)))
		_, _ = h.Write(lenbuf[:n])
		_, _ = h.Write([]byte(id))
	}
	return h.Sum(nil)
}
