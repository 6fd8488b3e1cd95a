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

package idgen

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sony/sonyflake"
)

// DefaultFlakeGenerator is created on first use so importing this package
// never fails on hosts without a private IPv4 address.
var DefaultFlakeGenerator = sync.OnceValues(NewFlakeGenerator)

type SonyFlakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewFlakeGenerator derives the machine id from the private IPv4 address,
// falling back to a hash of the hostname when there is none.
func NewFlakeGenerator() (*SonyFlakeGenerator, error) {
	return newFlakeGenerator(nil)
}

func newFlakeGenerator(machineID func() (uint16, error)) (*SonyFlakeGenerator, error) {
	settings := sonyflake.Settings{
		StartTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: machineID,
	}

	sf, err := sonyflake.New(settings)
	if err != nil {
		settings.MachineID = hostMachineID
		if sf, err = sonyflake.New(settings); err != nil {
			return nil, err
		}
	}
	if sf == nil {
		return nil, errors.New("failed to create Sonyflake instance")
	}
	return &SonyFlakeGenerator{sf: sf}, nil
}

func hostMachineID() (uint16, error) {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return uint16(os.Getpid()), nil
	}
	return uint16(xxhash.Sum64String(name)), nil
}

// NextID returns a positive int64 that'll increase roughly in time order.
func (sf *SonyFlakeGenerator) NextID() int64 {
	v, err := sf.sf.NextID()
	if err != nil {
		return rand.Int64()
	}
	return int64(v)
}

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// NextBase32ID is NextID as a short lowercase string, used to tell process
// instances apart in logs.
func (sf *SonyFlakeGenerator) NextBase32ID() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(sf.NextID()))
	return strings.ToLower(b32.EncodeToString(buf[:]))
}

// NextBase32ID uses the default generator, or random bits when it could
// not be created.
func NextBase32ID() string {
	gen, err := DefaultFlakeGenerator()
	if err != nil {
		return strings.ToLower(b32.EncodeToString(binary.BigEndian.AppendUint64(nil, rand.Uint64())))
	}
	return gen.NextBase32ID()
}
