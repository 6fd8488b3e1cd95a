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

package filestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cardinalhq/tracemap/internal/cloudstorage"
	"github.com/cardinalhq/tracemap/internal/storageprofile"
)

// Kind selects the backend of a Location.
type Kind string

const (
	KindLocal  Kind = "local"
	KindFTP    Kind = "ftp"
	KindBucket Kind = "bucket"
)

// Location names a directory on some backend.
type Location struct {
	Kind Kind `mapstructure:"kind"`
	// Root is a filesystem path for local, a remote directory for ftp and
	// a key prefix for bucket.
	Root string `mapstructure:"root"`
	// Profile names the storage profile used by bucket locations.
	Profile string `mapstructure:"profile"`
}

func (l Location) String() string {
	if l.Kind == KindBucket {
		return fmt.Sprintf("%s:%s/%s", l.Kind, l.Profile, l.Root)
	}
	return fmt.Sprintf("%s:%s", l.Kind, l.Root)
}

var ErrUnknownKind = errors.New("unknown location kind")

// Opener turns Locations into Stores.
type Opener struct {
	Profiles storageprofile.StorageProfileProvider
	Clients  cloudstorage.ClientProvider
	FTP      FTPCredentials
	Timeout  time.Duration
}

func (o Opener) Open(ctx context.Context, loc Location) (Store, error) {
	switch loc.Kind {
	case KindLocal:
		if loc.Root == "" {
			return nil, errors.New("local location needs a root directory")
		}
		return NewLocalStore(loc.Root), nil
	case KindFTP:
		if o.FTP.Server == "" {
			return nil, errors.New("ftp location needs a server name")
		}
		return NewFTPStore(o.FTP, loc.Root, o.Timeout), nil
	case KindBucket:
		if o.Profiles == nil || o.Clients == nil {
			return nil, errors.New("bucket location needs storage profiles")
		}
		profile, err := o.Profiles.GetStorageProfile(ctx, loc.Profile)
		if err != nil {
			return nil, err
		}
		client, err := o.Clients.NewClient(ctx, profile)
		if err != nil {
			return nil, err
		}
		return NewBucketStore(client, schemeFor(profile.CloudProvider), profile.Bucket, loc.Root), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, loc.Kind)
	}
}

func schemeFor(provider string) string {
	switch provider {
	case "gcp":
		return "gs"
	case "azure":
		return "azblob"
	default:
		return "s3"
	}
}

// ParseLocation reads the compact form "kind:root". Bucket locations name
// their profile first: "bucket:profile/prefix".
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	kind, rest, _ := strings.Cut(s, ":")
	loc := Location{Kind: Kind(strings.ToLower(kind))}
	switch loc.Kind {
	case KindLocal, KindFTP:
		loc.Root = rest
	case KindBucket:
		loc.Profile, loc.Root, _ = strings.Cut(rest, "/")
		if loc.Profile == "" {
			return Location{}, fmt.Errorf("bucket location %q names no storage profile", s)
		}
	default:
		return Location{}, fmt.Errorf("%w %q in %q", ErrUnknownKind, kind, s)
	}
	return loc, nil
}
