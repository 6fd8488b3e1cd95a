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

package storageprofile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileProvider struct {
	profiles []StorageProfile
}

var _ StorageProfileProvider = (*fileProvider)(nil)

// NewFileProvider reads a YAML list of profiles. A filename of the form
// "env:VAR" reads the YAML from the named environment variable instead.
func NewFileProvider(filename string) (StorageProfileProvider, error) {
	if after, ok := strings.CutPrefix(filename, "env:"); ok {
		envVar := after
		contents := os.Getenv(envVar)
		if contents == "" {
			return nil, fmt.Errorf("environment variable %s is not set", envVar)
		}
		return newFileProviderFromContents(filename, []byte(contents))
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage profiles from file %s: %w", filename, err)
	}

	return newFileProviderFromContents(filename, contents)
}

func newFileProviderFromContents(filename string, contents []byte) (StorageProfileProvider, error) {
	var profiles []StorageProfile

	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storage profiles from file %s: %w", filename, err)
	}

	seen := make(map[string]struct{}, len(profiles))
	for i, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("storage profile %d in %s has no name", i, filename)
		}
		if p.Bucket == "" {
			return nil, fmt.Errorf("storage profile %s in %s has no bucket", p.Name, filename)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate storage profile %s in %s", p.Name, filename)
		}
		seen[p.Name] = struct{}{}
	}

	return &fileProvider{profiles: profiles}, nil
}

func (p *fileProvider) GetStorageProfile(_ context.Context, name string) (StorageProfile, error) {
	for _, profile := range p.profiles {
		if profile.Name == name {
			return profile, nil
		}
	}
	return StorageProfile{}, fmt.Errorf("storage profile %s not found", name)
}

func (p *fileProvider) ListStorageProfiles(_ context.Context) ([]StorageProfile, error) {
	out := make([]StorageProfile, len(p.profiles))
	copy(out, p.profiles)
	return out, nil
}
