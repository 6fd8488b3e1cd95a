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
	"context"
	"log/slog"
	"os"
)

// StorageProfile describes how to reach one bucket or container.
type StorageProfile struct {
	Name           string `json:"name" yaml:"name"`
	CloudProvider  string `json:"cloud_provider" yaml:"cloud_provider"`
	Region         string `json:"region,omitempty" yaml:"region,omitempty"`
	Role           string `json:"role,omitempty" yaml:"role,omitempty"`
	Bucket         string `json:"bucket" yaml:"bucket"`
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	StorageAccount string `json:"storage_account,omitempty" yaml:"storage_account,omitempty"`
	InsecureTLS    bool   `json:"insecure_tls,omitempty" yaml:"insecure_tls,omitempty"`
	UsePathStyle   bool   `json:"use_path_style,omitempty" yaml:"use_path_style,omitempty"`
}

type StorageProfileProvider interface {
	GetStorageProfile(ctx context.Context, name string) (StorageProfile, error)
	ListStorageProfiles(ctx context.Context) ([]StorageProfile, error)
}

const defaultProfilePath = "/app/config/storage_profiles.yaml"

// SetupStorageProfiles loads profiles from STORAGE_PROFILE_FILE, falling back to
// the default path. A missing default file yields an empty provider so that
// deployments using only FTP or local destinations need no profile file.
func SetupStorageProfiles() (StorageProfileProvider, error) {
	storagePath := os.Getenv("STORAGE_PROFILE_FILE")
	if storagePath == "" {
		if _, err := os.Stat(defaultProfilePath); os.IsNotExist(err) {
			slog.Info("No storage profile file found, bucket access disabled", slog.String("path", defaultProfilePath))
			return &fileProvider{}, nil
		}
		storagePath = defaultProfilePath
	}
	slog.Info("Using file storage profile provider", slog.String("path", storagePath))
	return NewFileProvider(storagePath)
}
