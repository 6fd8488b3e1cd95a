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

package cloudstorage

import (
	"context"
	"fmt"
	"sync"

	"github.com/cardinalhq/tracemap/internal/awsclient"
	"github.com/cardinalhq/tracemap/internal/azureclient"
	"github.com/cardinalhq/tracemap/internal/gcpclient"
	"github.com/cardinalhq/tracemap/internal/storageprofile"
)

// CloudManagers holds the per-provider managers. Each manager is created on
// first use so that a deployment writing only to S3 never needs Azure or GCP
// credentials.
type CloudManagers struct {
	mu    sync.Mutex
	aws   *awsclient.Manager
	gcp   *gcpclient.Manager
	azure *azureclient.Manager
}

var _ ClientProvider = (*CloudManagers)(nil)

func NewCloudManagers() *CloudManagers {
	return &CloudManagers{}
}

// NewClient creates a storage Client for the given profile.
func (m *CloudManagers) NewClient(ctx context.Context, profile storageprofile.StorageProfile) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch profile.CloudProvider {
	case "aws", "s3", "":
		if m.aws == nil {
			mgr, err := awsclient.NewManager(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to create AWS manager: %w", err)
			}
			m.aws = mgr
		}
		c, err := m.aws.GetS3ForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return &s3Client{awsS3Client: c}, nil
	case "gcp":
		if m.gcp == nil {
			mgr, err := gcpclient.NewManager(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to create GCP manager: %w", err)
			}
			m.gcp = mgr
		}
		c, err := m.gcp.GetStorageForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		return &gcsClient{storageClient: c}, nil
	case "azure":
		if m.azure == nil {
			mgr, err := azureclient.NewManager(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to create Azure manager: %w", err)
			}
			m.azure = mgr
		}
		c, err := m.azure.GetBlobForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
		}
		return &azureClient{blobClient: c}, nil
	default:
		return nil, fmt.Errorf("unsupported cloud provider: %s", profile.CloudProvider)
	}
}

// Close releases provider clients that hold connections.
func (m *CloudManagers) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gcp != nil {
		return m.gcp.Close()
	}
	return nil
}
