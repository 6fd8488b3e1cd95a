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

package healthcheck

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusStarting, "starting"},
		{StatusHealthy, "healthy"},
		{StatusUnhealthy, "unhealthy"},
		{Status(999), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestNewServer_DefaultPort(t *testing.T) {
	assert.Equal(t, defaultPort, NewServer(Config{}).port)
	assert.Equal(t, 9090, NewServer(Config{Port: 9090}).port)
}

func probe(t *testing.T, s *Server, path string) (int, bool) {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp.Healthy
}

func TestProbes(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		endpoint string
		code     int
		healthy  bool
	}{
		{"healthz starting", StatusStarting, "/healthz", http.StatusServiceUnavailable, false},
		{"healthz healthy", StatusHealthy, "/healthz", http.StatusOK, true},
		{"healthz unhealthy", StatusUnhealthy, "/healthz", http.StatusServiceUnavailable, false},
		{"readyz starting", StatusStarting, "/readyz", http.StatusServiceUnavailable, false},
		{"readyz healthy", StatusHealthy, "/readyz", http.StatusOK, true},
		{"livez starting", StatusStarting, "/livez", http.StatusOK, true},
		{"livez unhealthy", StatusUnhealthy, "/livez", http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Config{})
			s.SetStatus(tt.status)
			code, healthy := probe(t, s, tt.endpoint)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.healthy, healthy)
		})
	}
}

func TestReadyConditions(t *testing.T) {
	s := NewServer(Config{})
	s.SetStatus(StatusHealthy)
	s.SetReadyCondition("ledger", false)
	assert.False(t, s.IsReady())

	code, _ := probe(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	s.SetReadyCondition("ledger", true)
	assert.True(t, s.IsReady())
}

func TestHandleMountsExtraRoutes(t *testing.T) {
	s := NewServer(Config{})
	s.Handle("GET /run", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/run", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}
