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

package dbopen

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDatabaseURLFromEnv_URLWins(t *testing.T) {
	t.Setenv("LEDGER_DB_URL", "postgresql://example/ledger")
	t.Setenv("LEDGER_DB_HOST", "ignored")

	got, err := GetDatabaseURLFromEnv("LEDGER_DB")
	require.NoError(t, err)
	assert.Equal(t, "postgresql://example/ledger", got)
}

func TestGetDatabaseURLFromEnv_Parts(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "tracemap run/daily")
	t.Setenv("LEDGER_DB_HOST", "db.internal")
	t.Setenv("LEDGER_DB_DBNAME", "tracemap")
	t.Setenv("LEDGER_DB_USER", "runner")
	t.Setenv("LEDGER_DB_PASSWORD", "s3cret")
	t.Setenv("LEDGER_DB_SSLMODE", "require")

	got, err := GetDatabaseURLFromEnv("LEDGER_DB_")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/tracemap", u.Path)
	assert.Equal(t, "runner", u.User.Username())
	pass, _ := u.User.Password()
	assert.Equal(t, "s3cret", pass)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "tracemap_run_daily", u.Query().Get("application_name"))
}

func TestGetDatabaseURLFromEnv_Missing(t *testing.T) {
	t.Setenv("LEDGER_DB_URL", "")
	t.Setenv("LEDGER_DB_HOST", "")
	t.Setenv("LEDGER_DB_DBNAME", "")

	_, err := GetDatabaseURLFromEnv("LEDGER_DB")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDatabaseNotConfigured))
	assert.True(t, strings.Contains(err.Error(), "LEDGER_DB_HOST"))
	assert.True(t, strings.Contains(err.Error(), "LEDGER_DB_DBNAME"))
}

func TestApplicationNameTruncated(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", strings.Repeat("a", 80))
	assert.Len(t, applicationName(), 63)
}
