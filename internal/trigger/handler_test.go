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

package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/tracemap/internal/period"
	"github.com/cardinalhq/tracemap/internal/pipeline"
)

type call struct {
	target period.Period
	days   int
}

type fakeRunner struct {
	calls   []call
	status  pipeline.Status
	started chan struct{}
	block   chan struct{}
}

func (f *fakeRunner) CatchUp(_ context.Context, target period.Period, days int, _ pipeline.Options) []pipeline.Summary {
	f.calls = append(f.calls, call{target, days})
	if f.block != nil {
		close(f.started)
		<-f.block
	}
	out := make([]pipeline.Summary, 0, days+1)
	for i := days; i >= 0; i-- {
		out = append(out, pipeline.Summary{Period: target.Previous(i).Key(), Status: f.status, Message: pipeline.NoUpdateNeeded})
	}
	return out
}

func newTestHandler(r *fakeRunner) *Handler {
	resolve := func(_ context.Context, name string) (pipeline.Product, Runner, error) {
		if name == "" {
			name = pipeline.DailyTracks.Name
		}
		p, err := pipeline.LookupProduct(name)
		if err != nil {
			return pipeline.Product{}, nil, err
		}
		return p, r, nil
	}
	target := func(p pipeline.Product, s string, now time.Time) (period.Period, error) {
		if s == "" {
			return period.Default(p.Kind, now, 17), nil
		}
		t, err := period.Parse(p.Kind, s, time.UTC)
		if err != nil {
			return period.Period{}, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
		}
		return t, nil
	}
	now := time.Date(2020, 7, 12, 9, 0, 0, 0, time.UTC)
	return New(resolve, target, WithClock(func() time.Time { return now }), WithMaxCatchUpDays(30))
}

func get(h http.Handler, url string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	return rr
}

func TestServeHTTP_Defaults(t *testing.T) {
	r := &fakeRunner{status: pipeline.StatusUpToDate}
	rr := get(newTestHandler(r), "/run")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.NoUpdateNeeded, resp.Message)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "2020_07_11", r.calls[0].target.Key(), "before the cutover yesterday is processed")
	assert.Zero(t, r.calls[0].days)
}

func TestServeHTTP_CatchUp(t *testing.T) {
	r := &fakeRunner{status: pipeline.StatusPublished}
	rr := get(newTestHandler(r), "/run?targetDate=2020_07_01&catchUpDays=3&product=heatmap")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Summaries, 4)
	assert.Equal(t, "4 periods processed", resp.Message)
	assert.Equal(t, "2020_06_28", resp.Summaries[0].Period)
	assert.Equal(t, call{target: r.calls[0].target, days: 3}, r.calls[0])
}

func TestServeHTTP_Failure(t *testing.T) {
	r := &fakeRunner{status: pipeline.StatusPartial}
	rr := get(newTestHandler(r), "/run?targetDate=2020_07_01")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestServeHTTP_BadRequests(t *testing.T) {
	for _, url := range []string{
		"/run?catchUpDays=-1",
		"/run?catchUpDays=many",
		"/run?catchUpDays=31",
		"/run?product=monthly",
		"/run?targetDate=2020-07-01",
	} {
		t.Run(url, func(t *testing.T) {
			r := &fakeRunner{}
			rr := get(newTestHandler(r), url)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, r.calls)
		})
	}
}

func TestServeHTTP_ResolverError(t *testing.T) {
	h := New(func(context.Context, string) (pipeline.Product, Runner, error) {
		return pipeline.Product{}, nil, errors.New("ledger unreachable")
	}, nil)
	rr := get(h, "/run")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "ledger unreachable")
}

func TestServeHTTP_OneRunAtATime(t *testing.T) {
	r := &fakeRunner{status: pipeline.StatusPublished, started: make(chan struct{}), block: make(chan struct{})}
	h := newTestHandler(r)

	done := make(chan int)
	go func() { done <- get(h, "/run").Code }()

	<-r.started
	assert.Equal(t, http.StatusConflict, get(h, "/run").Code)

	close(r.block)
	assert.Equal(t, http.StatusOK, <-done)
}
