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

// Package trigger exposes pipeline runs over HTTP.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cardinalhq/tracemap/internal/logctx"
	"github.com/cardinalhq/tracemap/internal/period"
	"github.com/cardinalhq/tracemap/internal/pipeline"
)

// Runner is the part of pipeline.Runner the handler drives.
type Runner interface {
	CatchUp(ctx context.Context, target period.Period, days int, opts pipeline.Options) []pipeline.Summary
}

// Resolver returns the product and runner for a product name. An empty
// name selects the default product.
type Resolver func(ctx context.Context, name string) (pipeline.Product, Runner, error)

// TargetFunc picks the period for a product from the targetDate parameter,
// which may be empty.
type TargetFunc func(p pipeline.Product, s string, now time.Time) (period.Period, error)

type Handler struct {
	resolve Resolver
	target  TargetFunc
	now     func() time.Time
	maxDays int

	// busy admits one run at a time per process.
	busy sync.Mutex
}

type Option func(*Handler)

// WithMaxCatchUpDays bounds the catchUpDays parameter.
func WithMaxCatchUpDays(n int) Option {
	return func(h *Handler) { h.maxDays = n }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func New(resolve Resolver, target TargetFunc, opts ...Option) *Handler {
	h := &Handler{
		resolve: resolve,
		target:  target,
		now:     time.Now,
		maxDays: 366,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type Response struct {
	// Message is the single summary's message, or a count for catch-up runs.
	Message   string             `json:"message"`
	Summaries []pipeline.Summary `json:"summaries"`
}

// ServeHTTP handles GET /run?targetDate=YYYY_MM_DD&catchUpDays=N&product=name.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	days := 0
	if s := q.Get("catchUpDays"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > h.maxDays {
			http.Error(w, "catchUpDays must be an integer between 0 and "+strconv.Itoa(h.maxDays), http.StatusBadRequest)
			return
		}
		days = n
	}

	product, runner, err := h.resolve(r.Context(), q.Get("product"))
	if err != nil {
		writeError(w, err)
		return
	}
	target, err := h.target(product, q.Get("targetDate"), h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	if !h.busy.TryLock() {
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}
	defer h.busy.Unlock()

	ctx, ll := logctx.With(r.Context(), slog.String("trigger", "http"))
	ll.Info("Triggered", slog.String("product", product.Name), slog.String("target", target.Key()), slog.Int("catchUpDays", days))

	sums := runner.CatchUp(ctx, target, days, pipeline.Options{})
	resp := Response{Summaries: sums}
	if len(sums) == 1 {
		resp.Message = sums[0].Message
	} else {
		resp.Message = strconv.Itoa(len(sums)) + " periods processed"
	}

	code := http.StatusOK
	if pipeline.AnyFailed(sums) {
		code = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		ll.Error("Failed to encode trigger response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrConfiguration) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Error("Trigger failed", slog.Any("error", err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
