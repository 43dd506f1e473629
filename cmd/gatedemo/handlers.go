package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/gatekeeper/pkg/gate"
	"github.com/dmitrymomot/gatekeeper/pkg/httpserver"
	"github.com/dmitrymomot/gatekeeper/pkg/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/redis"
	"github.com/dmitrymomot/gatekeeper/pkg/requestid"
)

// reportCost is the token cost of a report build.
const reportCost = 5

func newRouter(a *api, checks ...func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Get("/health", httpserver.HealthCheckHandler(a.log))
	r.Get("/ready", httpserver.HealthCheckHandler(a.log, checks...))
	r.Route("/api", func(r chi.Router) {
		r.Use(gate.Middleware(a.policy, gate.Composite(gate.Header("X-API-Key"), gate.ClientIP)))
		r.Get("/ping", a.ping)
		r.Post("/reports/{tenant}", a.buildReport)
		r.Get("/buckets/{key}", a.bucket)
	})
	return r
}

type api struct {
	policy  *gate.Policy
	counter *redis.RejectionCounter
	log     *slog.Logger
}

type report struct {
	Tenant   string        `json:"tenant"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration_ns"`
}

func (a *api) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) buildReport(w http.ResponseWriter, r *http.Request) {
	scope := gate.Scope{
		Key:  "report:" + chi.URLParam(r, "tenant"),
		Size: reportCost,
	}

	res, err := gate.Execute(r.Context(), a.policy, scope, a.runReport)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, gate.ErrInsufficientTokens):
		gate.DefaultErrorResponder(w, r, err)
	case errors.Is(err, gate.ErrTimedOut), errors.Is(context.Cause(r.Context()), gate.ErrTimedOut):
		// Either the report's own bound or the one the middleware put on
		// the request elapsed.
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "report timed out"})
	case r.Context().Err() != nil:
		// Client went away.
	default:
		a.log.ErrorContext(r.Context(), "report failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report failed"})
	}
}

// runReport simulates a slow query that honors cancellation.
func (a *api) runReport(ctx context.Context, scope gate.Scope) (report, error) {
	start := time.Now()
	work := time.Duration(50+rand.IntN(450)) * time.Millisecond

	select {
	case <-time.After(work):
	case <-ctx.Done():
		return report{}, ctx.Err()
	}

	a.log.InfoContext(ctx, "report built", logger.Key(scope.Key), logger.Duration(time.Since(start)))
	return report{
		Tenant:   strings.TrimPrefix(scope.Key, "report:"),
		Rows:     rand.IntN(1000),
		Duration: time.Since(start),
	}, nil
}

func (a *api) bucket(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	resp := map[string]any{"key": key}

	if snap, ok := a.policy.Snapshot(key); ok {
		resp["bucket"] = snap
	}
	if a.counter != nil {
		counts, err := a.counter.Counts(r.Context(), key)
		if err != nil {
			a.log.ErrorContext(r.Context(), "read rejection counts", logger.Error(err))
		} else {
			resp["rejections"] = counts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
