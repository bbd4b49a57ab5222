// Package server exposes mesh analysis over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pangeorg/rusty-stl/pkg/batch"
	"github.com/pangeorg/rusty-stl/pkg/logx"
	"github.com/pangeorg/rusty-stl/pkg/stl"
	"github.com/pangeorg/rusty-stl/pkg/store"
)

// MaxUploadBytes bounds the size of an uploaded mesh.
const MaxUploadBytes = 256 << 20

type Options struct {
	// Repo stores uploaded results. The run routes are only mounted when
	// it is set.
	Repo           store.Repository
	AllowedOrigins []string
	MaxUploadBytes int64
	Logger         *slog.Logger
	Clock          store.Clock
}

type Router struct {
	runner    *batch.Runner
	repo      store.Repository
	log       *slog.Logger
	clock     store.Clock
	maxUpload int64
}

// NewRouter builds the HTTP handler.
func NewRouter(runner *batch.Runner, opts Options) http.Handler {
	r := &Router{
		runner:    runner,
		repo:      opts.Repo,
		log:       logx.Or(opts.Logger),
		clock:     opts.Clock,
		maxUpload: opts.MaxUploadBytes,
	}
	if r.clock == nil {
		r.clock = store.SystemClock{}
	}
	if r.maxUpload <= 0 {
		r.maxUpload = MaxUploadBytes
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Run-ID"},
		MaxAge:         300,
	}))
	mux.Use(r.logging)

	mux.Get("/health", r.wrap(r.handleHealth))
	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		if r.repo != nil {
			rt.Get("/runs", r.wrap(r.handleRuns))
			rt.Get("/runs/{id}", r.wrap(r.handleRun))
			rt.Get("/records/{id}", r.wrap(r.handleRecord))
		}
	})
	return mux
}

// statusError carries an HTTP status for wrap.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func statusFor(err error) int {
	var se *statusError
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &se):
		return se.code
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, stl.ErrTruncated), errors.Is(err, stl.ErrSyntax), errors.Is(err, stl.ErrNonFinite):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			code := statusFor(err)
			if code >= 500 {
				r.log.Error("request failed", "path", req.URL.Path, "err", err)
			}
			writeJSON(w, code, map[string]string{"error": err.Error()})
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// GET /health
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) error {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if p, ok := r.repo.(pinger); ok {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			status = map[string]string{"status": "unhealthy", "database": err.Error()}
			code = http.StatusServiceUnavailable
		}
	}
	return writeJSON(w, code, status)
}

// POST /v1/analyze?name=part.stl
// Body: binary or ASCII STL.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	name := req.URL.Query().Get("name")
	if name == "" {
		name = "upload.stl"
	}
	body := http.MaxBytesReader(w, req.Body, r.maxUpload)
	res := r.runner.AnalyzeReader(name, body)
	if res.Err != nil {
		return res.Err
	}

	if r.repo != nil {
		runID, recs := store.FromResults([]batch.FileResult{res}, r.clock.Now())
		if err := r.repo.Save(req.Context(), recs...); err != nil {
			return fmt.Errorf("server: save result: %w", err)
		}
		w.Header().Set("X-Run-ID", runID)
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/runs?limit=20
func (r *Router) handleRuns(w http.ResponseWriter, req *http.Request) error {
	limit := 0
	if s := req.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return &statusError{code: http.StatusBadRequest, err: fmt.Errorf("invalid limit %q", s)}
		}
		limit = n
	}
	runs, err := r.repo.Runs(req.Context(), limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []store.Run{}
	}
	return writeJSON(w, http.StatusOK, runs)
}

// GET /v1/runs/{id}
func (r *Router) handleRun(w http.ResponseWriter, req *http.Request) error {
	recs, err := r.repo.ListByRun(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, recs)
}

// GET /v1/records/{id}
func (r *Router) handleRecord(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.repo.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}
