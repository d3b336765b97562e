package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourplan/internal/model"
	"tourplan/internal/opt"
	"tourplan/internal/store"
)

// OptimizeHandler handles POST /v1/optimize. Synchronous requests answer 200
// with the finished run; async requests answer 202 with the queued run.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeOptimizeRequest(w, r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	prob, err := s.Planner.Prepare(req)
	if err != nil {
		writeRunProblem(w, r, "", err)
		return
	}

	run := newRun(req, prob.Matrix.N())
	if err := s.Store.CreateRun(r.Context(), run); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Location", "/v1/runs/"+run.ID)
	if req.Async {
		s.startAsync(run, prob)
		writeJSON(w, http.StatusAccepted, run)
		return
	}
	run, err = s.execute(r.Context(), run, prob)
	if err != nil {
		writeRunProblem(w, r, run.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// RunsHandler handles GET /v1/runs?status=&cursor=&limit=
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	status := model.RunStatus(q.Get("status"))
	switch status {
	case "", model.RunQueued, model.RunRunning, model.RunSucceeded, model.RunFailed:
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid status", string(status), r.URL.Path)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", v, r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListRuns(r.Context(), status, q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and its sub-resources
// /events/stream (SSE), /ws (WebSocket) and /deliveries.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.Trim(strings.TrimPrefix(path, "/v1/runs/"), "/")
	if rest == "" || rest == strings.Trim(path, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", id, path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), path)
		return
	}

	switch strings.Join(parts[1:], "/") {
	case "":
		writeJSON(w, http.StatusOK, run)
	case "events/stream":
		s.streamRunEvents(w, r, id)
	case "ws":
		s.runEventsWS(w, r, id)
	case "deliveries":
		items, err := s.Store.ListWebhookDeliveries(r.Context(), id)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

// OptimizerConfigHandler returns the defaults applied to requests and the
// limits they are checked against.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	o := s.Config.Optimizer
	writeJSON(w, http.StatusOK, map[string]any{
		"defaults": map[string]any{
			"algorithm":      o.Algorithm,
			"timeBudgetMs":   o.TimeBudgetMs,
			"restarts":       o.Restarts,
			"exactThreshold": o.ExactThreshold,
			"parallelism":    o.Parallelism,
		},
		"limits": map[string]any{
			"maxStops":        o.MaxStops,
			"maxRestarts":     o.MaxRestarts,
			"maxTimeBudgetMs": o.MaxTimeBudgetMs,
			"maxExactStops":   opt.MaxExactStops,
		},
		"algorithms": []opt.Algorithm{opt.AlgoLocalSearch, opt.AlgoExact, opt.AlgoAuto},
		"modes":      []string{"distance", "driving", "cycling", "walking"},
	})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler pings Postgres and Redis when they are configured.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	for name, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", name+": "+err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
