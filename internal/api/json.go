package api

import (
	"encoding/json"
	"net/http"

	"tourplan/internal/model"
	"tourplan/internal/opt"
	"tourplan/internal/planner"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Status   int             `json:"status"`
	Detail   string          `json:"detail,omitempty"`
	Instance string          `json:"instance,omitempty"`
	RunID    string          `json:"runId,omitempty"`
	Error    *model.RunError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeRunProblem reports a failed optimization: 400 for bad input, 422 when
// no tour satisfies it, 500 otherwise.
func writeRunProblem(w http.ResponseWriter, r *http.Request, runID string, err error) {
	status, title := http.StatusInternalServerError, "Optimization failed"
	switch {
	case planner.IsInputError(err):
		status, title = http.StatusBadRequest, "Invalid optimize request"
	case opt.IsReachabilityError(err):
		status, title = http.StatusUnprocessableEntity, "No feasible tour"
	}
	p := Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   err.Error(),
		Instance: r.URL.Path,
		RunID:    runID,
	}
	if runID != "" {
		p.Error = model.NewRunError(err)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}
