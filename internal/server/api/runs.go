package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/fingerspell/internal/store"
)

// RunHandler serves dataset build history.
type RunHandler struct {
	store *store.Store
}

// NewRunHandler creates a new RunHandler with the given store.
func NewRunHandler(s *store.Store) *RunHandler {
	return &RunHandler{store: s}
}

type runResponse struct {
	ID             string         `json:"id"`
	Root           string         `json:"root"`
	Output         string         `json:"output"`
	Files          int            `json:"files"`
	Rows           int            `json:"rows"`
	ZeroFilled     int            `json:"zero_filled"`
	NoHand         int            `json:"no_hand"`
	Degenerate     int            `json:"degenerate"`
	Unreadable     int            `json:"unreadable"`
	DetectorErrors int            `json:"detector_errors"`
	Labels         map[string]int `json:"labels"`
	StartedAt      string         `json:"started_at"`
	FinishedAt     string         `json:"finished_at"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

func toRunResponse(r *store.Run) runResponse {
	return runResponse{
		ID:             r.ID,
		Root:           r.Root,
		Output:         r.Output,
		Files:          r.Files,
		Rows:           r.Rows,
		ZeroFilled:     r.ZeroFilled,
		NoHand:         r.NoHand,
		Degenerate:     r.Degenerate,
		Unreadable:     r.Unreadable,
		DetectorErrors: r.DetectorErrors,
		Labels:         r.PerLabel,
		StartedAt:      formatTime(r.StartedAt),
		FinishedAt:     formatTime(r.FinishedAt),
	}
}

// ServeHTTP routes /api/runs and /api/runs/{id}.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/runs"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	n, ok := limit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	runs, err := h.store.Runs().List(n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{Runs: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *RunHandler) get(w http.ResponseWriter, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}
