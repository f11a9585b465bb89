package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/fingerspell/internal/store"
)

// SessionHandler serves live session history and their decisions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Frames    int64  `json:"frames"`
	Decisions int64  `json:"decisions"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type decisionResponse struct {
	Frame      int64   `json:"frame"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
}

type listDecisionsResponse struct {
	SessionID string             `json:"session_id"`
	Decisions []decisionResponse `json:"decisions"`
	Counts    map[string]int     `json:"counts"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		StartedAt: formatTime(s.StartedAt),
		EndedAt:   formatTime(s.EndedAt),
		Frames:    s.Frames,
		Decisions: s.Decisions,
	}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/decisions.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	switch parts := strings.Split(path, "/"); {
	case path == "":
		h.list(w, r)
	case len(parts) == 1:
		h.get(w, parts[0])
	case len(parts) == 2 && parts[1] == "decisions":
		h.decisions(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	n, ok := limit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	sessions, err := h.store.Sessions().List(n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *SessionHandler) decisions(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	n, ok := limit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	decisions, err := h.store.Decisions().ListBySession(id, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list decisions")
		return
	}
	counts, err := h.store.Decisions().CountByLabel(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count decisions")
		return
	}

	response := listDecisionsResponse{
		SessionID: id,
		Decisions: make([]decisionResponse, 0, len(decisions)),
		Counts:    counts,
	}
	for _, d := range decisions {
		response.Decisions = append(response.Decisions, decisionResponse{
			Frame:      d.Frame,
			Label:      d.Label,
			Confidence: d.Confidence,
			CreatedAt:  formatTime(d.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
