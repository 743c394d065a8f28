package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/monitor"
)

// Session listing bounds.
const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxDriverIDLen   = 128
)

// SessionDependencies defines the session lifecycle operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, driverID string) (*repository.Session, error)
	GetSession(ctx context.Context, id string) (*repository.Session, error)
	ListSessions(ctx context.Context, limit int, activeOnly bool) ([]*repository.Session, error)
	Snapshot(ctx context.Context, id string) (monitor.Snapshot, error)
	EndSession(ctx context.Context, id, reason string) (*repository.Session, error)
	ResetSession(ctx context.Context, id string) error
	SetSunglasses(ctx context.Context, id string, on bool) error
}

// SessionsHandler handles session requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type createSessionRequest struct {
	DriverID string `json:"driver_id"`
}

type sunglassesRequest struct {
	Enabled *bool `json:"enabled"`
}

type sessionResponse struct {
	Session *repository.Session `json:"session"`
	Live    *monitor.Snapshot   `json:"live,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	req.DriverID = strings.TrimSpace(req.DriverID)
	if len(req.DriverID) > maxDriverIDLen {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: driver_id too long", ErrBadRequest))
		return
	}

	sess, err := h.deps.CreateSession(r.Context(), req.DriverID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess})
}

// HandleList handles GET /sessions?limit=&active= requests.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	active := false
	if v := r.URL.Query().Get("active"); v != "" {
		if active, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid active flag", ErrBadRequest))
			return
		}
	}

	sessions, err := h.deps.ListSessions(r.Context(), limit, active)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*repository.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// HandleGet handles GET /sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := h.deps.GetSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := sessionResponse{Session: sess}
	if sess.Active() {
		if snap, err := h.deps.Snapshot(r.Context(), id); err == nil {
			resp.Live = &snap
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleEnd handles DELETE /sessions/{id} requests.
func (h *SessionsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.EndSession(r.Context(), r.PathValue("id"), "api")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// HandleReset handles POST /sessions/{id}/reset requests.
func (h *SessionsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ResetSession(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "reset"})
}

// HandleSunglasses handles POST /sessions/{id}/sunglasses requests.
func (h *SessionsHandler) HandleSunglasses(w http.ResponseWriter, r *http.Request) {
	var req sunglassesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing enabled", ErrBadRequest))
		return
	}
	if err := h.deps.SetSunglasses(r.Context(), r.PathValue("id"), *req.Enabled); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sunglasses": *req.Enabled})
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	return min(n, maxLimit), nil
}
