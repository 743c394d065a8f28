package api

import (
	"context"
	"net/http"

	"github.com/okian/vigil/internal/adapters/repository"
)

// Alert listing bounds.
const (
	defaultAlertLimit = 100
	maxAlertLimit     = 1000
)

// AlertDependencies defines the interface for alert history queries.
type AlertDependencies interface {
	GetSession(ctx context.Context, id string) (*repository.Session, error)
	ListAlerts(ctx context.Context, sessionID string, limit int) ([]*repository.Alert, error)
	AlertSummary(ctx context.Context, sessionID string) (repository.Summary, error)
}

// AlertsHandler handles alert history requests.
type AlertsHandler struct {
	deps AlertDependencies
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps AlertDependencies) *AlertsHandler {
	return &AlertsHandler{deps: deps}
}

type alertsResponse struct {
	SessionID string              `json:"session_id"`
	Alerts    []*repository.Alert `json:"alerts"`
	Summary   repository.Summary  `json:"summary"`
}

// HandleList handles GET /sessions/{id}/alerts requests.
func (h *AlertsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit, err := parseLimit(r, defaultAlertLimit, maxAlertLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if _, err := h.deps.GetSession(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	alerts, err := h.deps.ListAlerts(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	summary, err := h.deps.AlertSummary(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if alerts == nil {
		alerts = []*repository.Alert{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{SessionID: id, Alerts: alerts, Summary: summary})
}
