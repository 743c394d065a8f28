package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves GET /stats: the provider's statistics plus the
// uptime of the API.
type StatsHandler struct {
	statsProvider StatsProvider
	startedAt     time.Time
}

// NewStatsHandler creates a stats handler; uptime counts from now.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, startedAt: time.Now()}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{}
	if h.statsProvider != nil {
		maps.Copy(out, h.statsProvider.GetStats())
	}
	out["uptime_seconds"] = time.Since(h.startedAt).Seconds()
	writeJSON(w, http.StatusOK, out)
}
