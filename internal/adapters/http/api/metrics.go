package api

import "net/http"

// MetricsHandler serves the monitored statistics.
type MetricsHandler struct {
	deps Dependencies
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(deps Dependencies) *MetricsHandler {
	return &MetricsHandler{deps: deps}
}

// HandleGetMetrics handles GET /metrics requests.
func (h *MetricsHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind("api.get_metrics", ErrMethodNotAllowed))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Metrics(r.Context()))
}

// AlertsHandler serves the currently firing alerts.
type AlertsHandler struct {
	deps Dependencies
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps Dependencies) *AlertsHandler {
	return &AlertsHandler{deps: deps}
}

// HandleGetAlerts handles GET /alerts requests. The body is always a JSON array.
func (h *AlertsHandler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind("api.get_alerts", ErrMethodNotAllowed))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Alerts(r.Context()))
}
