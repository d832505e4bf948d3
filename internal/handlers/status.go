package handlers

import (
	"net/http"
	"time"
)

// ServerStatus returns the cached game server status. Public, never blocks
// on the admin panel beyond a cold-cache fetch.
func (h *Handlers) ServerStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"online": false})
		return
	}
	h.writeJSON(w, http.StatusOK, h.status.Current(r.Context()))
}

// Health reports portal liveness and dependency health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"portal": "ok"}
	healthy := true

	if err := h.storage.Health(); err != nil {
		checks["storage"] = "unavailable"
		healthy = false
	} else {
		checks["storage"] = "ok"
	}

	if h.panel == nil {
		checks["admin_panel"] = "not configured"
	} else if h.panel.Healthy() {
		checks["admin_panel"] = "ok"
	} else {
		checks["admin_panel"] = "unavailable"
	}

	statusCode := http.StatusOK
	if !healthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.writeJSON(w, statusCode, map[string]interface{}{
		"healthy": healthy,
		"checks":  checks,
		"time":    time.Now().UTC(),
	})
}
