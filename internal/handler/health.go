package handler

import (
	"net/http"
	"time"

	"playermodels-api/pkg/response"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	appName string
	env     string
	started time.Time
	ready   func() error
}

// NewHealthHandler creates the handler. ready is polled by the readiness
// probe; nil means always ready.
func NewHealthHandler(appName, env string, ready func() error) *HealthHandler {
	return &HealthHandler{
		appName: appName,
		env:     env,
		started: time.Now(),
		ready:   ready,
	}
}

func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"app":         h.appName,
		"environment": h.env,
		"uptime":      time.Since(h.started).String(),
	})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	response.OK(w, map[string]string{"status": "ready"})
}
