package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"rs485console/gateway"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string                 `json:"status"`
	InstanceID   string                 `json:"instance_id"`
	Version      string                 `json:"version"`
	UptimeSec    int64                  `json:"uptime_sec"`
	SessionState string                 `json:"session_state"`
	ActivePort   string                 `json:"active_port,omitempty"`
	Config       *gateway.AppliedConfig `json:"config,omitempty"`
	Stats        gateway.Stats          `json:"stats"`
}

// HealthHandler creates an HTTP handler for health checks
type HealthHandler struct {
	instanceID string
	version    string
	startTime  time.Time
	gateway    *gateway.Gateway
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(instanceID, version string, gw *gateway.Gateway) *HealthHandler {
	return &HealthHandler{
		instanceID: instanceID,
		version:    version,
		startTime:  time.Now(),
		gateway:    gw,
	}
}

// ServeHTTP handles the /health endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       "healthy",
		InstanceID:   h.instanceID,
		Version:      h.version,
		UptimeSec:    int64(time.Since(h.startTime).Seconds()),
		SessionState: string(h.gateway.SessionState()),
		Stats:        h.gateway.Stats(),
	}

	if cfg, ok := h.gateway.ActiveConfig(); ok {
		response.ActivePort = cfg.Port
		response.Config = &cfg
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
