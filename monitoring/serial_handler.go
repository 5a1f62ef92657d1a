package monitoring

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"rs485console/gateway"
)

// SerialHandler bridges the serial API endpoints to the gateway.
type SerialHandler struct {
	gateway *gateway.Gateway
	logger  *slog.Logger
}

// NewSerialHandler creates a new serial API handler
func NewSerialHandler(gw *gateway.Gateway, logger *slog.Logger) *SerialHandler {
	return &SerialHandler{gateway: gw, logger: logger}
}

// ListPorts handles GET /api/ports
func (h *SerialHandler) ListPorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ports, err := h.gateway.ListPorts()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ports": ports})
}

// Open handles POST /api/serial/open
func (h *SerialHandler) Open(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req gateway.OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	applied, err := h.gateway.OpenPort(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, applied)
}

// Close handles POST /api/serial/close
func (h *SerialHandler) Close(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.gateway.ClosePort(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"closed": true})
}

// Write handles POST /api/serial/write
func (h *SerialHandler) Write(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req gateway.WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	resp, err := h.gateway.WriteData(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

// Read handles POST /api/serial/read
func (h *SerialHandler) Read(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req gateway.ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	resp, err := h.gateway.ReadData(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(gerr.Code))
	json.NewEncoder(w).Encode(map[string]any{"error": gerr})
}

func statusForCode(code string) int {
	switch code {
	case "invalid_argument", "invalid_config", "encoding_error":
		return http.StatusBadRequest
	case "not_open", "already_open":
		return http.StatusConflict
	case "port_not_found":
		return http.StatusNotFound
	case "permission_denied":
		return http.StatusForbidden
	case "port_busy":
		return http.StatusLocked
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
