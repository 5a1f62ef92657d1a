package monitoring

import (
	"fmt"
	"net/http"

	"rs485console/gateway"
	"rs485console/serial"
)

// MetricsHandler creates an HTTP handler for Prometheus metrics
type MetricsHandler struct {
	gateway *gateway.Gateway
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(gw *gateway.Gateway) *MetricsHandler {
	return &MetricsHandler{
		gateway: gw,
	}
}

// ServeHTTP handles the /metrics endpoint in Prometheus format
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats := h.gateway.Stats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintln(w, "# HELP rs485_session_open Serial session state (1=open, 0=closed)")
	fmt.Fprintln(w, "# TYPE rs485_session_open gauge")
	open := 0
	port := ""
	if cfg, ok := h.gateway.ActiveConfig(); ok {
		open = 1
		port = cfg.Port
	}
	if h.gateway.SessionState() == serial.StateOpen {
		fmt.Fprintf(w, "rs485_session_open{port=%q} %d\n", port, open)
	} else {
		fmt.Fprintf(w, "rs485_session_open %d\n", open)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP rs485_operations_total Serial operations by kind")
	fmt.Fprintln(w, "# TYPE rs485_operations_total counter")
	fmt.Fprintf(w, "rs485_operations_total{op=\"open\"} %d\n", stats.OpensTotal)
	fmt.Fprintf(w, "rs485_operations_total{op=\"close\"} %d\n", stats.ClosesTotal)
	fmt.Fprintf(w, "rs485_operations_total{op=\"write\"} %d\n", stats.WritesTotal)
	fmt.Fprintf(w, "rs485_operations_total{op=\"read\"} %d\n", stats.ReadsTotal)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP rs485_bytes_total Bytes moved over the serial line")
	fmt.Fprintln(w, "# TYPE rs485_bytes_total counter")
	fmt.Fprintf(w, "rs485_bytes_total{direction=\"tx\"} %d\n", stats.BytesWritten)
	fmt.Fprintf(w, "rs485_bytes_total{direction=\"rx\"} %d\n", stats.BytesRead)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP rs485_errors_total Failed serial operations")
	fmt.Fprintln(w, "# TYPE rs485_errors_total counter")
	fmt.Fprintf(w, "rs485_errors_total %d\n", stats.ErrorsTotal)

	if !stats.LastErrorTime.IsZero() {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "# HELP rs485_last_error_timestamp Unix timestamp of the last failed operation")
		fmt.Fprintln(w, "# TYPE rs485_last_error_timestamp gauge")
		fmt.Fprintf(w, "rs485_last_error_timestamp %d\n", stats.LastErrorTime.Unix())
	}
}
