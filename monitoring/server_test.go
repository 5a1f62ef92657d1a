package monitoring

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rs485console/config"
	"rs485console/gateway"
	"rs485console/serial"
)

func newTestServer(t *testing.T) (*Server, *serial.MockPort) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	port := serial.NewMockPort("/dev/ttyUSB0")
	session := serial.NewSessionWithOpener(logger, port.Opener())
	gw := gateway.New(session, logger, nil)
	cfg := &config.MonitoringConfig{Enabled: true, Listen: "127.0.0.1:0"}
	return NewServer(cfg, "test-rig", "1.0.0", gw, logger), port
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func openBody() gateway.OpenRequest {
	return gateway.OpenRequest{
		Port:           "/dev/ttyUSB0",
		Baud:           9600,
		Parity:         "none",
		StopBits:       1,
		DataBits:       8,
		ReadTimeoutMs:  500,
		WriteTimeoutMs: 300,
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test-rig", health.InstanceID)
	assert.Equal(t, "closed", health.SessionState)
}

func TestSerialAPIFlow(t *testing.T) {
	server, port := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/serial/open", openBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var applied gateway.AppliedConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.Equal(t, "/dev/ttyUSB0", applied.Port)
	assert.Equal(t, 9600, applied.Baud)

	rec = doJSON(t, handler, http.MethodPost, "/api/serial/write",
		gateway.WriteRequest{Data: "52 45 41 44", Encoding: "hex"})
	require.Equal(t, http.StatusOK, rec.Code)

	var wrote gateway.WriteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wrote))
	assert.Equal(t, 4, wrote.BytesWritten)
	assert.Equal(t, []byte("READ"), port.WrittenData())

	port.EnqueueRead([]byte{0x01, 0x02})
	rec = doJSON(t, handler, http.MethodPost, "/api/serial/read", gateway.ReadRequest{MaxBytes: 64})
	require.Equal(t, http.StatusOK, rec.Code)

	var read gateway.ReadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &read))
	assert.Equal(t, 2, read.Len)
	assert.Equal(t, "01 02", read.Hex)

	rec = doJSON(t, handler, http.MethodPost, "/api/serial/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSerialAPIErrorShape(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	// Write before open maps not_open onto a conflict.
	rec := doJSON(t, handler, http.MethodPost, "/api/serial/write", gateway.WriteRequest{Data: "PING"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error gateway.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_open", body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)

	// Structurally bad input is a 400.
	rec = doJSON(t, handler, http.MethodPost, "/api/serial/read", gateway.ReadRequest{MaxBytes: 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Wrong method is rejected before reaching the gateway.
	rec = doJSON(t, handler, http.MethodGet, "/api/serial/open", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/serial/open", openBody())
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, handler, http.MethodPost, "/api/serial/write", gateway.WriteRequest{Data: "PING"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	metrics := rec.Body.String()
	assert.Contains(t, metrics, `rs485_session_open{port="/dev/ttyUSB0"} 1`)
	assert.Contains(t, metrics, `rs485_operations_total{op="open"} 1`)
	assert.Contains(t, metrics, `rs485_bytes_total{direction="tx"} 4`)
}

func TestParseSysPortLine(t *testing.T) {
	info, ok := parseSysPortLine("4: uart:16550A port:000002F0 irq:7 tx:1195 rx:1170 CTS|DSR|CD")
	require.True(t, ok)
	assert.Equal(t, "/dev/ttyS4", info.Device)
	assert.Equal(t, "16550A", info.UART)
	assert.Equal(t, 7, info.IRQ)
	assert.EqualValues(t, 1195, info.TX)
	assert.EqualValues(t, 1170, info.RX)
	assert.True(t, info.Active)

	_, ok = parseSysPortLine("5: uart:unknown port:000002F8 irq:3")
	assert.False(t, ok)

	_, ok = parseSysPortLine("serinfo:1.0 driver revision:")
	assert.False(t, ok)
}

func TestReadSystemPorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serial")
	contents := "serinfo:1.0 driver revision:\n" +
		"0: uart:16550A port:000003F8 irq:4 tx:12 rx:8 RTS|DTR\n" +
		"1: uart:unknown port:000002F8 irq:3\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	ports, err := readSystemPorts(path)
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "/dev/ttyS0", ports[0].Device)
}
