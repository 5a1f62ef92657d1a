// Package gateway is the single validated entry point between external
// callers (GUI, HTTP surface) and the serial session. It sanitizes
// inputs, translates session failures into a stable error vocabulary,
// and emits a structured event per operation. It performs no retries;
// retry policy belongs to the caller.
package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rs485console/serial"
)

// Error is the caller-facing failure shape. Code is stable across
// releases; Message is human-readable and free of OS error internals.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// OpenRequest carries the line configuration for an open operation.
type OpenRequest struct {
	Port           string `json:"port"`
	Baud           int    `json:"baud"`
	Parity         string `json:"parity"`
	StopBits       int    `json:"stop_bits"`
	DataBits       int    `json:"data_bits"`
	ReadTimeoutMs  int    `json:"read_timeout_ms"`
	WriteTimeoutMs int    `json:"write_timeout_ms"`
}

// AppliedConfig echoes the configuration as actually applied, letting
// callers detect OS-level clamping.
type AppliedConfig struct {
	Port           string `json:"port"`
	Baud           int    `json:"baud"`
	Parity         string `json:"parity"`
	StopBits       int    `json:"stop_bits"`
	DataBits       int    `json:"data_bits"`
	ReadTimeoutMs  int    `json:"read_timeout_ms"`
	WriteTimeoutMs int    `json:"write_timeout_ms"`
}

// WriteRequest carries one outbound frame. Encoding is "text" or
// "hex"; empty means text.
type WriteRequest struct {
	Data     string `json:"data"`
	Encoding string `json:"encoding,omitempty"`
}

// WriteResponse reports transmission progress. BytesWritten is filled
// in even when the write failed partway through.
type WriteResponse struct {
	BytesWritten int `json:"bytes_written"`
}

// ReadRequest bounds one inbound read.
type ReadRequest struct {
	MaxBytes int `json:"max_bytes"`
}

// ReadResponse carries the raw bytes losslessly plus the two
// presentation forms callers display.
type ReadResponse struct {
	Len  int    `json:"len"`
	Data []byte `json:"data"`
	Text string `json:"text"`
	Hex  string `json:"hex"`
}

// Stats tracks running operation counters for the monitoring surface.
type Stats struct {
	OpensTotal    int64     `json:"opens_total"`
	ClosesTotal   int64     `json:"closes_total"`
	WritesTotal   int64     `json:"writes_total"`
	ReadsTotal    int64     `json:"reads_total"`
	BytesWritten  int64     `json:"bytes_written"`
	BytesRead     int64     `json:"bytes_read"`
	ErrorsTotal   int64     `json:"errors_total"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorTime time.Time `json:"last_error_time,omitempty"`
}

// Gateway bridges callers to the serial session.
type Gateway struct {
	session *serial.Session
	logger  *slog.Logger
	sink    EventSink

	listPorts func() ([]string, error)

	statsMu sync.Mutex
	stats   Stats
}

// New creates a gateway over the given session. A nil sink discards
// events.
func New(session *serial.Session, logger *slog.Logger, sink EventSink) *Gateway {
	if sink == nil {
		sink = nopSink{}
	}
	return &Gateway{
		session:   session,
		logger:    logger,
		sink:      sink,
		listPorts: serial.ListPorts,
	}
}

// ListPorts enumerates serial devices visible on the host.
func (g *Gateway) ListPorts() ([]string, error) {
	ports, err := g.listPorts()
	if err != nil {
		gerr := translate(err)
		g.emit(Event{Op: "list_ports", Code: gerr.Code, Detail: gerr.Message})
		g.recordError(gerr)
		return nil, gerr
	}
	g.emit(Event{Op: "list_ports", OK: true, Detail: fmt.Sprintf("%d ports", len(ports))})
	return ports, nil
}

// OpenPort validates the request and opens the session. Opening while
// already open fails with already_open; callers must close first.
func (g *Gateway) OpenPort(req OpenRequest) (AppliedConfig, error) {
	req.Port = strings.TrimSpace(req.Port)
	if req.Port == "" {
		return AppliedConfig{}, g.reject("open", req.Port, "port is required")
	}
	if req.Baud <= 0 {
		return AppliedConfig{}, g.reject("open", req.Port, fmt.Sprintf("baud must be positive, got %d", req.Baud))
	}
	if req.ReadTimeoutMs <= 0 {
		return AppliedConfig{}, g.reject("open", req.Port, "read_timeout_ms must be positive")
	}
	if req.WriteTimeoutMs <= 0 {
		return AppliedConfig{}, g.reject("open", req.Port, "write_timeout_ms must be positive")
	}
	if req.Parity == "" {
		req.Parity = string(serial.ParityNone)
	}
	if req.StopBits == 0 {
		req.StopBits = int(serial.StopBitsOne)
	}
	if req.DataBits == 0 {
		req.DataBits = 8
	}

	cfg := serial.Config{
		Port:         req.Port,
		Baud:         req.Baud,
		Parity:       serial.Parity(strings.ToLower(req.Parity)),
		StopBits:     serial.StopBits(req.StopBits),
		DataBits:     req.DataBits,
		ReadTimeout:  time.Duration(req.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(req.WriteTimeoutMs) * time.Millisecond,
	}

	applied, err := g.session.Open(cfg)
	if err != nil {
		gerr := translate(err)
		g.logger.Warn("open rejected", "port", req.Port, "code", gerr.Code, "error", err)
		g.emit(Event{Op: "open", Port: req.Port, Code: gerr.Code, Detail: gerr.Message})
		g.recordError(gerr)
		return AppliedConfig{}, gerr
	}

	g.statsMu.Lock()
	g.stats.OpensTotal++
	g.statsMu.Unlock()

	resp := appliedConfig(applied)
	g.emit(Event{
		Op:   "open",
		OK:   true,
		Port: resp.Port,
		Detail: fmt.Sprintf("baud=%d parity=%s stop_bits=%d data_bits=%d read_timeout_ms=%d write_timeout_ms=%d",
			resp.Baud, resp.Parity, resp.StopBits, resp.DataBits, resp.ReadTimeoutMs, resp.WriteTimeoutMs),
	})
	return resp, nil
}

// ClosePort closes the session. The session releases its handle even
// when the OS close fails; the failure is still surfaced.
func (g *Gateway) ClosePort() error {
	port := g.sessionPort()
	err := g.session.Close()
	if err != nil {
		gerr := translate(err)
		g.emit(Event{Op: "close", Port: port, Code: gerr.Code, Detail: gerr.Message})
		g.recordError(gerr)
		return gerr
	}

	g.statsMu.Lock()
	g.stats.ClosesTotal++
	g.statsMu.Unlock()

	g.emit(Event{Op: "close", OK: true, Port: port})
	return nil
}

// WriteData transmits one frame. On timeout the response still carries
// the partial byte count.
func (g *Gateway) WriteData(req WriteRequest) (WriteResponse, error) {
	encoding, gerr := parseEncoding(req.Encoding)
	if gerr != nil {
		g.emit(Event{Op: "write", Code: gerr.Code, Detail: gerr.Message})
		g.recordError(gerr)
		return WriteResponse{}, gerr
	}

	port := g.sessionPort()
	n, err := g.session.Write(serial.Frame{Encoding: encoding, Payload: []byte(req.Data)})
	if err != nil {
		gerr := translate(err)
		g.emit(Event{Op: "write", Port: port, Bytes: n, Code: gerr.Code, Detail: gerr.Message})
		g.recordError(gerr)
		g.statsMu.Lock()
		g.stats.BytesWritten += int64(n)
		g.statsMu.Unlock()
		return WriteResponse{BytesWritten: n}, gerr
	}

	g.statsMu.Lock()
	g.stats.WritesTotal++
	g.stats.BytesWritten += int64(n)
	g.statsMu.Unlock()

	g.emit(Event{Op: "write", OK: true, Port: port, Bytes: n})
	return WriteResponse{BytesWritten: n}, nil
}

// ReadData reads up to MaxBytes. A timed-out read with no data is a
// successful empty response.
func (g *Gateway) ReadData(req ReadRequest) (ReadResponse, error) {
	if req.MaxBytes <= 0 {
		gerr := &Error{Code: serial.KindInvalidArgument.String(), Message: "max_bytes must be positive"}
		g.emit(Event{Op: "read", Code: gerr.Code, Detail: gerr.Message})
		g.recordError(gerr)
		return ReadResponse{}, gerr
	}

	port := g.sessionPort()
	data, err := g.session.Read(req.MaxBytes)
	if err != nil {
		gerr := translate(err)
		g.emit(Event{Op: "read", Port: port, Code: gerr.Code, Detail: gerr.Message})
		g.recordError(gerr)
		return ReadResponse{}, gerr
	}

	g.statsMu.Lock()
	g.stats.ReadsTotal++
	g.stats.BytesRead += int64(len(data))
	g.statsMu.Unlock()

	g.emit(Event{Op: "read", OK: true, Port: port, Bytes: len(data)})
	return ReadResponse{
		Len:  len(data),
		Data: data,
		Text: string(data),
		Hex:  serial.EncodeHex(data),
	}, nil
}

// SessionState reports the session's lifecycle state for health and UI
// surfaces.
func (g *Gateway) SessionState() serial.State {
	return g.session.State()
}

// ActiveConfig returns the applied configuration while open.
func (g *Gateway) ActiveConfig() (AppliedConfig, bool) {
	cfg, ok := g.session.ActiveConfig()
	if !ok {
		return AppliedConfig{}, false
	}
	return appliedConfig(cfg), true
}

// Stats returns a snapshot of the running counters.
func (g *Gateway) Stats() Stats {
	g.statsMu.Lock()
	defer g.statsMu.Unlock()
	return g.stats
}

func (g *Gateway) sessionPort() string {
	cfg, ok := g.session.ActiveConfig()
	if !ok {
		return ""
	}
	return cfg.Port
}

func (g *Gateway) reject(op, port, msg string) *Error {
	gerr := &Error{Code: serial.KindInvalidArgument.String(), Message: msg}
	g.emit(Event{Op: op, Port: port, Code: gerr.Code, Detail: gerr.Message})
	g.recordError(gerr)
	return gerr
}

func (g *Gateway) emit(ev Event) {
	ev.ID = uuid.NewString()
	ev.Time = time.Now()
	g.sink.Record(ev)
}

func (g *Gateway) recordError(gerr *Error) {
	g.statsMu.Lock()
	defer g.statsMu.Unlock()
	g.stats.ErrorsTotal++
	g.stats.LastError = gerr.Error()
	g.stats.LastErrorTime = time.Now()
}

func parseEncoding(s string) (serial.Encoding, *Error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return serial.EncodingText, nil
	case "hex":
		return serial.EncodingHex, nil
	default:
		return "", &Error{
			Code:    serial.KindInvalidArgument.String(),
			Message: fmt.Sprintf("unsupported encoding: %q", s),
		}
	}
}

func appliedConfig(cfg serial.Config) AppliedConfig {
	return AppliedConfig{
		Port:           cfg.Port,
		Baud:           cfg.Baud,
		Parity:         string(cfg.Parity),
		StopBits:       int(cfg.StopBits),
		DataBits:       cfg.DataBits,
		ReadTimeoutMs:  int(cfg.ReadTimeout / time.Millisecond),
		WriteTimeoutMs: int(cfg.WriteTimeout / time.Millisecond),
	}
}

// translate maps a session error onto the stable vocabulary without
// leaking the OS-level cause.
func translate(err error) *Error {
	var serr *serial.Error
	if errors.As(err, &serr) {
		return &Error{Code: serr.Kind.String(), Message: serr.Msg}
	}
	return &Error{Code: serial.KindUnknown.String(), Message: "serial operation failed"}
}
