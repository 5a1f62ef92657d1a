package serial

import (
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"
)

// State is the lifecycle state of a session.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// writeChunkSize bounds how long a single OS write can run before the
// session re-checks the write deadline.
const writeChunkSize = 256

// PortHandle is the subset of the OS port surface the session uses.
// The handle is exclusively owned by the session and never exposed.
type PortHandle interface {
	SetReadTimeout(timeout time.Duration) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	Close() error
}

// Opener opens the OS handle for a validated configuration.
type Opener func(cfg Config) (PortHandle, error)

func defaultOpener(cfg Config) (PortHandle, error) {
	mode, err := cfg.mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Session owns at most one open serial port. All operations are
// serialized through a single lock so that overlapping calls against
// the handle cannot interleave; a close racing a blocked read simply
// waits out the read's timeout and then proceeds.
type Session struct {
	mu     sync.Mutex
	state  State
	port   PortHandle
	config Config

	open   Opener
	logger *slog.Logger
}

// NewSession creates a session in the closed state.
func NewSession(logger *slog.Logger) *Session {
	return NewSessionWithOpener(logger, defaultOpener)
}

// NewSessionWithOpener creates a session with a custom port opener.
// Tests use this to substitute a mock port.
func NewSessionWithOpener(logger *slog.Logger, open Opener) *Session {
	return &Session{
		state:  StateClosed,
		open:   open,
		logger: logger,
	}
}

// Open transitions Closed -> Open, applying the given line parameters
// and timeouts. Opening while already open fails with AlreadyOpen;
// callers must close first.
func (s *Session) Open(cfg Config) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOpen {
		return Config{}, newErrorf(KindAlreadyOpen, "open", "session already open on %s", s.config.Port)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	port, err := s.open(cfg)
	if err != nil {
		return Config{}, classify("open", err)
	}

	s.port = port
	s.config = cfg
	s.state = StateOpen
	s.logger.Info("serial session opened",
		"port", cfg.Port,
		"baud", cfg.Baud,
		"parity", string(cfg.Parity),
		"stop_bits", int(cfg.StopBits),
		"data_bits", cfg.DataBits,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
	)
	return cfg, nil
}

// Close releases the OS handle and transitions to Closed. The state is
// forced to Closed even when the OS close reports a failure; a dangling
// open handle is the one outcome this method never produces. Closing an
// already-closed session fails with NotOpen.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return newError(KindNotOpen, "close", "session is not open")
	}

	port := s.config.Port
	err := s.port.Close()
	s.port = nil
	s.config = Config{}
	s.state = StateClosed

	if err != nil {
		s.logger.Warn("serial session close reported failure", "port", port, "error", err)
		return &Error{Kind: KindCloseFailed, Op: "close", Msg: "OS-level close failed", Err: err}
	}
	s.logger.Info("serial session closed", "port", port)
	return nil
}

// Write transmits one frame, blocking up to the configured write
// timeout. The returned count is the number of bytes actually written,
// reported even when the write times out partway through.
func (s *Session) Write(frame Frame) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return 0, newError(KindNotOpen, "write", "session is not open")
	}

	payload, err := frame.Bytes()
	if err != nil {
		return 0, err
	}

	deadline := time.Now().Add(s.config.WriteTimeout)
	written := 0
	for written < len(payload) {
		if time.Now().After(deadline) {
			return written, newErrorf(KindTimeout, "write", "wrote %d of %d bytes before timeout", written, len(payload))
		}
		end := written + writeChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		n, err := s.port.Write(payload[written:end])
		written += n
		if err != nil {
			return written, classify("write", err)
		}
	}
	if err := s.port.Drain(); err != nil {
		return written, classify("write", err)
	}

	s.logger.Debug("serial write", "port", s.config.Port, "bytes", written)
	return written, nil
}

// Read returns up to maxBytes from the port, blocking up to the
// configured read timeout. A timeout with no data is a successful
// zero-length read, not an error; polling loops depend on that.
func (s *Session) Read(maxBytes int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxBytes <= 0 {
		return nil, newErrorf(KindInvalidArgument, "read", "max bytes must be positive, got %d", maxBytes)
	}
	if s.state != StateOpen {
		return nil, newError(KindNotOpen, "read", "session is not open")
	}

	buf := make([]byte, maxBytes)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, classify("read", err)
	}

	s.logger.Debug("serial read", "port", s.config.Port, "bytes", n)
	return buf[:n], nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveConfig returns the last-applied configuration, valid only while
// the session is open.
func (s *Session) ActiveConfig() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config, s.state == StateOpen
}
