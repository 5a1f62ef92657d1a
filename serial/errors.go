package serial

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// Kind classifies a session failure. Kinds are the stable vocabulary
// surfaced to callers; the wrapped cause is for logging only.
type Kind int

const (
	KindUnknown Kind = iota
	KindPortNotFound
	KindPortBusy
	KindPermissionDenied
	KindInvalidConfig
	KindAlreadyOpen
	KindNotOpen
	KindTimeout
	KindEncodingError
	KindInvalidArgument
	KindCloseFailed
	KindEnumerationFailed
)

// String returns the stable wire form of the kind.
func (k Kind) String() string {
	switch k {
	case KindPortNotFound:
		return "port_not_found"
	case KindPortBusy:
		return "port_busy"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInvalidConfig:
		return "invalid_config"
	case KindAlreadyOpen:
		return "already_open"
	case KindNotOpen:
		return "not_open"
	case KindTimeout:
		return "timeout"
	case KindEncodingError:
		return "encoding_error"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindCloseFailed:
		return "close_failed"
	case KindEnumerationFailed:
		return "enumeration_failed"
	default:
		return "unknown"
	}
}

// Error is a classified session failure. Msg is a human-readable
// description safe to show to callers; Err carries the OS-level cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind from an error, or KindUnknown if the error
// did not originate in this package.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func newError(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func newErrorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// classify maps an error returned by the serial library onto the
// session's error vocabulary.
func classify(op string, err error) *Error {
	var serr *Error
	if errors.As(err, &serr) {
		return serr
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.InvalidSerialPort:
			return &Error{Kind: KindPortNotFound, Op: op, Msg: "port not found", Err: err}
		case serial.PortBusy:
			return &Error{Kind: KindPortBusy, Op: op, Msg: "port is held by another process", Err: err}
		case serial.PermissionDenied:
			return &Error{Kind: KindPermissionDenied, Op: op, Msg: "permission denied", Err: err}
		case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits, serial.InvalidTimeoutValue:
			return &Error{Kind: KindInvalidConfig, Op: op, Msg: "line parameters rejected", Err: err}
		case serial.ErrorEnumeratingPorts:
			return &Error{Kind: KindEnumerationFailed, Op: op, Msg: "port enumeration failed", Err: err}
		case serial.PortClosed:
			return &Error{Kind: KindNotOpen, Op: op, Msg: "port closed during operation", Err: err}
		}
	}

	return &Error{Kind: KindUnknown, Op: op, Msg: "serial operation failed", Err: err}
}
