// Package serial owns the lifecycle of a single RS-485/TTL serial port:
// exclusive handle ownership, configuration, and timeout-bounded I/O.
package serial

import (
	"time"

	"go.bug.st/serial"
)

// Parity selects the parity bit mode of the serial line.
type Parity string

const (
	ParityNone Parity = "none"
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
)

// StopBits selects the number of stop bits of the serial line.
type StopBits int

const (
	StopBitsOne StopBits = 1
	StopBitsTwo StopBits = 2
)

// Config describes a requested line configuration. A Config is copied
// into the session on Open and never mutated afterwards.
type Config struct {
	Port         string        `json:"port"`
	Baud         int           `json:"baud"`
	Parity       Parity        `json:"parity"`
	StopBits     StopBits      `json:"stop_bits"`
	DataBits     int           `json:"data_bits"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// Validate checks the configuration before it reaches the OS layer.
func (c Config) Validate() error {
	if c.Port == "" {
		return newError(KindInvalidArgument, "open", "port is required")
	}
	if c.Baud <= 0 {
		return newErrorf(KindInvalidConfig, "open", "invalid baud rate: %d", c.Baud)
	}
	if c.DataBits != 8 {
		return newErrorf(KindInvalidConfig, "open", "unsupported data bits: %d", c.DataBits)
	}
	if _, err := convertParity(c.Parity); err != nil {
		return err
	}
	if _, err := convertStopBits(c.StopBits); err != nil {
		return err
	}
	if c.ReadTimeout <= 0 {
		return newError(KindInvalidArgument, "open", "read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return newError(KindInvalidArgument, "open", "write timeout must be positive")
	}
	return nil
}

// mode converts the configuration into the underlying library's form.
func (c Config) mode() (*serial.Mode, error) {
	parity, err := convertParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := convertStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: c.Baud,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

func convertParity(parity Parity) (serial.Parity, error) {
	switch parity {
	case ParityNone:
		return serial.NoParity, nil
	case ParityEven:
		return serial.EvenParity, nil
	case ParityOdd:
		return serial.OddParity, nil
	default:
		return serial.NoParity, newErrorf(KindInvalidConfig, "open", "unsupported parity: %q", string(parity))
	}
}

func convertStopBits(bits StopBits) (serial.StopBits, error) {
	switch bits {
	case StopBitsOne:
		return serial.OneStopBit, nil
	case StopBitsTwo:
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, newErrorf(KindInvalidConfig, "open", "unsupported stop bits: %d", int(bits))
	}
}
