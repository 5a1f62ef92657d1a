package serial

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Port:         "/dev/ttyUSB0",
		Baud:         9600,
		Parity:       ParityNone,
		StopBits:     StopBitsOne,
		DataBits:     8,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 300 * time.Millisecond,
	}
}

func newTestSession(t *testing.T) (*Session, *MockPort) {
	t.Helper()
	port := NewMockPort("/dev/ttyUSB0")
	return NewSessionWithOpener(testLogger(), port.Opener()), port
}

func TestOpenEchoesAppliedConfig(t *testing.T) {
	session, _ := newTestSession(t)

	applied, err := session.Open(testConfig())
	require.NoError(t, err)

	assert.Equal(t, testConfig(), applied)
	assert.Equal(t, StateOpen, session.State())

	active, ok := session.ActiveConfig()
	require.True(t, ok)
	assert.Equal(t, testConfig(), active)
}

func TestOpenTwiceFailsWithAlreadyOpen(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Baud = 115200
	_, err = session.Open(cfg)
	require.Error(t, err)
	assert.Equal(t, KindAlreadyOpen, KindOf(err))

	// The original configuration survives the rejected open.
	assert.Equal(t, StateOpen, session.State())
	active, ok := session.ActiveConfig()
	require.True(t, ok)
	assert.Equal(t, 9600, active.Baud)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		kind   Kind
	}{
		{"empty port", func(c *Config) { c.Port = "" }, KindInvalidArgument},
		{"zero baud", func(c *Config) { c.Baud = 0 }, KindInvalidConfig},
		{"negative baud", func(c *Config) { c.Baud = -9600 }, KindInvalidConfig},
		{"seven data bits", func(c *Config) { c.DataBits = 7 }, KindInvalidConfig},
		{"bad parity", func(c *Config) { c.Parity = "mark" }, KindInvalidConfig},
		{"bad stop bits", func(c *Config) { c.StopBits = 3 }, KindInvalidConfig},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, KindInvalidArgument},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }, KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _ := newTestSession(t)
			cfg := testConfig()
			tt.mutate(&cfg)

			_, err := session.Open(cfg)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, StateClosed, session.State())
		})
	}
}

func TestOpenSurfacesOpenerFailureAndStaysClosed(t *testing.T) {
	cause := errors.New("device disappeared")
	session := NewSessionWithOpener(testLogger(), func(cfg Config) (PortHandle, error) {
		return nil, cause
	})

	_, err := session.Open(testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, StateClosed, session.State())
}

func TestCloseTransitionsToClosed(t *testing.T) {
	session, port := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	require.NoError(t, session.Close())
	assert.Equal(t, StateClosed, session.State())
	assert.False(t, port.IsOpen())

	_, ok := session.ActiveConfig()
	assert.False(t, ok)
}

func TestCloseWhenClosedFailsWithNotOpen(t *testing.T) {
	session, _ := newTestSession(t)

	err := session.Close()
	require.Error(t, err)
	assert.Equal(t, KindNotOpen, KindOf(err))
}

func TestCloseFailureStillForcesClosed(t *testing.T) {
	session, port := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	cause := errors.New("flush failed")
	port.SetCloseError(cause)

	err = session.Close()
	require.Error(t, err)
	assert.Equal(t, KindCloseFailed, KindOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, StateClosed, session.State())

	_, err = session.Read(16)
	assert.Equal(t, KindNotOpen, KindOf(err))
}

func TestWriteTextFrame(t *testing.T) {
	session, port := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	n, err := session.Write(Frame{Encoding: EncodingText, Payload: []byte("READ 01")})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("READ 01"), port.WrittenData())
}

func TestWriteHexFrameTransmitsDecodedBytes(t *testing.T) {
	session, port := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	n, err := session.Write(Frame{Encoding: EncodingHex, Payload: []byte("0A 1B ff")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x0A, 0x1B, 0xFF}, port.WrittenData())

	// The diagnostic form of what went out matches the request.
	assert.Equal(t, "0A 1B FF", EncodeHex(port.WrittenData()))
}

func TestWriteMalformedHexWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"odd digit count", "0A 1"},
		{"non-hex characters", "zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, port := newTestSession(t)
			_, err := session.Open(testConfig())
			require.NoError(t, err)

			n, err := session.Write(Frame{Encoding: EncodingHex, Payload: []byte(tt.payload)})
			require.Error(t, err)
			assert.Equal(t, KindEncodingError, KindOf(err))
			assert.Zero(t, n)
			assert.Empty(t, port.WrittenData())
		})
	}
}

func TestWriteWhenClosedFailsWithNotOpen(t *testing.T) {
	session, _ := newTestSession(t)

	n, err := session.Write(Frame{Encoding: EncodingText, Payload: []byte("READ 01")})
	require.Error(t, err)
	assert.Equal(t, KindNotOpen, KindOf(err))
	assert.Zero(t, n)
}

func TestWriteTimeoutReportsPartialProgress(t *testing.T) {
	session, port := newTestSession(t)

	cfg := testConfig()
	cfg.WriteTimeout = 70 * time.Millisecond
	_, err := session.Open(cfg)
	require.NoError(t, err)

	// Each chunk takes longer than the remaining budget allows, so the
	// deadline expires with part of the payload already on the wire.
	port.SetWriteDelay(30 * time.Millisecond)
	payload := make([]byte, 5*writeChunkSize)

	n, err := session.Write(Frame{Encoding: EncodingText, Payload: payload})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Greater(t, n, 0)
	assert.Less(t, n, len(payload))
	assert.Equal(t, n, len(port.WrittenData()))
	assert.Equal(t, StateOpen, session.State())
}

func TestWriteSurfacesTransportError(t *testing.T) {
	session, port := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	cause := errors.New("input/output error")
	port.SetWriteError(cause)

	_, err = session.Write(Frame{Encoding: EncodingText, Payload: []byte("PING")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, StateOpen, session.State())
}

func TestReadRespectsMaxBytes(t *testing.T) {
	session, port := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	port.EnqueueRead([]byte("0123456789"))

	data, err := session.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), data)

	data, err = session.Read(64)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), data)
}

func TestReadTimeoutIsZeroLengthSuccess(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	data, err := session.Read(1024)
	require.NoError(t, err)
	assert.Len(t, data, 0)
}

func TestReadZeroMaxBytesIsInvalidArgument(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	_, err = session.Read(0)
	require.Error(t, err)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestReadWhenClosedFailsWithNotOpen(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.Read(1024)
	require.Error(t, err)
	assert.Equal(t, KindNotOpen, KindOf(err))
}

func TestCloseRacingBlockedRead(t *testing.T) {
	session, port := newTestSession(t)

	_, err := session.Open(testConfig())
	require.NoError(t, err)

	port.SetReadDelay(80 * time.Millisecond)

	readDone := make(chan error, 1)
	go func() {
		_, err := session.Read(1024)
		readDone <- err
	}()

	// Let the read take the session lock, then close from this path.
	// The close waits out the bounded read instead of interleaving.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, session.Close())

	select {
	case err := <-readDone:
		// Either the read completed its window first, or the close won
		// the lock and the read observed a closed session.
		if err != nil {
			assert.Equal(t, KindNotOpen, KindOf(err))
		}
	case <-time.After(time.Second):
		t.Fatal("blocked read never terminated")
	}

	_, err = session.Read(1024)
	assert.Equal(t, KindNotOpen, KindOf(err))
}
