package serial

import (
	"bytes"
	"sync"
	"time"
)

// MockPort implements PortHandle for testing. Reads are served from a
// scripted queue; an empty queue behaves like a read timeout (zero
// bytes, no error), matching the underlying library.
type MockPort struct {
	mu       sync.Mutex
	device   string
	isOpen   bool
	buffer   bytes.Buffer
	writes   [][]byte
	reads    [][]byte
	writeErr error
	readErr  error
	closeErr error

	readDelay  time.Duration
	writeDelay time.Duration
}

// NewMockPort creates an open mock port.
func NewMockPort(device string) *MockPort {
	return &MockPort{
		device: device,
		isOpen: true,
	}
}

// Opener returns an Opener that hands out this mock port, for wiring
// into NewSessionWithOpener.
func (p *MockPort) Opener() Opener {
	return func(cfg Config) (PortHandle, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.isOpen = true
		return p, nil
	}
}

func (p *MockPort) SetReadTimeout(timeout time.Duration) error {
	return nil
}

// Read pops the next scripted chunk, truncated to len(buf). With
// nothing queued it reports a timed-out read: zero bytes and no error.
func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	delay := p.readDelay
	p.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return 0, newError(KindNotOpen, "read", "mock port is closed")
	}
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.reads) == 0 {
		return 0, nil
	}

	chunk := p.reads[0]
	n := copy(buf, chunk)
	if n < len(chunk) {
		p.reads[0] = chunk[n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

// Write captures the data written to the mock port.
func (p *MockPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	delay := p.writeDelay
	p.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return 0, newError(KindNotOpen, "write", "mock port is closed")
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	p.writes = append(p.writes, dataCopy)

	return p.buffer.Write(data)
}

func (p *MockPort) Drain() error {
	return nil
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
	return p.closeErr
}

// Device returns the mock device path.
func (p *MockPort) Device() string {
	return p.device
}

// IsOpen reports whether the mock port is open.
func (p *MockPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// EnqueueRead scripts a chunk to be returned by a subsequent Read.
func (p *MockPort) EnqueueRead(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	p.reads = append(p.reads, dataCopy)
}

// WrittenData returns everything written to the mock port.
func (p *MockPort) WrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.buffer.Bytes()...)
}

// Writes returns the individual write operations.
func (p *MockPort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		result[i] = append([]byte(nil), w...)
	}
	return result
}

// Reset clears captured writes and scripted reads.
func (p *MockPort) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer.Reset()
	p.writes = nil
	p.reads = nil
}

// SetWriteError makes subsequent writes fail with err.
func (p *MockPort) SetWriteError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// SetReadError makes subsequent reads fail with err.
func (p *MockPort) SetReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// SetCloseError makes Close report err after marking the port closed.
func (p *MockPort) SetCloseError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
}

// SetReadDelay makes each Read block for d before completing,
// emulating a read waiting out its timeout window.
func (p *MockPort) SetReadDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readDelay = d
}

// SetWriteDelay makes each Write block for d before completing.
func (p *MockPort) SetWriteDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeDelay = d
}
