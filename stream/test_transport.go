package stream

import (
	"bytes"
	"io"
	"sync"
)

// TestTransport is a test helper that simulates a blocking transport using
// channels. The rx pump reads from the transport in a loop, so reads must
// block until data is available (like a real serial port would).
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	written  bytes.Buffer
	closed   bool

	// OnWrite, when set, is invoked after each Write with the bytes
	// written. Tests use it to script modem replies to outgoing commands.
	OnWrite func(p []byte)
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests across packages.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 32),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	t.written.Write(p)
	hook := t.OnWrite
	t.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SetOnWrite swaps the write hook. Safe to call while the pumps run.
func (t *TestTransport) SetOnWrite(fn func(p []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.OnWrite = fn
}

// Feed queues data to be read from the transport.
// This simulates receiving data from the modem.
func (t *TestTransport) Feed(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Written returns everything written to the transport so far.
func (t *TestTransport) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}
