package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=stream

// Transport represents an established, bidirectional byte link to a
// modem.
//
// A Transport is assumed to be already connected and ready for use.
// Typical implementations are serial ports, TCP connections to
// emulators, or in-memory fakes used for testing. Read should block
// until at least one byte is available, like a serial port with no
// read timeout.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a modem.
//
// Dialer abstracts how the connection is created and is used during
// session construction only; once a Transport is obtained the Dialer
// is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may block and
	// should respect cancellation from the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a modem over a local serial port.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// Mode configures baud rate, parity, data and stop bits. Nil
	// selects 115200 8N1.
	Mode *serial.Mode
}

// Dial opens the configured serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("stream: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("stream: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: 115200,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}
	return port, nil
}
