package stream

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Stream pumps bytes between a Transport and a pair of SPSC ring
// buffers. It is the async-receive/async-transmit boundary of the
// session: the two pump goroutines stand in for the interrupt/DMA
// completion path and only ever touch ring indices; all protocol
// interpretation happens on whichever goroutine polls the consumer
// side.
//
// The rx pump is the sole producer of the receive ring, the tx pump
// its sole consumer of the transmit ring; the session's dispatch loop
// is the receive consumer and (serialized by the session mutex) the
// transmit producer.
type Stream struct {
	transport Transport
	rx        *Ring
	tx        *Ring
	logger    *slog.Logger

	errCount atomic.Uint32
	inFlight atomic.Int32 // bytes handed to transport.Write, not yet returned
	eof      atomic.Bool
	rxFault  atomic.Bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// ErrStreamClosed is returned by Write after Close.
var ErrStreamClosed = errors.New("stream closed")

// New starts the rx and tx pumps over transport. rxSize and txSize
// bound the ring buffers.
func New(transport Transport, rxSize, txSize int, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Stream{
		transport: transport,
		rx:        NewRing(rxSize),
		tx:        NewRing(txSize),
		logger:    logger,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	s.wg.Add(2)
	go s.rxPump()
	go s.txPump()
	return s
}

// Rx exposes the receive ring's consumer side, for a Reassembler.
func (s *Stream) Rx() *Ring { return s.rx }

// Available returns the number of received, unconsumed bytes.
func (s *Stream) Available() int { return s.rx.Available() }

// Outgoing returns the number of bytes enqueued for transmit that have
// not yet been physically written to the transport. Zero means the
// payload has left the buffer (subject to the transport's own FIFO).
func (s *Stream) Outgoing() int {
	return s.tx.Available() + int(s.inFlight.Load())
}

// ErrorCount returns the number of transport faults absorbed so far.
// An in-flight command simply times out rather than observing the
// fault directly.
func (s *Stream) ErrorCount() uint32 { return s.errCount.Load() }

// TakeReadFault reports and clears a pending read-fault mark. The rx
// pump only ever advances the producer index, so it cannot discard the
// bytes it received before the fault itself; the receive consumer
// checks this before interpreting and calls DropPending on a hit.
func (s *Stream) TakeReadFault() bool {
	return s.rxFault.CompareAndSwap(true, false)
}

// EOF reports whether the transport signalled end of stream.
func (s *Stream) EOF() bool { return s.eof.Load() }

// Write enqueues as much of p as the transmit ring accepts and wakes
// the tx pump. It returns the number of bytes accepted; callers poll
// and retry for the remainder (backpressure is theirs to pace).
func (s *Stream) Write(p []byte) (int, error) {
	select {
	case <-s.done:
		return 0, ErrStreamClosed
	default:
	}
	n := s.tx.Push(p)
	if n > 0 {
		s.signal()
	}
	return n, nil
}

// Flush wakes the tx pump. Write already signals; Flush exists for
// callers that paced their pushes and want an explicit kick.
func (s *Stream) Flush() { s.signal() }

// DropPending discards all received, unconsumed bytes.
func (s *Stream) DropPending() { s.rx.Drop() }

// Close stops the pumps and closes the transport.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.transport.Close()
		s.wg.Wait()
	})
	return err
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// rxPump is the receive completion path. It moves bytes from the
// transport into the rx ring and nothing else; a fault marks the
// pending bytes for the consumer to discard and reception is re-armed.
// The pump owns only the producer index, so the discard itself belongs
// to the consumer.
func (s *Stream) rxPump() {
	defer s.wg.Done()
	buf := make([]byte, 256)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := s.transport.Read(buf)
		if n > 0 {
			pushed := s.rx.Push(buf[:n])
			if pushed < n {
				s.errCount.Add(1)
				s.logger.Warn("receive ring overflow, bytes dropped", "dropped", n-pushed)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof.Store(true)
				return
			}
			select {
			case <-s.done:
				return
			default:
			}
			s.rxFault.Store(true)
			s.errCount.Add(1)
			s.logger.Warn("transport read fault, pending receive marked for discard", "error", err)
			time.Sleep(time.Millisecond)
		}
	}
}

// txPump drains the transmit ring into the transport.
func (s *Stream) txPump() {
	defer s.wg.Done()
	buf := make([]byte, 256)

	for {
		if s.tx.Available() == 0 {
			select {
			case <-s.done:
				return
			case <-s.wake:
			}
			continue
		}

		n := s.tx.Pop(buf)
		s.inFlight.Store(int32(n))
		_, err := s.transport.Write(buf[:n])
		s.inFlight.Store(0)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.errCount.Add(1)
			s.tx.Drop()
			s.logger.Warn("transport write fault, transmit buffer reset", "error", err)
			time.Sleep(time.Millisecond)
		}
	}
}
