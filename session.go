// Package ril implements an AT command session engine for cellular
// modems: command/response matching over a byte transport, line
// reassembly, echo suppression, binary payload phases and unsolicited
// result code dispatch.
//
// A Session serializes commands from any number of goroutines. The
// response to each command is streamed line by line to the submitting
// caller's response callback; final result codes (OK, ERROR, +CME
// ERROR) are consumed by the session itself. Unsolicited reports
// arriving while no command is in flight are matched against the URC
// catalog and delivered to the configured handler from ServiceTick.
package ril

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hamsadev/ril/at"
	"github.com/hamsadev/ril/stream"
)

// State reports whether a command is in flight.
type State int32

const (
	StateReady State = iota
	StateBusy
)

func (s State) String() string {
	if s == StateBusy {
		return "busy"
	}
	return "ready"
}

// Verdict is a response callback's judgement of one delivered line or
// binary chunk.
type Verdict int

const (
	// Continue leaves the command open; the session keeps delivering
	// lines until a final result code arrives.
	Continue Verdict = iota
	// Done completes the command successfully without waiting for a
	// final result code.
	Done
	// Fail completes the command with ErrRejected.
	Fail
)

// ResponseFunc receives the intermediate response lines of the command
// it was submitted with. In binary operation it receives raw payload
// chunks instead. The slice is only valid for the duration of the
// call.
type ResponseFunc func(line []byte) Verdict

type operationMode int32

const (
	opNormal operationMode = iota
	opBinary
)

// Session is a command/response engine over one modem transport.
type Session struct {
	cfg    Config
	log    *slog.Logger
	stream *stream.Stream
	reasm  *stream.Reassembler

	// mu serializes command submitters. The holder of mu is the sole
	// consumer of the receive ring.
	mu sync.Mutex

	state       atomic.Int32
	mode        atomic.Int32 // operationMode; written by callbacks via SetOperationBinary
	expected    atomic.Int32 // remaining binary payload bytes
	lastErr     atomic.Uint32
	initialized atomic.Bool
	closed      atomic.Bool

	urcCb URCFunc
}

// New validates cfg, dials the transport and returns a Session ready
// for Start. No bytes are exchanged with the device yet.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	transport, err := cfg.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial transport: %w", err)
	}

	st := stream.New(transport, cfg.RxBufferSize, cfg.TxBufferSize, logger)
	return &Session{
		cfg:    cfg,
		log:    logger,
		stream: st,
		reasm:  stream.NewReassembler(st.Rx(), cfg.MaxLineLength),
		urcCb:  cfg.URCHandler,
	}, nil
}

// Start brings the device to a known state: liveness probes with
// optional power cycling, echo and verbosity setup, numeric error
// reporting, and activation of the catalogued unsolicited reports when
// a handler is configured. Start is idempotent; a second call after
// success returns nil without touching the device.
func (s *Session) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized.Load() {
		return nil
	}

	if err := s.probe(ctx); err != nil {
		return err
	}

	echo := "ATE0"
	if s.cfg.Echo {
		echo = "ATE1"
	}
	setup := []string{echo, "ATV1", "AT+CMEE=1"}
	if s.urcCb != nil {
		setup = append(setup, activationCommands()...)
	}
	for _, cmd := range setup {
		if err := s.exec(ctx, []byte(cmd+at.CRLF), []byte(cmd), nil, false, false); err != nil {
			return fmt.Errorf("init %q: %w", cmd, err)
		}
	}

	s.initialized.Store(true)
	s.log.Info("session initialized", "urc_handler", s.urcCb != nil)
	return nil
}

// probe repeats short "AT" liveness checks, power cycling between
// rounds when a hook is configured.
func (s *Session) probe(ctx context.Context) error {
	for attempt := 0; attempt <= s.cfg.PowerRetries; attempt++ {
		if attempt > 0 {
			if s.cfg.PowerCycle == nil {
				break
			}
			s.log.Info("device silent, power cycling", "attempt", attempt)
			if err := s.cfg.PowerCycle(ctx); err != nil {
				return fmt.Errorf("power cycle: %w", err)
			}
		}

		for i := 0; i < s.cfg.ProbeAttempts; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
			err := s.exec(probeCtx, []byte("AT"+at.CRLF), []byte("AT"), nil, false, false)
			cancel()
			if err == nil {
				return nil
			}
		}
	}
	return ErrNoResponse
}

// SendCommand transmits cmd (terminator appended) and blocks until its
// final result code, the context deadline, or the configured command
// timeout. Intermediate response lines are delivered to cb; a nil cb
// discards them and waits for OK. Concurrent callers queue on the
// session lock.
func (s *Session) SendCommand(ctx context.Context, cmd string, cb ResponseFunc) error {
	if err := s.usable(cmd); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(ctx, []byte(cmd+at.CRLF), []byte(cmd), cb, false, false)
}

// TrySendCommand is SendCommand without queueing: it returns ErrBusy
// immediately when another command is in flight.
func (s *Session) TrySendCommand(ctx context.Context, cmd string, cb ResponseFunc) error {
	if err := s.usable(cmd); err != nil {
		return err
	}
	if !s.mu.TryLock() {
		return ErrBusy
	}
	defer s.mu.Unlock()
	return s.exec(ctx, []byte(cmd+at.CRLF), []byte(cmd), cb, false, false)
}

// SendCommandWithPrompt transmits cmd and returns once the device
// answers with its '>' data prompt, or with an error final. The caller
// follows up with SendBinary to supply the payload the device is now
// waiting for.
func (s *Session) SendCommandWithPrompt(ctx context.Context, cmd string) error {
	if err := s.usable(cmd); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(ctx, []byte(cmd+at.CRLF), []byte(cmd), nil, true, false)
}

// SendBinary transmits data verbatim, waits for the transmit buffer to
// drain, then blocks for the final result code like SendCommand. Echo
// suppression is off: the device does not echo binary payloads.
func (s *Session) SendBinary(ctx context.Context, data []byte, cb ResponseFunc) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.initialized.Load() {
		return ErrUninitialized
	}
	if len(data) == 0 {
		return ErrInvalidParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(ctx, data, nil, cb, false, true)
}

func (s *Session) usable(cmd string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.initialized.Load() {
		return ErrUninitialized
	}
	if cmd == "" {
		return ErrInvalidParam
	}
	return nil
}

// exec runs one command exchange. The caller holds mu.
func (s *Session) exec(ctx context.Context, payload, echo []byte, cb ResponseFunc, wantPrompt, drainTx bool) error {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		deadline = time.Now().Add(s.cfg.CommandTimeout)
	}

	s.lastErr.Store(0)
	s.state.Store(int32(StateBusy))
	timedOut := false
	defer func() {
		// Whatever the outcome, the next command starts in normal
		// operation. On timeout the buffer may hold a half response,
		// drop it rather than let it leak into the next exchange.
		s.setMode(opNormal, 0)
		if timedOut {
			s.stream.DropPending()
		}
		s.state.Store(int32(StateReady))
	}()

	if err := s.transmit(ctx, deadline, payload); err != nil {
		return err
	}
	if drainTx {
		if err := s.drain(ctx, deadline, len(payload)); err != nil {
			return err
		}
	}

	echoPending := len(echo) > 0

	for {
		if s.closed.Load() || s.stream.EOF() {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				timedOut = true
				return ErrTimeout
			}
			return err
		}
		if time.Now().After(deadline) {
			timedOut = true
			return ErrTimeout
		}
		// The pump marks read faults; the receive consumer discards.
		if s.stream.TakeReadFault() {
			s.stream.DropPending()
		}

		if operationMode(s.mode.Load()) == opBinary {
			done, err := s.pollBinary(cb)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			time.Sleep(s.cfg.PollInterval)
			continue
		}

		line, ok := s.reasm.TryReadLine()
		if !ok {
			if wantPrompt && s.reasm.TryReadPrompt() {
				return nil
			}
			time.Sleep(s.cfg.PollInterval)
			continue
		}
		if s.reasm.Truncated() {
			s.log.Warn("response line truncated", "length", len(line))
			s.reasm.ClearTruncated()
		}
		// Blank lines, and the lone space some devices append after
		// the data prompt, carry nothing.
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		switch at.Classify(line, echoPending, echo) {
		case at.ClassEcho:
			echoPending = false

		case at.ClassFinalOK:
			return nil

		case at.ClassFinalError:
			code, _ := at.ErrorCode(line)
			s.lastErr.Store(uint32(code))
			return &CommandError{Code: code, Line: string(line)}

		case at.ClassData:
			if cb == nil {
				s.logUnclaimed(line)
				continue
			}
			switch cb(line) {
			case Done:
				return nil
			case Fail:
				return ErrRejected
			case Continue:
				s.logUnclaimed(line)
			}
		}
	}
}

// pollBinary moves raw payload bytes to the callback while the session
// is in binary operation. Chunks are bounded by the line buffer; a
// payload longer than it arrives in several callback invocations.
func (s *Session) pollBinary(cb ResponseFunc) (bool, error) {
	want := int(s.expected.Load())
	if want <= 0 {
		s.setMode(opNormal, 0)
		return false, nil
	}
	chunk := want
	if lim := s.reasm.MaxLine(); chunk > lim {
		chunk = lim
	}

	data, ok := s.reasm.TryReadFixed(chunk)
	if !ok {
		return false, nil
	}
	remaining := s.expected.Add(-int32(len(data)))
	if remaining <= 0 {
		s.setMode(opNormal, 0)
	}

	if cb == nil {
		return remaining <= 0, nil
	}
	switch cb(data) {
	case Done:
		return true, nil
	case Fail:
		return false, ErrRejected
	}
	// Continue in normal operation resumes line reassembly for the
	// final result code.
	return false, nil
}

// logUnclaimed debug-logs a data line nobody consumed. Catalogued
// reports arriving mid-command are deliberately not forwarded to the
// URC handler: the active command owns the receive stream and a
// response line that happens to share a report prefix must not be
// stolen from it.
func (s *Session) logUnclaimed(line []byte) {
	if u, ok := ParseURC(string(line)); ok {
		s.log.Debug("unsolicited report during command", "type", int(u.Type), "line", u.Line)
		return
	}
	s.log.Debug("unclaimed response line", "line", string(line))
}

// transmit pushes payload through the bounded transmit ring, pacing on
// backpressure.
func (s *Session) transmit(ctx context.Context, deadline time.Time, p []byte) error {
	for len(p) > 0 {
		n, err := s.stream.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
		if len(p) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(s.cfg.PollInterval)
	}
	return nil
}

// drain waits until the transmit path reports all bytes handed to the
// transport. The bound assumes a worst case near 9600 baud plus fixed
// slack, capped by the command deadline.
func (s *Session) drain(ctx context.Context, deadline time.Time, n int) error {
	limit := time.Now().Add(time.Duration(n)*time.Millisecond/10 + 2*time.Second)
	if limit.After(deadline) {
		limit = deadline
	}
	for s.stream.Outgoing() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(limit) {
			return ErrTimeout
		}
		time.Sleep(s.cfg.PollInterval)
	}
	return nil
}

// ServiceTick polls the receive buffer for unsolicited reports. Call
// it periodically from one goroutine; a tick that finds a command in
// flight returns immediately, the in-flight command owns the stream.
func (s *Session) ServiceTick() {
	if s.closed.Load() {
		return
	}
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()

	if s.stream.TakeReadFault() {
		s.stream.DropPending()
	}
	for {
		line, ok := s.reasm.TryReadLine()
		if !ok {
			return
		}
		if s.reasm.Truncated() {
			s.log.Warn("unsolicited line truncated", "length", len(line))
			s.reasm.ClearTruncated()
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		str := string(line)
		if u, ok := ParseURC(str); ok {
			if s.urcCb != nil {
				s.urcCb(u)
			} else {
				s.log.Debug("unsolicited report dropped, no handler", "line", str)
			}
			continue
		}
		s.log.Debug("discarding stray line", "line", str)
	}
}

// SetOperationBinary switches the session to binary operation for the
// next n received bytes. It is meant to be called from a response
// callback that has just parsed a CONNECT style header announcing a
// raw payload.
func (s *Session) SetOperationBinary(n int) {
	if n <= 0 {
		return
	}
	s.setMode(opBinary, int32(n))
}

// SetOperationNormal returns the session to line-oriented operation.
// Every command completion does this implicitly.
func (s *Session) SetOperationNormal() {
	s.setMode(opNormal, 0)
}

func (s *Session) setMode(m operationMode, expected int32) {
	s.expected.Store(expected)
	s.mode.Store(int32(m))
}

// State reports whether a command is currently in flight.
func (s *Session) State() State {
	return State(s.state.Load())
}

// LastErrorCode returns the device error code of the most recent
// failed command, at.ErrCodeUnspecified for a bare ERROR, or zero when
// the last command succeeded.
func (s *Session) LastErrorCode() uint16 {
	return uint16(s.lastErr.Load())
}

// SetLastError overrides the stored device error code. Response
// callbacks use it when a failure is reported inside a data line
// rather than a final result code.
func (s *Session) SetLastError(code uint16) {
	s.lastErr.Store(uint32(code))
}

// TransportErrors returns the number of transport faults absorbed by
// the receive and transmit pumps since the session was created.
func (s *Session) TransportErrors() uint32 {
	return s.stream.ErrorCount()
}

// Close shuts the transport down. In-flight commands observe ErrClosed
// on their next poll. A second Close returns ErrClosed.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.stream.Close()
}
