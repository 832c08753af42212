package ril

import (
	"errors"
	"fmt"

	"github.com/hamsadev/ril/at"
)

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrTimeout is returned when a command's final result code does not
	// arrive within the command deadline. Received partial response data
	// is dropped so the next command starts from a clean buffer.
	ErrTimeout = errors.New("command timed out")

	// ErrBusy is returned by TrySendCommand when another command is in
	// flight. SendCommand blocks instead.
	ErrBusy = errors.New("command in progress")

	// ErrInvalidParam is returned for malformed arguments, such as an
	// empty command string or a nil payload.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrUninitialized is returned when a command is submitted before
	// Start has completed successfully.
	ErrUninitialized = errors.New("session not initialized")

	// ErrClosed is returned for operations on a closed Session.
	ErrClosed = errors.New("session closed")

	// ErrNoResponse is returned by Start when the device answers none of
	// the liveness probes, even after power cycling.
	ErrNoResponse = errors.New("device not responding")

	// ErrRejected is returned when the command's response callback
	// judged a delivered line or chunk as a failure.
	ErrRejected = errors.New("response rejected by handler")

	// ErrNotFound is returned when the device completed a query
	// successfully but the requested record does not exist.
	ErrNotFound = errors.New("not found on device")
)

// CommandError is the failure final result of a command: a bare
// "ERROR" line or a "+CME ERROR: <n>" / "+CMS ERROR: <n>" report.
type CommandError struct {
	// Code is the numeric error from the final line, or
	// at.ErrCodeUnspecified when the device reported none.
	Code uint16
	// Line is the verbatim final line.
	Line string
}

func (e *CommandError) Error() string {
	if e.Code == at.ErrCodeUnspecified {
		return fmt.Sprintf("command failed: %s", e.Line)
	}
	return fmt.Sprintf("command failed: %s (code %d)", e.Line, e.Code)
}
