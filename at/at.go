// Package at contains the protocol-level pieces of the AT command
// language that carry no session state: the vocabulary of final result
// tokens, classification of completed response lines, and the generic
// comma-separated value tokenizer shared by URC and command-response
// parsing.
package at

import (
	"bytes"
	"strconv"
)

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = '>'
	CtrlZ  = "\x1a"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"
)

// ErrCodeUnspecified is reported for a bare "ERROR" final line, which
// carries no numeric code.
const ErrCodeUnspecified = 0xFFFF

// Class is the classification of one completed response line.
type Class int

const (
	ClassData       Class = iota // intermediate output, belongs to the active command
	ClassFinalOK                 // OK
	ClassFinalError              // ERROR, +CME ERROR: n, +CMS ERROR: n
	ClassEcho                    // device echo of the submitted command
)

// Classify identifies the nature of a completed modem output line.
//
// Echo detection runs first because the device's command echo is not
// meaningful protocol content; error detection runs before OK so that
// "+CME ERROR" style lines are never mistaken for data. Lines that are
// neither echo nor a final token are data and belong to whoever is
// reading the response; the caller decides whether a data line is a
// catalogued URC.
func Classify(line []byte, echoPending bool, cmd []byte) Class {
	if echoPending && bytes.Equal(line, cmd) {
		return ClassEcho
	}
	if IsFinalError(line) {
		return ClassFinalError
	}
	if bytes.Equal(line, []byte(OK)) {
		return ClassFinalOK
	}
	return ClassData
}

// IsFinalError reports whether line is an error final result code.
func IsFinalError(line []byte) bool {
	if bytes.Equal(line, []byte(ERROR)) {
		return true
	}
	return bytes.HasPrefix(line, []byte(CmeError)) || bytes.HasPrefix(line, []byte(CmsError))
}

// ErrorCode extracts the numeric code from a "+CME ERROR: <n>" or
// "+CMS ERROR: <n>" line. A bare "ERROR" yields ErrCodeUnspecified.
// The second return value is false when line is not an error final at
// all.
func ErrorCode(line []byte) (uint16, bool) {
	var rest []byte
	switch {
	case bytes.HasPrefix(line, []byte(CmeError)):
		rest = line[len(CmeError):]
	case bytes.HasPrefix(line, []byte(CmsError)):
		rest = line[len(CmsError):]
	case bytes.Equal(line, []byte(ERROR)):
		return ErrCodeUnspecified, true
	default:
		return 0, false
	}

	rest = bytes.TrimSpace(rest)
	n, err := strconv.ParseUint(string(rest), 10, 16)
	if err != nil {
		// Some firmwares report verbose error strings when CMEE=2.
		return ErrCodeUnspecified, true
	}
	return uint16(n), true
}
