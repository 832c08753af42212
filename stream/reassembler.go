package stream

import "github.com/hamsadev/ril/at"

var crlf = []byte(at.CRLF)

// Reassembler turns the receive ring into discrete protocol units:
// CRLF-terminated lines, '>' prompts, and fixed-size binary chunks.
// Every Try method is a non-blocking poll; callers re-poll until data
// accumulates.
//
// The scratch buffer bounds the maximum line length. A CRLF-less run
// that fills it is consumed and surfaced as a truncated line with the
// Truncated flag raised, so a noisy or binary-desynced link degrades
// to flagged garbage instead of overflowing or wedging the session.
//
// Returned slices alias the scratch buffer and are only valid until
// the next Try call.
type Reassembler struct {
	in        *Ring
	scratch   []byte
	truncated bool
}

// NewReassembler returns a reassembler over in with the given maximum
// line length.
func NewReassembler(in *Ring, maxLine int) *Reassembler {
	if maxLine < 16 {
		maxLine = 16
	}
	return &Reassembler{in: in, scratch: make([]byte, maxLine)}
}

// MaxLine returns the scratch capacity in bytes.
func (r *Reassembler) MaxLine() int { return len(r.scratch) }

// Truncated reports whether a line was truncated since the last
// ClearTruncated.
func (r *Reassembler) Truncated() bool { return r.truncated }

// ClearTruncated resets the truncation flag.
func (r *Reassembler) ClearTruncated() { r.truncated = false }

// TryReadLine returns the next complete line with its CRLF terminator
// stripped (plus a lone trailing '\r', which some firmwares emit
// before the terminator). It returns false when no complete line is
// buffered yet.
func (r *Reassembler) TryReadLine() ([]byte, bool) {
	i := r.in.IndexOf(crlf)
	if i < 0 {
		// No terminator in sight. If the buffered run already exceeds
		// the maximum line length, or the ring is full and can take no
		// terminator at all, the line can never complete: consume it
		// as a truncated line.
		if r.in.Available() >= len(r.scratch) || r.in.Free() == 0 {
			n := r.in.Pop(r.scratch)
			r.truncated = true
			return r.scratch[:n], true
		}
		return nil, false
	}

	if i > len(r.scratch) {
		// Terminator exists but the line is oversized: deliver the
		// first scratch-full, leave the rest for the next poll.
		n := r.in.Pop(r.scratch)
		r.truncated = true
		return r.scratch[:n], true
	}

	n := r.in.Pop(r.scratch[:i])
	r.in.Discard(len(crlf))
	if n > 0 && r.scratch[n-1] == '\r' {
		n--
	}
	return r.scratch[:n], true
}

// TryReadPrompt consumes through the first '>' byte and reports
// whether one was seen. Bytes preceding the prompt are discarded.
func (r *Reassembler) TryReadPrompt() bool {
	i := r.in.IndexOfByte(at.Prompt)
	if i < 0 {
		return false
	}
	r.in.Discard(i + 1)
	return true
}

// TryReadFixed returns exactly n raw bytes once that many have been
// buffered. n must not exceed MaxLine.
func (r *Reassembler) TryReadFixed(n int) ([]byte, bool) {
	if n <= 0 || n > len(r.scratch) {
		return nil, false
	}
	if r.in.Available() < n {
		return nil, false
	}
	r.in.Pop(r.scratch[:n])
	return r.scratch[:n], true
}
