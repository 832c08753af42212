// Package stream models the byte-oriented link to the modem: a
// Transport (serial port, TCP emulator, or test double), a pair of
// single-producer/single-consumer ring buffers pumped by background
// goroutines, and a Reassembler that turns the receive buffer into
// discrete lines, prompts, and fixed binary chunks.
package stream

import (
	"sync/atomic"
)

// Ring is a fixed-capacity single-producer/single-consumer byte ring.
//
// Exactly one goroutine may call the producer methods (Push) and
// exactly one goroutine the consumer methods (Pop, Discard, IndexOf*,
// Drop). Indices are atomics so the two sides never need a lock: the
// producer only advances tail, the consumer only advances head. One
// slot is kept free to distinguish full from empty.
type Ring struct {
	buf  []byte
	head atomic.Uint32 // consumer position
	tail atomic.Uint32 // producer position
}

// NewRing returns a ring able to buffer size-1 bytes.
func NewRing(size int) *Ring {
	if size < 2 {
		size = 2
	}
	return &Ring{buf: make([]byte, size)}
}

// Available returns the number of buffered, unconsumed bytes.
func (r *Ring) Available() int {
	head := r.head.Load()
	tail := r.tail.Load()
	n := int(tail) - int(head)
	if n < 0 {
		n += len(r.buf)
	}
	return n
}

// Free returns the number of bytes that can be pushed without
// overwriting unconsumed data.
func (r *Ring) Free() int {
	return len(r.buf) - 1 - r.Available()
}

// Push appends as much of p as fits and returns the number of bytes
// accepted. Producer side only.
func (r *Ring) Push(p []byte) int {
	free := r.Free()
	if free == 0 {
		return 0
	}
	n := len(p)
	if n > free {
		n = free
	}

	tail := int(r.tail.Load())
	for i := 0; i < n; i++ {
		r.buf[(tail+i)%len(r.buf)] = p[i]
	}
	r.tail.Store(uint32((tail + n) % len(r.buf)))
	return n
}

// Pop consumes up to len(p) bytes into p and returns the count.
// Consumer side only.
func (r *Ring) Pop(p []byte) int {
	avail := r.Available()
	if avail == 0 {
		return 0
	}
	n := len(p)
	if n > avail {
		n = avail
	}

	head := int(r.head.Load())
	for i := 0; i < n; i++ {
		p[i] = r.buf[(head+i)%len(r.buf)]
	}
	r.head.Store(uint32((head + n) % len(r.buf)))
	return n
}

// Discard consumes and drops up to n bytes, returning the count.
// Consumer side only.
func (r *Ring) Discard(n int) int {
	avail := r.Available()
	if n > avail {
		n = avail
	}
	head := int(r.head.Load())
	r.head.Store(uint32((head + n) % len(r.buf)))
	return n
}

// IndexOfByte returns the logical offset of the first occurrence of b
// among the buffered bytes, or -1. Consumer side only.
func (r *Ring) IndexOfByte(b byte) int {
	avail := r.Available()
	head := int(r.head.Load())
	for i := 0; i < avail; i++ {
		if r.buf[(head+i)%len(r.buf)] == b {
			return i
		}
	}
	return -1
}

// IndexOf returns the logical offset of the first occurrence of
// pattern among the buffered bytes, or -1. Consumer side only.
func (r *Ring) IndexOf(pattern []byte) int {
	if len(pattern) == 0 {
		return -1
	}
	avail := r.Available()
	head := int(r.head.Load())

	for i := 0; i+len(pattern) <= avail; i++ {
		match := true
		for j := range pattern {
			if r.buf[(head+i+j)%len(r.buf)] != pattern[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Drop discards everything currently buffered. Consumer side only:
// it stores the head index, and the producer must never write an
// index it does not own.
func (r *Ring) Drop() {
	r.head.Store(r.tail.Load())
}
