package stream

import (
	"bytes"
	"testing"
)

func TestRingPushPop(t *testing.T) {
	r := NewRing(8)

	if got := r.Available(); got != 0 {
		t.Errorf("Available() = %d, want 0", got)
	}
	if got := r.Free(); got != 7 {
		t.Errorf("Free() = %d, want 7", got)
	}

	n := r.Push([]byte("abc"))
	if n != 3 {
		t.Fatalf("Push() = %d, want 3", n)
	}
	if got := r.Available(); got != 3 {
		t.Errorf("Available() = %d, want 3", got)
	}

	buf := make([]byte, 2)
	n = r.Pop(buf)
	if n != 2 || !bytes.Equal(buf, []byte("ab")) {
		t.Errorf("Pop() = %d %q, want 2 %q", n, buf, "ab")
	}
	n = r.Pop(buf)
	if n != 1 || buf[0] != 'c' {
		t.Errorf("Pop() = %d %q, want 1 %q", n, buf[:n], "c")
	}
	if got := r.Pop(buf); got != 0 {
		t.Errorf("Pop() on empty ring = %d, want 0", got)
	}
}

func TestRingRejectsOverflow(t *testing.T) {
	r := NewRing(4) // holds 3 bytes

	n := r.Push([]byte("abcdef"))
	if n != 3 {
		t.Fatalf("Push() = %d, want 3", n)
	}
	if got := r.Push([]byte("x")); got != 0 {
		t.Errorf("Push() on full ring = %d, want 0", got)
	}

	buf := make([]byte, 8)
	n = r.Pop(buf)
	if !bytes.Equal(buf[:n], []byte("abc")) {
		t.Errorf("Pop() = %q, want %q", buf[:n], "abc")
	}
}

func TestRingWraparound(t *testing.T) {
	r := NewRing(8)
	buf := make([]byte, 8)

	// March the indices around the buffer several times.
	for i := 0; i < 10; i++ {
		if n := r.Push([]byte("12345")); n != 5 {
			t.Fatalf("iteration %d: Push() = %d, want 5", i, n)
		}
		n := r.Pop(buf)
		if !bytes.Equal(buf[:n], []byte("12345")) {
			t.Fatalf("iteration %d: Pop() = %q, want %q", i, buf[:n], "12345")
		}
	}
}

func TestRingIndexOfByte(t *testing.T) {
	r := NewRing(8)
	// Force the pattern to straddle the physical end of the buffer.
	r.Push([]byte("xxxxx"))
	r.Discard(5)
	r.Push([]byte("abc>"))

	if got := r.IndexOfByte('>'); got != 3 {
		t.Errorf("IndexOfByte('>') = %d, want 3", got)
	}
	if got := r.IndexOfByte('?'); got != -1 {
		t.Errorf("IndexOfByte('?') = %d, want -1", got)
	}
}

func TestRingIndexOf(t *testing.T) {
	r := NewRing(16)
	r.Push([]byte("OK\r\nrest"))

	if got := r.IndexOf([]byte("\r\n")); got != 2 {
		t.Errorf("IndexOf(CRLF) = %d, want 2", got)
	}
	if got := r.IndexOf([]byte("zz")); got != -1 {
		t.Errorf("IndexOf(zz) = %d, want -1", got)
	}
	if got := r.IndexOf(nil); got != -1 {
		t.Errorf("IndexOf(nil) = %d, want -1", got)
	}
}

func TestRingDrop(t *testing.T) {
	r := NewRing(8)
	r.Push([]byte("abcde"))
	r.Drop()
	if got := r.Available(); got != 0 {
		t.Errorf("Available() after Drop = %d, want 0", got)
	}
	if got := r.Free(); got != 7 {
		t.Errorf("Free() after Drop = %d, want 7", got)
	}
}
