package internal

import (
	"bytes"
	"testing"
)

func TestRing(t *testing.T) {
	const bufSize = 10
	r := &Ring{Buf: make([]byte, bufSize)}
	data := []byte("hello")
	n := r.WriteAt(0, data)
	if n != len(data) {
		t.Fatalf("write: n=%d", n)
	}
	r.Commit(n)
	if r.Buffered() != len(data) || r.Free() != bufSize-len(data) {
		t.Fatalf("buffered=%d free=%d", r.Buffered(), r.Free())
	}
	rdbuf := make([]byte, 3)
	n, _ = r.Read(rdbuf)
	if !bytes.Equal(rdbuf[:n], data[:3]) {
		t.Fatalf("read %q", rdbuf[:n])
	}
	// Fill up and wrap.
	n = r.WriteAt(0, []byte("123456789"))
	if n != 8 {
		t.Fatalf("wrap write: n=%d, want 8", n)
	}
	r.Commit(n)
	if n = r.WriteAt(0, []byte("x")); n != 0 || r.Free() != 0 {
		t.Errorf("wrote %d bytes to full ring, free=%d", n, r.Free())
	}
	got := make([]byte, bufSize)
	n, _ = r.Read(got)
	if string(got[:n]) != "lo12345678" {
		t.Errorf("got %q", got[:n])
	}
}

func TestRing_WriteAt(t *testing.T) {
	r := &Ring{Buf: make([]byte, 6), Off: 4}
	if n := r.WriteAt(2, []byte("cdef")); n != 4 {
		t.Fatalf("n=%d", n)
	}
	if n := r.WriteAt(6, []byte("x")); n != 0 {
		t.Errorf("wrote at offset past buffer: n=%d", n)
	}
	if n := r.WriteAt(-1, []byte("x")); n != 0 {
		t.Errorf("wrote at negative offset: n=%d", n)
	}
	r.WriteAt(0, []byte("ab"))
	r.Commit(6)
	got := make([]byte, 6)
	n, _ := r.Read(got)
	if string(got[:n]) != "abcdef" {
		t.Errorf("got %q", got[:n])
	}
}

func TestRing_CommitOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	r := &Ring{Buf: make([]byte, 4)}
	r.Commit(5)
}
