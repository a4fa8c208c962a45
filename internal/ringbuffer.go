package internal

import "io"

// Ring is a ring buffer implementation. The readable region starts at Off and
// spans Len bytes. Bytes past the readable region may be staged with WriteAt
// and later made readable with Commit.
//
//	start     Off              Off+Len       len(Buf)
//	  |  free  |  readable      |  staged/free  |
type Ring struct {
	Buf []byte
	Off int
	Len int
}

// WriteAt copies b to the position off bytes past the end of the readable
// region without making it readable. It returns the amount of bytes copied,
// which is less than len(b) if b does not fit in the free space.
func (r *Ring) WriteAt(off int, b []byte) int {
	free := r.Free() - off
	if off < 0 || free <= 0 || len(b) == 0 {
		return 0
	}
	if len(b) > free {
		b = b[:free]
	}
	start := (r.Off + r.Len + off) % len(r.Buf)
	n := copy(r.Buf[start:], b)
	if n < len(b) {
		n += copy(r.Buf, b[n:])
	}
	return n
}

// Commit makes the next n staged bytes readable.
func (r *Ring) Commit(n int) {
	if n < 0 || n > r.Free() {
		panic("seqs: ring commit out of range")
	}
	r.Len += n
}

func (r *Ring) Read(b []byte) (int, error) {
	if r.Len == 0 {
		return 0, io.EOF
	}
	end := min(r.Off+r.Len, len(r.Buf))
	n := copy(b, r.Buf[r.Off:end])
	if n < len(b) && n < r.Len {
		// Data wraps around.
		n += copy(b[n:], r.Buf[:r.Len-n])
	}
	r.Off = (r.Off + n) % len(r.Buf)
	r.Len -= n
	// Off is not reset when empty: staged bytes past the readable region must stay in place.
	return n, nil
}

// Buffered returns the amount of readable bytes.
func (r *Ring) Buffered() int { return r.Len }

// Free returns the space not occupied by readable bytes.
func (r *Ring) Free() int { return len(r.Buf) - r.Len }

func (r *Ring) Reset() {
	r.Off = 0
	r.Len = 0
}
