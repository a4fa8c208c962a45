package seqs

import (
	"io"

	"github.com/tcpfsm/seqs/internal"
)

var (
	_ ReceiveBuffer = (*RingBuffer)(nil)
	_ io.Reader     = (*RingBuffer)(nil)
)

// ReceiveBuffer is where an [Established] connection places received data.
// It is owned by the connection for the connection's lifetime; the consumer
// side (reading out readable bytes) belongs to whoever created it.
type ReceiveBuffer interface {
	// Cap returns the total capacity of the buffer.
	Cap() int
	// Len returns the amount of readable bytes not yet consumed.
	Len() int
	// WriteAt writes data offset bytes past the end of the readable bytes
	// and returns how many bytes were written, which may be fewer than
	// len(data) if the buffer is full.
	WriteAt(offset int, data []byte) int
	// MakeReadable marks the next n written bytes as readable.
	MakeReadable(n int)
}

// window returns the receive window a buffer can currently accept.
func window(buf ReceiveBuffer) Window {
	return WindowFromInt(buf.Cap() - buf.Len())
}

// RingBuffer is a fixed size [ReceiveBuffer] backed by a ring. Consumers read
// from it with Read, which reopens the receive window.
type RingBuffer struct {
	r internal.Ring
}

// NewRingBuffer allocates a RingBuffer of the given size.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		panic("invalid argument to NewRingBuffer")
	}
	return &RingBuffer{r: internal.Ring{Buf: make([]byte, size)}}
}

func (rb *RingBuffer) Cap() int { return len(rb.r.Buf) }

func (rb *RingBuffer) Len() int { return rb.r.Buffered() }

func (rb *RingBuffer) WriteAt(offset int, data []byte) int { return rb.r.WriteAt(offset, data) }

func (rb *RingBuffer) MakeReadable(n int) { rb.r.Commit(n) }

// Read reads readable bytes. It returns [io.EOF] when there is nothing to read.
func (rb *RingBuffer) Read(b []byte) (int, error) { return rb.r.Read(b) }

// Reset discards all readable and staged bytes.
func (rb *RingBuffer) Reset() { rb.r.Reset() }
