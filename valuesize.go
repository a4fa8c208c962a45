/*
package seqs implements the TCP connection state machine of RFC 793.

# Connection states

A connection is always in exactly one of the [Closed], [Listen], [SynSent],
[SynRcvd] or [Established] states. Each state is a small value holding only
the fields that state needs, and each knows how to react to an incoming
[Segment]: which state comes next and which segment, if any, is sent back.
[Conn] owns the current state and dispatches incoming segments to it.

# Values and Sizes

All arithmetic dealing with sequence numbers must be performed modulo 2**32
which brings with it subtleties to computer modulo arithmetic. Sequence
numbers are therefore never compared with the < and > operators, use
[Value.Before] and [Value.After] instead.
*/
package seqs

import (
	"errors"
	"math"
	"time"
)

// ErrWindowTooLarge is returned by [NewWindow] for windows that cannot be
// represented by a scaled TCP window field.
var ErrWindowTooLarge = errors.New("seqs: window size > 2**30-1")

// Value represents the value of a sequence number.
type Value uint32

// Size represents the size (length) of a sequence number window.
type Size uint32

// Before checks if v is before w (modulo 32) i.e., v < w.
func (v Value) Before(w Value) bool {
	return int32(v-w) < 0
}

// After checks if v is after w (modulo 32) i.e., v > w.
func (v Value) After(w Value) bool {
	return int32(v-w) > 0
}

// Add calculates the sequence number following the [v, v+s) window.
func (v Value) Add(s Size) Value {
	return v + Value(s)
}

// Sub returns the signed distance from w to v. It is positive when v is after w.
func (v Value) Sub(w Value) int32 {
	return int32(v - w)
}

// UpdateForward updates v such that it becomes v + s.
func (v *Value) UpdateForward(s Size) {
	*v += Value(s)
}

// InRange checks if v is in the range [a,b) (modulo 32), i.e., a <= v < b.
func InRange(v, a, b Value) bool {
	return v-a < b-a
}

// InWindow checks if v is in the window that starts at 'first' and spans 'size'
// sequence numbers (modulo 32).
func InWindow(v, first Value, size Size) bool {
	return InRange(v, first, first.Add(size))
}

// Sizeof calculates the size of the window defined by [v, w).
func Sizeof(v, w Value) Size {
	return Size(w - v)
}

// DefaultNewISS returns a new initial send sequence number.
// It's implementation is suggested by RFC9293.
func DefaultNewISS(t time.Time) Value {
	return Value(t.UnixMicro() / 4)
}

// Window is a receive or send window size. It never exceeds [WindowMax]
// so that a sequence number plus a window never laps the sequence space.
type Window uint32

const (
	// WindowZero is a closed window.
	WindowZero Window = 0
	// WindowDefault is the largest window representable without window scaling.
	WindowDefault Window = math.MaxUint16
	// WindowMax is the largest window a peer may advertise with window scaling (RFC 7323 2.3).
	WindowMax Window = 1<<30 - 1
)

// NewWindow returns n as a Window. It fails if n is larger than [WindowMax].
func NewWindow(n uint32) (Window, error) {
	if n > uint32(WindowMax) {
		return WindowZero, ErrWindowTooLarge
	}
	return Window(n), nil
}

// WindowFromInt saturates n into the valid window range. Negative values
// yield [WindowZero] and values above [WindowMax] yield WindowMax.
func WindowFromInt(n int) Window {
	switch {
	case n <= 0:
		return WindowZero
	case uint64(n) > uint64(WindowMax):
		return WindowMax
	}
	return Window(n)
}

// Size returns the window as a sequence space size.
func (w Window) Size() Size { return Size(w) }
