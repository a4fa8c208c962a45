package seqs

import (
	"errors"
	"io"
	"log/slog"
)

// Functions in this file correspond loosely to the API described in
// https://datatracker.ietf.org/doc/html/rfc9293#name-user-tcp-interface
// The main difference is that no segment is ever sent by Conn: segments to be
// sent are returned to the caller who is in charge of putting them on the wire.

const defaultRxBufSize = 2048

var (
	errNeedClosed     = errors.New("seqs: need closed connection to open")
	errNotEstablished = errors.New("seqs: connection not established")
	errBufferSize     = errors.New("seqs: receive buffer size out of range")
	errNotReadable    = errors.New("seqs: receive buffer is not readable")
)

// ConnConfig configures a [Conn].
type ConnConfig struct {
	// RxBufSize is the receive buffer size used by the default [RingBuffer]. Defaults to 2048.
	RxBufSize int
	// NewBuffer, if set, is called with RxBufSize when the connection becomes
	// established to obtain its receive buffer.
	NewBuffer func(size int) ReceiveBuffer
	// Logger receives connection state transitions. May be nil.
	Logger *slog.Logger
}

// Conn owns the state of a single TCP connection and dispatches incoming
// segments to it. Conn is not safe for concurrent use: segments of one
// connection must be passed to OnSegment one at a time in arrival order.
type Conn struct {
	state     ConnState
	rxbufSize int
	newBuffer func(size int) ReceiveBuffer
	logger
}

// NewConn returns a closed connection.
func NewConn(cfg ConnConfig) (*Conn, error) {
	if cfg.RxBufSize == 0 {
		cfg.RxBufSize = defaultRxBufSize
	}
	if cfg.RxBufSize < 0 || uint64(cfg.RxBufSize) > uint64(WindowMax) {
		return nil, errBufferSize
	}
	if cfg.NewBuffer == nil {
		cfg.NewBuffer = func(size int) ReceiveBuffer { return NewRingBuffer(size) }
	}
	c := &Conn{
		state:     Closed{},
		rxbufSize: cfg.RxBufSize,
		newBuffer: cfg.NewBuffer,
		logger:    logger{log: cfg.Logger},
	}
	return c, nil
}

// State returns the current state of the connection.
func (c *Conn) State() State { return c.state.State() }

// Current returns the data of the current state. The returned *Established,
// if any, is owned by the connection.
func (c *Conn) Current() ConnState { return c.state }

// Err returns the reason the connection is closed, or nil.
func (c *Conn) Err() error {
	if closed, ok := c.state.(Closed); ok {
		return closed.Reason
	}
	return nil
}

// Connect performs an active open. The returned SYN must be sent to the peer.
func (c *Conn) Connect(iss Value) (Segment, error) {
	closed, ok := c.state.(Closed)
	if !ok {
		c.logerr("conn:connect", slog.String("err", errNeedClosed.Error()))
		return Segment{}, errNeedClosed
	}
	synsent, syn := closed.Connect(iss)
	c.transition(synsent)
	return syn, nil
}

// Listen performs a passive open.
func (c *Conn) Listen(iss Value) error {
	closed, ok := c.state.(Closed)
	if !ok {
		c.logerr("conn:listen", slog.String("err", errNeedClosed.Error()))
		return errNeedClosed
	}
	c.transition(closed.Listen(iss))
	return nil
}

// OnSegment processes a segment received from the network, moves the
// connection to its next state and returns the segment to send back, if any.
func (c *Conn) OnSegment(seg Segment) (reply Segment, ok bool) {
	c.traceSeg("conn:rcv", seg)
	next := c.state
	switch s := c.state.(type) {
	case Closed:
		reply, ok = s.OnSegment(seg)
	case Listen:
		next, reply, ok = s.OnSegment(seg)
	case SynSent:
		next, reply, ok = s.OnSegment(seg, c.allocBuffer)
	case SynRcvd:
		next, reply, ok = s.OnSegment(seg, c.allocBuffer)
	case *Established:
		next, reply, ok = s.OnSegment(seg)
	default:
		panic("unexpected connection state")
	}
	c.transition(next)
	if ok {
		c.traceSeg("conn:reply", reply)
	}
	return reply, ok
}

// Send stamps an outgoing data segment on an established connection.
// See [Established.Send].
func (c *Conn) Send(data []byte) (Segment, error) {
	established, ok := c.state.(*Established)
	if !ok {
		return Segment{}, errNotEstablished
	}
	seg := established.Send(data)
	c.traceSeg("conn:snd", seg)
	return seg, nil
}

// Read reads data made readable in the receive buffer. The buffer must
// implement [io.Reader], as [RingBuffer] does.
func (c *Conn) Read(b []byte) (int, error) {
	established, ok := c.state.(*Established)
	if !ok {
		return 0, errNotEstablished
	}
	r, ok := established.Rcv.Buffer.(io.Reader)
	if !ok {
		return 0, errNotReadable
	}
	return r.Read(b)
}

func (c *Conn) allocBuffer() ReceiveBuffer {
	return c.newBuffer(c.rxbufSize)
}

func (c *Conn) transition(next ConnState) {
	prev := c.state
	c.state = next
	if prev.State() == next.State() {
		return
	}
	if closed, ok := next.(Closed); ok && closed.Reason != nil {
		c.debug("conn:closed", slog.String("prev", prev.State().String()), slog.String("reason", closed.Reason.Error()))
		return
	}
	if next.State() == StateEstablished && prev.State().IsPreestablished() {
		c.debug("conn:established", slog.String("prev", prev.State().String()))
		return
	}
	c.debug("conn:transition", slog.String("prev", prev.State().String()), slog.String("state", next.State().String()))
}
