package seqs

// Handlers in this file implement the SEGMENT ARRIVES event of RFC 793 section 3.9
// for each state. Each returns the state the connection moves to and the
// segment to reply with, if any. Handlers never fail: segments that cannot be
// processed are answered with a RST or ACK, or silently dropped.

// Connect performs an active open with local initial send sequence number iss.
// The returned SYN must be sent to the peer.
func (Closed) Connect(iss Value) (SynSent, Segment) {
	return SynSent{ISS: iss}, NewSYN(iss, WindowDefault)
}

// Listen performs a passive open with local initial send sequence number iss.
func (Closed) Listen(iss Value) Listen {
	return Listen{ISS: iss}
}

// OnSegment handles a segment arriving at a closed connection. All data in
// the segment is discarded and anything but a RST is answered with a RST.
func (Closed) OnSegment(seg Segment) (reply Segment, ok bool) {
	switch {
	case seg.Flags.HasAny(FlagRST):
		return Segment{}, false
	case seg.HasACK():
		return NewRST(seg.ACK), true
	}
	return NewRSTACK(0, seg.End()), true
}

// OnSegment handles a segment arriving in the LISTEN state.
func (l Listen) OnSegment(seg Segment) (next ConnState, reply Segment, ok bool) {
	switch {
	case seg.Flags.HasAny(FlagRST):
		return l, Segment{}, false
	case seg.HasACK():
		// Any acknowledgment is bad if it arrives on a connection still in the LISTEN state.
		return l, NewRST(seg.ACK), true
	case seg.Flags.HasAny(FlagSYN):
		// We must respond with SYN|ACK frame after receiving SYN in listen state (three way handshake).
		irs := seg.SEQ
		return SynRcvd{ISS: l.ISS, IRS: irs}, NewSYNACK(l.ISS, irs+1, WindowDefault), true
	}
	return l, Segment{}, false
}

// OnSegment handles a segment arriving in the SYN-SENT state. newbuf is called
// to obtain the receive buffer if the connection becomes established.
func (s SynSent) OnSegment(seg Segment, newbuf func() ReceiveBuffer) (next ConnState, reply Segment, ok bool) {
	hasAck := seg.HasACK()
	hasRst := seg.Flags.HasAny(FlagRST)
	// Our SYN occupies ISS so the only acceptable acknowledgment is ISS+1.
	if hasAck && seg.ACK != s.ISS+1 {
		if hasRst {
			return Closed{Reason: ErrConnectionReset}, Segment{}, false
		}
		return Closed{Reason: ErrConnectionReset}, NewRST(seg.ACK), true
	}
	switch {
	case hasRst && hasAck:
		return Closed{Reason: ErrConnectionReset}, Segment{}, false
	case hasRst:
		// RST without ACK cannot be verified to belong to this connection.
		return s, Segment{}, false
	case !seg.Flags.HasAny(FlagSYN):
		return s, Segment{}, false
	case hasAck:
		irs := seg.SEQ
		established := &Established{
			Snd: Send{NXT: s.ISS + 1, UNA: seg.ACK, WND: seg.WND},
			Rcv: Recv{Buffer: newbuf(), Assembler: NewAssembler(irs + 1)},
		}
		return established, NewACK(s.ISS+1, irs+1, established.Rcv.WND()), true
	}
	// Simultaneous connection sync edge case.
	irs := seg.SEQ
	return SynRcvd{ISS: s.ISS, IRS: irs}, NewSYNACK(s.ISS, irs+1, WindowDefault), true
}

// OnSegment handles a segment arriving in the SYN-RECEIVED state. newbuf is called
// to obtain the receive buffer if the connection becomes established.
//
// The final ACK of the handshake must acknowledge exactly ISS+1. RFC 793 allows
// SND.UNA =< SEG.ACK =< SND.NXT but nothing past our SYN has been sent yet, and
// widely deployed stacks reset on anything else.
func (s SynRcvd) OnSegment(seg Segment, newbuf func() ReceiveBuffer) (next ConnState, reply Segment, ok bool) {
	trimmed, acceptable := seg.Overlap(s.IRS+1, WindowDefault)
	if !acceptable {
		if seg.Flags.HasAny(FlagRST) {
			return s, Segment{}, false
		}
		return s, NewACK(s.ISS+1, s.IRS+1, WindowDefault), true
	}
	switch trimmed.Control() {
	case ControlRST:
		return Closed{Reason: ErrConnectionReset}, Segment{}, false
	case ControlSYN:
		return Closed{Reason: ErrConnectionReset}, NewRSTACK(s.ISS, s.IRS), true
	}
	switch {
	case !trimmed.HasACK():
		return s, Segment{}, false
	case trimmed.ACK != s.ISS+1:
		return s, NewRST(trimmed.ACK), true
	}
	established := &Established{
		Snd: Send{NXT: s.ISS + 1, UNA: s.ISS + 1, WND: WindowDefault},
		Rcv: Recv{Buffer: newbuf(), Assembler: NewAssembler(s.IRS + 1)},
	}
	return established, Segment{}, false
}

// OnSegment handles a segment arriving in the ESTABLISHED state. Payload inside
// the receive window is written to the receive buffer and acknowledged.
// FIN is not processed: the closing states are handled by the layer above.
func (e *Established) OnSegment(seg Segment) (next ConnState, reply Segment, ok bool) {
	rcvnxt := e.Rcv.NXT()
	trimmed, acceptable := seg.Overlap(rcvnxt, e.Rcv.WND())
	if !acceptable {
		if seg.Flags.HasAny(FlagRST) {
			return e, Segment{}, false
		}
		return e, e.ackSegment(), true
	}
	switch trimmed.Control() {
	case ControlRST:
		return Closed{Reason: ErrConnectionReset}, Segment{}, false
	case ControlSYN:
		return Closed{Reason: ErrConnectionReset}, NewRST(e.Snd.NXT), true
	}
	switch {
	case !trimmed.HasACK():
		return e, Segment{}, false
	case trimmed.ACK.After(e.Snd.NXT):
		// ACK of data not yet sent.
		return e, e.ackSegment(), true
	case trimmed.ACK.After(e.Snd.UNA):
		e.Snd.UNA = trimmed.ACK
	}
	if len(seg.Data) == 0 {
		return e, Segment{}, false
	}
	if len(trimmed.Data) > 0 {
		offset := trimmed.SEQ.Sub(rcvnxt)
		if offset < 0 {
			panic("seqs: trimmed segment starts before RCV.NXT")
		}
		written := e.Rcv.Buffer.WriteAt(int(offset), trimmed.Data)
		readable := e.Rcv.Assembler.Insert(trimmed.SEQ, trimmed.SEQ.Add(Size(written)))
		e.Rcv.Buffer.MakeReadable(int(readable))
	}
	// Payload is acknowledged even when it was a duplicate so that the
	// peer learns RCV.NXT again.
	return e, e.ackSegment(), true
}

// Send stamps an outgoing data segment with as much of data as the peer's
// window allows and advances SND.NXT past it. The returned segment's Data is
// a prefix of data and may be empty.
func (e *Established) Send(data []byte) Segment {
	inflight := Sizeof(e.Snd.UNA, e.Snd.NXT)
	usable := int64(e.Snd.WND) - int64(inflight)
	if usable < 0 {
		usable = 0
	}
	if int64(len(data)) > usable {
		data = data[:usable]
	}
	if len(data) == 0 {
		data = nil
	}
	seg := NewData(e.Snd.NXT, e.Rcv.NXT(), e.Rcv.WND(), data)
	e.Snd.NXT.UpdateForward(seg.LEN())
	return seg
}

func (e *Established) ackSegment() Segment {
	return NewACK(e.Snd.NXT, e.Rcv.NXT(), e.Rcv.WND())
}
