package seqs

// Segment represents a TCP segment in the sequence space along with its payload.
// Segments are values: operations on a Segment return a new Segment and never
// modify the receiver. Data may alias the caller's buffer.
type Segment struct {
	SEQ   Value  // sequence number of first octet of segment. If SYN is set it is the initial sequence number (ISN) and the first data octet is ISN+1.
	ACK   Value  // acknowledgment number. If ACK is set it is sequence number of first octet the sender of the segment is expecting to receive next.
	WND   Window // segment window
	Flags Flags  // TCP flags.
	Data  []byte // payload, not counting SYN and FIN.
}

// NewSYN returns a bare SYN segment, the first segment of an active open.
func NewSYN(seq Value, wnd Window) Segment {
	return Segment{SEQ: seq, WND: wnd, Flags: FlagSYN}
}

// NewSYNACK returns a SYN segment acknowledging the peer's SYN.
func NewSYNACK(seq, ack Value, wnd Window) Segment {
	return Segment{SEQ: seq, ACK: ack, WND: wnd, Flags: synack}
}

// NewRST returns a reset segment without acknowledgment.
func NewRST(seq Value) Segment {
	return Segment{SEQ: seq, Flags: FlagRST}
}

// NewRSTACK returns a reset segment carrying an acknowledgment.
func NewRSTACK(seq, ack Value) Segment {
	return Segment{SEQ: seq, ACK: ack, Flags: rstack}
}

// NewACK returns a bare acknowledgment segment.
func NewACK(seq, ack Value, wnd Window) Segment {
	return Segment{SEQ: seq, ACK: ack, WND: wnd, Flags: FlagACK}
}

// NewData returns an acknowledging segment carrying data.
func NewData(seq, ack Value, wnd Window, data []byte) Segment {
	return Segment{SEQ: seq, ACK: ack, WND: wnd, Flags: FlagACK, Data: data}
}

// DATALEN returns the number of octets occupied by the payload.
func (seg Segment) DATALEN() Size { return Size(len(seg.Data)) }

// LEN returns the length of the segment in octets including SYN and FIN flags.
func (seg Segment) LEN() Size {
	add := Size(seg.Flags>>0) & 1 // Add FIN bit.
	add += Size(seg.Flags>>1) & 1 // Add SYN bit.
	return seg.DATALEN() + add
}

// End returns the sequence number that follows the segment, SEG.SEQ+SEG.LEN.
func (seg Segment) End() Value { return seg.SEQ.Add(seg.LEN()) }

// Last returns the sequence number of the last octet of the segment.
func (seg Segment) Last() Value {
	seglen := seg.LEN()
	if seglen == 0 {
		return seg.SEQ
	}
	return seg.End() - 1
}

// HasACK reports whether the acknowledgment field is significant.
func (seg Segment) HasACK() bool { return seg.Flags.HasAny(FlagACK) }

// Control returns the segment's control bit. SYN, RST and FIN are mutually
// exclusive in segments built by this package; if a peer sets more than one
// SYN takes precedence over RST which takes precedence over FIN.
func (seg Segment) Control() Control {
	switch {
	case seg.Flags.HasAny(FlagSYN):
		return ControlSYN
	case seg.Flags.HasAny(FlagRST):
		return ControlRST
	case seg.Flags.HasAny(FlagFIN):
		return ControlFIN
	}
	return ControlNone
}

// Overlap performs the RFC 793 acceptability test of the segment against the
// receive window [rcvNxt, rcvNxt+rcvWnd). If no part of the segment falls in
// the window ok is false. Otherwise the returned segment is the part of seg
// inside the window: SEQ is moved forward to the window start, SYN is dropped
// if its octet was cut off the front, FIN if its octet was cut off the back,
// and Data is sliced to match.
//
//	Segment Receive  Test
//	Length  Window
//	------- -------  -------------------------------------------
//	   0       0     SEG.SEQ = RCV.NXT
//	   0      >0     RCV.NXT =< SEG.SEQ < RCV.NXT+RCV.WND
//	  >0       0     not acceptable
//	  >0      >0     RCV.NXT =< SEG.SEQ < RCV.NXT+RCV.WND
//	              or RCV.NXT =< SEG.SEQ+SEG.LEN-1 < RCV.NXT+RCV.WND
//
// The last row is widened in two ways. A segment that starts before RCV.NXT
// and ends past the window overlaps it, so it is accepted and trimmed to the
// window like a segment straddling either edge. A segment ending exactly at
// RCV.NXT is accepted and trimmed to zero length so its ACK and control bits
// are still processed (RFC 9293 3.10.7.4 asks that valid ACKs be accepted even
// when no text fits). In SYN-RECEIVED after a simultaneous open this is the
// peer's SYN-ACK repeating the SYN already received (RFC 9293 figure 7, line 6).
func (seg Segment) Overlap(rcvNxt Value, rcvWnd Window) (_ Segment, ok bool) {
	seglen := seg.LEN()
	wndEnd := rcvNxt.Add(rcvWnd.Size())
	end := seg.End()
	switch {
	case seglen == 0 && rcvWnd == WindowZero:
		ok = seg.SEQ == rcvNxt
	case seglen == 0:
		ok = !rcvNxt.After(seg.SEQ) && seg.SEQ.Before(wndEnd)
	case rcvWnd == WindowZero:
		ok = false
	default:
		ok = seg.SEQ.Before(wndEnd) && !end.Before(rcvNxt)
	}
	if !ok {
		return Segment{}, false
	} else if seglen == 0 {
		return seg, true
	}

	newSeq := seg.SEQ
	if rcvNxt.After(newSeq) {
		newSeq = rcvNxt
	}
	newEnd := end
	if newEnd.After(wndEnd) {
		newEnd = wndEnd
	}
	// Kept octets as offsets into the segment: [start, stop).
	// SYN occupies offset 0 and FIN offset seglen-1.
	start := Sizeof(seg.SEQ, newSeq)
	stop := Sizeof(seg.SEQ, newEnd)
	flags := seg.Flags
	var synOff Size
	if flags.HasAny(FlagSYN) {
		synOff = 1
		if start != 0 || stop == 0 {
			flags &^= FlagSYN
		}
	}
	if flags.HasAny(FlagFIN) && (start >= seglen || stop != seglen) {
		flags &^= FlagFIN
	}
	datalen := seg.DATALEN()
	dStart := max(start, synOff) - synOff
	dEnd := max(min(stop, synOff+datalen), synOff) - synOff
	dStart = min(dStart, dEnd)

	trimmed := seg
	trimmed.SEQ = newSeq
	trimmed.Flags = flags
	trimmed.Data = seg.Data[dStart:dEnd]
	if len(trimmed.Data) == 0 {
		trimmed.Data = nil
	}
	return trimmed, true
}

// Flags is a TCP flags masked implementation i.e: SYN, FIN, ACK.
type Flags uint16

const (
	FlagFIN Flags = 1 << iota // FlagFIN - No more data from sender.
	FlagSYN                   // FlagSYN - Synchronize sequence numbers.
	FlagRST                   // FlagRST - Reset the connection.
	FlagPSH                   // FlagPSH - Push function.
	FlagACK                   // FlagACK - Acknowledgment field significant.
	FlagURG                   // FlagURG - Urgent pointer field significant.
	FlagECE                   // FlagECE - ECN-Echo has a nonce-sum in the SYN/ACK.
	FlagCWR                   // FlagCWR - Congestion Window Reduced.
	FlagNS                    // FlagNS  - Nonce Sum flag (see RFC 3540).

	// The union of SYN and ACK flags is commonly found throughout the specification, so we define a shorthand.
	synack = FlagSYN | FlagACK
	rstack = FlagRST | FlagACK
)

// HasAll checks if mask bits are all set in the receiver flags.
func (flags Flags) HasAll(mask Flags) bool { return flags&mask == mask }

// HasAny checks if one or more mask bits are set in receiver flags.
func (flags Flags) HasAny(mask Flags) bool { return flags&mask != 0 }

// String returns human readable flag string. i.e:
//
//	"[SYN,ACK]"
//
// Flags are printed in order from LSB (FIN) to MSB (NS).
// All flags are printed with length of 3, so a NS flag will
// end with a space i.e. [ACK,NS ]
func (flags Flags) String() string {
	if flags == 0 {
		return "[]"
	}
	const flaglen = 3
	var flagbuff [2 + (flaglen+1)*9]byte
	const strflags = "FINSYNRSTPSHACKURGECECWRNS "
	n := 0
	for i := 0; i*flaglen < len(strflags); i++ {
		if flags&(1<<i) != 0 {
			if n == 0 {
				flagbuff[0] = '['
			} else {
				flagbuff[n] = ','
			}
			n++
			copy(flagbuff[n:n+3], strflags[i*flaglen:i*flaglen+flaglen])
			n += 3
		}
	}
	if n > 0 {
		flagbuff[n] = ']'
		n++
	}
	return string(flagbuff[:n])
}

// Control is the connection control carried by a segment.
//
//go:generate stringer -type=Control -trimprefix=Control
type Control uint8

const (
	ControlNone Control = iota
	ControlSYN
	ControlRST
	ControlFIN
)
