package seqs

import "errors"

// ErrConnectionReset is the reason a connection is [Closed] after the peer
// reset it or the handshake failed.
var ErrConnectionReset = errors.New("connection reset")

// State enumerates states a TCP connection progresses through during its lifetime.
// States past Established are not handled by this package.
//
//go:generate stringer -type=State -trimprefix=State
type State uint8

const (
	// CLOSED - represents no connection state at all.
	StateClosed State = iota
	// LISTEN - represents waiting for a connection request from any remote TCP and port.
	StateListen
	// SYN-RECEIVED - represents waiting for a confirming connection request acknowledgment
	// after having both received and sent a connection request.
	StateSynRcvd
	// SYN-SENT - represents waiting for a matching connection request after having sent a connection request.
	StateSynSent
	// ESTABLISHED - represents an open connection, data received can be delivered
	// to the user.  The normal state for the data transfer phase of the connection.
	StateEstablished
)

// IsPreestablished returns true for the states in which the three way handshake has not completed.
func (s State) IsPreestablished() bool {
	return s == StateSynRcvd || s == StateSynSent || s == StateListen
}

// ConnState is the data of one connection state. It is implemented by
// [Closed], [Listen], [SynSent], [SynRcvd] and *[Established] only.
type ConnState interface {
	State() State
	isConnState()
}

// Closed is the state of a connection that is not open. Reason is nil for a
// connection that was never opened.
type Closed struct {
	Reason error
}

// Listen is the passive open state waiting for a SYN.
type Listen struct {
	ISS Value // initial send sequence number, chosen locally.
}

// SynSent is the active open state waiting for the peer's SYN.
type SynSent struct {
	ISS Value
}

// SynRcvd is the state after both sending and receiving a SYN,
// waiting for the peer to acknowledge ours.
type SynRcvd struct {
	ISS Value
	IRS Value // initial receive sequence number, defined by remote in SYN segment received.
}

// Established is the data transfer state. It owns the connection's send and
// receive control blocks.
type Established struct {
	Snd Send
	Rcv Recv
}

// Send contains Send Sequence Space data. Its sequence numbers correspond to local data.
//
//	     1         2          3          4
//	----------|----------|----------|----------
//		   SND.UNA    SND.NXT    SND.UNA
//								+SND.WND
//	1. old sequence numbers which have been acknowledged
//	2. sequence numbers of unacknowledged data
//	3. sequence numbers allowed for new data transmission
//	4. future sequence numbers which are not yet allowed
type Send struct {
	NXT Value  // send next.
	UNA Value  // send unacknowledged. Seqs equal to UNA and above have NOT been acked by remote.
	WND Window // send window defined by remote.
}

// Recv contains Receive Sequence Space data. Its sequence numbers correspond to remote data.
//
//		1          2          3
//	----------|----------|----------
//		   RCV.NXT    RCV.NXT
//					 +RCV.WND
//	1 - old sequence numbers which have been acknowledged
//	2 - sequence numbers allowed for new reception
//	3 - future sequence numbers which are not yet allowed
type Recv struct {
	Buffer    ReceiveBuffer
	Assembler Assembler
}

// NXT returns RCV.NXT, the next contiguous sequence number expected from remote.
func (rcv *Recv) NXT() Value { return rcv.Assembler.Nxt() }

// WND returns RCV.WND, the free space in the receive buffer.
func (rcv *Recv) WND() Window { return window(rcv.Buffer) }

func (Closed) State() State       { return StateClosed }
func (Listen) State() State       { return StateListen }
func (SynSent) State() State      { return StateSynSent }
func (SynRcvd) State() State      { return StateSynRcvd }
func (*Established) State() State { return StateEstablished }

func (Closed) isConnState()       {}
func (Listen) isConnState()       {}
func (SynSent) isConnState()      {}
func (SynRcvd) isConnState()      {}
func (*Established) isConnState() {}
