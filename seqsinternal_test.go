package seqs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Here we define testing helpers that may be used in any *_test.go file
// of this directory.

// Exchange represents a single segment arriving at a connection.
type Exchange struct {
	Incoming  Segment
	WantReply *Segment // Expected reply. If nil no reply is expected.
	WantState State    // Expected end state.
	// WantPeerState is the state of the peer. Only used for logging.
	WantPeerState State
}

// HelperExchange feeds each exchange's incoming segment to c and checks the
// reply and resulting state.
func (c *Conn) HelperExchange(t *testing.T, exchange []Exchange) {
	t.Helper()
	const pfx = "exchange"
	t.Log(c.State(), "exchange start")
	for i, ex := range exchange {
		reply, ok := c.OnSegment(ex.Incoming)
		t.Log(StringExchange(ex.Incoming, c.State(), ex.WantPeerState, true))
		if ok {
			t.Log(StringExchange(reply, c.State(), ex.WantPeerState, false))
		}
		if state := c.State(); state != ex.WantState {
			t.Errorf(pfx+"[%d] unexpected state:\n got=%s\nwant=%s", i, state, ex.WantState)
		}
		switch {
		case !ok && ex.WantReply != nil:
			t.Errorf(pfx+"[%d] reply: got none, want=%+v", i, *ex.WantReply)
		case ok && ex.WantReply == nil:
			t.Errorf(pfx+"[%d] reply: got %+v, want none", i, reply)
		case ok:
			if diff := SegmentDiff(*ex.WantReply, reply); diff != "" {
				t.Errorf(pfx+"[%d] reply mismatch (-want +got):\n%s", i, diff)
			}
		}
	}
}

// SegmentDiff returns a human readable diff of two segments, or the empty string if equal.
func SegmentDiff(want, got Segment) string {
	return cmp.Diff(want, got, cmpopts.EquateEmpty())
}

// HelperEstablished returns an established connection with the given send
// and receive sequence numbers and a receive buffer of size rxsize.
func HelperEstablished(sndNxt, rcvNxt Value, rxsize int) *Conn {
	c, err := NewConn(ConnConfig{RxBufSize: rxsize})
	if err != nil {
		panic(err)
	}
	c.state = &Established{
		Snd: Send{NXT: sndNxt, UNA: sndNxt, WND: WindowDefault},
		Rcv: Recv{Buffer: NewRingBuffer(rxsize), Assembler: NewAssembler(rcvNxt)},
	}
	return c
}
