package seqs

// Assembler tracks which octets of the receive stream have arrived and turns
// out-of-order arrivals into a contiguous prefix. It does not store data, the
// receive buffer does that; the Assembler only records sequence ranges.
//
//	        nxt
//	---------|.....[#####]....[###].....
//	received   gap  pending gap pending
type Assembler struct {
	nxt Value
	// pending ranges are [start,end) pairs, sorted, disjoint, non-adjacent and all after nxt.
	pending []seqRange
}

type seqRange struct {
	start, end Value
}

// NewAssembler returns an Assembler expecting nxt as the next contiguous sequence number.
func NewAssembler(nxt Value) Assembler {
	return Assembler{nxt: nxt}
}

// Nxt returns the sequence number following the contiguous prefix received so far.
// It is the RCV.NXT advertised in outgoing acknowledgments.
func (a *Assembler) Nxt() Value { return a.nxt }

// Pending returns the amount of disjoint ranges waiting for a gap to be filled.
func (a *Assembler) Pending() int { return len(a.pending) }

// Insert records [start, end) as received and returns the amount of octets
// by which the contiguous prefix grew. Empty ranges and ranges entirely
// before Nxt are ignored. Ranges straddling Nxt are clipped to begin at it.
func (a *Assembler) Insert(start, end Value) Size {
	if end.Before(start) {
		panic("seqs: assembler range end before start")
	}
	if start == end || !end.After(a.nxt) {
		return 0 // Empty or duplicate.
	}
	if start.Before(a.nxt) {
		start = a.nxt
	}
	if start != a.nxt {
		a.insertPending(seqRange{start: start, end: end})
		return 0
	}
	prev := a.nxt
	a.nxt = end
	// Merge now-contiguous pending ranges.
	n := 0
	for _, r := range a.pending {
		if r.start.After(a.nxt) {
			break
		}
		if r.end.After(a.nxt) {
			a.nxt = r.end
		}
		n++
	}
	a.pending = append(a.pending[:0], a.pending[n:]...)
	return Sizeof(prev, a.nxt)
}

// insertPending adds r to the pending set merging overlapping and adjacent ranges.
func (a *Assembler) insertPending(r seqRange) {
	i := 0
	for i < len(a.pending) && a.pending[i].end.Before(r.start) {
		i++
	}
	j := i
	for j < len(a.pending) && !a.pending[j].start.After(r.end) {
		if a.pending[j].start.Before(r.start) {
			r.start = a.pending[j].start
		}
		if a.pending[j].end.After(r.end) {
			r.end = a.pending[j].end
		}
		j++
	}
	if i == j {
		a.pending = append(a.pending, seqRange{})
		copy(a.pending[i+1:], a.pending[i:])
		a.pending[i] = r
		return
	}
	a.pending[i] = r
	a.pending = append(a.pending[:i+1], a.pending[j:]...)
}
