package seqs

import (
	"strconv"
	"unsafe"
)

// StringExchange returns a string representation of a segment exchange over
// a network in RFC9293 styled visualization. invertDir inverts the arrow directions.
// i.e:
//
//	SynSent     --> <SEQ=300><ACK=91>[SYN,ACK]  --> SynRcvd
func StringExchange(seg Segment, A, B State, invertDir bool) string {
	b := AppendExchange(make([]byte, 0, 64), seg, A, B, invertDir)
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// AppendExchange appends the [StringExchange] visualization of seg to buf.
func AppendExchange(buf []byte, seg Segment, A, B State, invertDir bool) []byte {
	const emptySpaces = "                                            "
	appendVal := func(buf []byte, name string, i Value) []byte {
		buf = append(buf, '<')
		buf = append(buf, name...)
		buf = append(buf, '=')
		buf = strconv.AppendUint(buf, uint64(i), 10)
		buf = append(buf, '>')
		return buf
	}
	start := len(buf)
	dirSep := " --> "
	if invertDir {
		dirSep = " <-- "
	}
	astr := A.String()
	buf = append(buf, astr...)
	if len(astr) < 11 {
		buf = append(buf, emptySpaces[:11-len(astr)]...) // Fill up to 11 characters
	}
	buf = append(buf, dirSep...)
	buf = appendVal(buf, "SEQ", seg.SEQ)
	if seg.HasACK() {
		buf = appendVal(buf, "ACK", seg.ACK)
	}
	if seg.DATALEN() > 0 {
		buf = appendVal(buf, "DATA", Value(seg.DATALEN()))
	}
	buf = append(buf, seg.Flags.String()...)
	if n := len(buf) - start; n < 44 {
		buf = append(buf, emptySpaces[:min(44-n, len(emptySpaces))]...) // Fill up to 44 characters
	}
	buf = append(buf, dirSep...)
	buf = append(buf, B.String()...)
	return buf
}
