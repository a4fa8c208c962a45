package tcpwire

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tcpfsm/seqs"
)

const (
	clientISS = 0x5e722b7d
	serverISS = 0xbe6e4c0f
)

var helloWorld = []byte("hello world\n")

func TestDecodeFrame_helloworld(t *testing.T) {
	frames := decodeAll(t)
	syn := frames[0]
	require.Equal(t, "192.168.1.147:33942", syn.Src.String())
	require.Equal(t, "192.168.1.145:1234", syn.Dst.String())
	require.Equal(t, net.HardwareAddr{0xd8, 0x5e, 0xd3, 0x43, 0x03, 0xeb}, syn.Src.MAC)
	require.Equal(t, seqs.NewSYN(clientISS, 0xfaf0), syn.Segment)

	synack := frames[1].Segment
	require.Equal(t, seqs.NewSYNACK(serverISS, clientISS+1, 0x1000), synack)

	data := frames[3].Segment
	require.Equal(t, seqs.FlagPSH|seqs.FlagACK, data.Flags)
	require.Equal(t, helloWorld, data.Data)

	// Ethernet padding is not taken as payload.
	require.Nil(t, frames[4].Segment.Data)
	require.Equal(t, seqs.FlagFIN|seqs.FlagACK, frames[10].Segment.Flags)
}

func TestDecodeFrame_errors(t *testing.T) {
	_, err := DecodeFrame([]byte{1, 2, 3})
	require.Error(t, err)

	udp := append([]byte(nil), exchangeHelloWorld[2]...)
	udp[23] = 17 // IP protocol.
	_, err = DecodeFrame(udp)
	require.Error(t, err)
}

// Replays the server side of the capture against a passive open.
func TestReplay_server(t *testing.T) {
	frames := decodeAll(t)
	conn, err := seqs.NewConn(seqs.ConnConfig{RxBufSize: 4096})
	require.NoError(t, err)
	require.NoError(t, conn.Listen(serverISS))

	reply, ok := conn.OnSegment(frames[0].Segment) // cSYN1
	require.True(t, ok)
	requireSeqAck(t, frames[1].Segment, reply)
	require.Equal(t, seqs.StateSynRcvd, conn.State())

	_, ok = conn.OnSegment(frames[2].Segment) // cACK1
	require.False(t, ok)
	require.Equal(t, seqs.StateEstablished, conn.State())

	reply, ok = conn.OnSegment(frames[3].Segment) // cPSHACK0
	require.True(t, ok)
	requireSeqAck(t, frames[4].Segment, reply)

	out, err := conn.Send(helloWorld)
	require.NoError(t, err)
	requireSeqAck(t, frames[5].Segment, out)
	require.Equal(t, frames[5].Segment.Data, out.Data)

	_, ok = conn.OnSegment(frames[6].Segment) // cACK2
	require.False(t, ok)

	reply, ok = conn.OnSegment(frames[7].Segment) // cPSHACK1
	require.True(t, ok)
	requireSeqAck(t, frames[8].Segment, reply)
	out, err = conn.Send(helloWorld)
	require.NoError(t, err)
	requireSeqAck(t, frames[8].Segment, out)
	require.Equal(t, frames[8].Segment.Data, out.Data)

	_, ok = conn.OnSegment(frames[9].Segment) // cACK3
	require.False(t, ok)

	est := conn.Current().(*seqs.Established)
	require.Equal(t, est.Snd.NXT, est.Snd.UNA, "all sent data acknowledged")

	got := make([]byte, 64)
	n, err := conn.Read(got)
	require.NoError(t, err)
	require.Equal(t, append(append([]byte(nil), helloWorld...), helloWorld...), got[:n])
}

// Replays the client side of the capture against an active open.
func TestReplay_client(t *testing.T) {
	frames := decodeAll(t)
	conn, err := seqs.NewConn(seqs.ConnConfig{})
	require.NoError(t, err)
	syn, err := conn.Connect(clientISS)
	require.NoError(t, err)
	requireSeqAck(t, frames[0].Segment, syn)

	reply, ok := conn.OnSegment(frames[1].Segment) // sSYNACK
	require.True(t, ok)
	requireSeqAck(t, frames[2].Segment, reply)

	out, err := conn.Send(helloWorld)
	require.NoError(t, err)
	requireSeqAck(t, frames[3].Segment, out)
	require.Equal(t, frames[3].Segment.Data, out.Data)

	_, ok = conn.OnSegment(frames[4].Segment) // sACK1
	require.False(t, ok)

	reply, ok = conn.OnSegment(frames[5].Segment) // sPSHACK1
	require.True(t, ok)
	requireSeqAck(t, frames[6].Segment, reply)
}

func TestBuildFrame(t *testing.T) {
	src := Endpoint{MAC: net.HardwareAddr{2, 0, 0, 0, 0, 1}, IP: net.IPv4(10, 0, 0, 1), Port: 1234}
	dst := Endpoint{MAC: net.HardwareAddr{2, 0, 0, 0, 0, 2}, IP: net.IPv4(10, 0, 0, 2), Port: 80}
	seg := seqs.Segment{SEQ: 100, ACK: 300, WND: 1 << 20, Flags: seqs.FlagACK | seqs.FlagPSH, Data: []byte("payload")}

	b, err := BuildFrame(src, dst, seg)
	require.NoError(t, err)
	frame, err := DecodeFrame(b)
	require.NoError(t, err)
	require.Equal(t, src.String(), frame.Src.String())
	require.Equal(t, dst.String(), frame.Dst.String())
	require.Equal(t, dst.MAC, frame.Dst.MAC)

	want := seg
	want.WND = 0xffff // Clipped to the header field.
	require.Equal(t, want, frame.Segment)

	v6 := Endpoint{MAC: src.MAC, IP: net.ParseIP("fe80::1"), Port: 1}
	_, err = BuildFrame(src, v6, seg)
	require.ErrorIs(t, err, errIPVersion)

	v6b := Endpoint{MAC: dst.MAC, IP: net.ParseIP("fe80::2"), Port: 2}
	b, err = BuildFrame(v6, v6b, seqs.NewSYN(5, 10))
	require.NoError(t, err)
	frame, err = DecodeFrame(b)
	require.NoError(t, err)
	require.Equal(t, seqs.NewSYN(5, 10), frame.Segment)
	require.True(t, frame.Dst.IP.Equal(v6b.IP))
}

func TestPcap(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewPcapWriter(&buf)
	require.NoError(t, err)
	ts := time.Unix(1700000000, 0)
	for i, b := range exchangeHelloWorld {
		require.NoError(t, pw.WriteFrame(ts.Add(time.Duration(i)*time.Millisecond), b))
	}
	frames, err := ReadPcap(&buf)
	require.NoError(t, err)
	require.Len(t, frames, len(exchangeHelloWorld))
	require.Equal(t, decodeAll(t), frames)
}

func requireSeqAck(t *testing.T, want, got seqs.Segment) {
	t.Helper()
	require.Equal(t, want.SEQ, got.SEQ, "SEQ")
	require.Equal(t, want.ACK, got.ACK, "ACK")
	// The capture's peer sets PSH on data segments, which does not affect control flow.
	require.Equal(t, want.Flags&^seqs.FlagPSH, got.Flags&^seqs.FlagPSH, "flags")
}

func decodeAll(t *testing.T) []Frame {
	t.Helper()
	frames := make([]Frame, len(exchangeHelloWorld))
	for i, b := range exchangeHelloWorld {
		f, err := DecodeFrame(b)
		require.NoError(t, err, "frame %d", i)
		frames[i] = f
	}
	return frames
}

// Full client-server interaction in the sending of "hello world" over TCP in order.
var exchangeHelloWorld = [][]byte{
	// cSYN1
	[]byte("\x28\xcd\xc1\x05\x4d\xbb\xd8\x5e\xd3\x43\x03\xeb\x08\x00\x45\x00\x00\x3c\x71\xac\x40\x00\x40\x06\x44\x9b\xc0\xa8\x01\x93\xc0\xa8\x01\x91\x84\x96\x04\xd2\x5e\x72\x2b\x7d\x00\x00\x00\x00\xa0\x02\xfa\xf0\x27\x6d\x00\x00\x02\x04\x05\xb4\x04\x02\x08\x0a\x07\x8b\x86\x4a\x00\x00\x00\x00\x01\x03\x03\x07"),
	// sSYNACK
	[]byte("\xd8\x5e\xd3\x43\x03\xeb\x28\xcd\xc1\x05\x4d\xbb\x08\x00\x45\x00\x00\x34\x00\x00\x40\x00\x40\x06\xb6\x4f\xc0\xa8\x01\x91\xc0\xa8\x01\x93\x04\xd2\x84\x96\xbe\x6e\x4c\x0f\x5e\x72\x2b\x7e\x80\x12\x10\x00\xc0\xbb\x00\x00\x02\x04\x05\xb4\x03\x03\x00\x04\x02\x00\x00\x00"),
	// cACK1
	[]byte("\x28\xcd\xc1\x05\x4d\xbb\xd8\x5e\xd3\x43\x03\xeb\x08\x00\x45\x00\x00\x28\x71\xad\x40\x00\x40\x06\x44\xae\xc0\xa8\x01\x93\xc0\xa8\x01\x91\x84\x96\x04\xd2\x5e\x72\x2b\x7e\xbe\x6e\x4c\x10\x50\x10\x01\xf6\x0b\x92\x00\x00"),
	// cPSHACK0
	[]byte("\x28\xcd\xc1\x05\x4d\xbb\xd8\x5e\xd3\x43\x03\xeb\x08\x00\x45\x00\x00\x34\x71\xae\x40\x00\x40\x06\x44\xa1\xc0\xa8\x01\x93\xc0\xa8\x01\x91\x84\x96\x04\xd2\x5e\x72\x2b\x7e\xbe\x6e\x4c\x10\x50\x18\x01\xf6\x79\xa5\x00\x00\x68\x65\x6c\x6c\x6f\x20\x77\x6f\x72\x6c\x64\x0a"),
	// sACK1
	[]byte("\xd8\x5e\xd3\x43\x03\xeb\x28\xcd\xc1\x05\x4d\xbb\x08\x00\x45\x00\x00\x28\x00\x00\x40\x00\x40\x06\xb6\x5b\xc0\xa8\x01\x91\xc0\xa8\x01\x93\x04\xd2\x84\x96\xbe\x6e\x4c\x10\x5e\x72\x2b\x8a\x50\x10\x0f\xf4\xfd\x87\x00\x00\x00\x00\x00\x00\x00\x00"),
	// sPSHACK1
	[]byte("\xd8\x5e\xd3\x43\x03\xeb\x28\xcd\xc1\x05\x4d\xbb\x08\x00\x45\x00\x00\x34\x00\x00\x40\x00\x40\x06\xb6\x4f\xc0\xa8\x01\x91\xc0\xa8\x01\x93\x04\xd2\x84\x96\xbe\x6e\x4c\x10\x5e\x72\x2b\x8a\x50\x18\x10\x00\x6b\x8f\x00\x00\x68\x65\x6c\x6c\x6f\x20\x77\x6f\x72\x6c\x64\x0a"),
	// cACK2
	[]byte("\x28\xcd\xc1\x05\x4d\xbb\xd8\x5e\xd3\x43\x03\xeb\x08\x00\x45\x00\x00\x28\x71\xaf\x40\x00\x40\x06\x44\xac\xc0\xa8\x01\x93\xc0\xa8\x01\x91\x84\x96\x04\xd2\x5e\x72\x2b\x8a\xbe\x6e\x4c\x1c\x50\x10\x01\xf6\x0b\x7a\x00\x00"),
	// cPSHACK1
	[]byte("\x28\xcd\xc1\x05\x4d\xbb\xd8\x5e\xd3\x43\x03\xeb\x08\x00\x45\x00\x00\x34\x71\xb0\x40\x00\x40\x06\x44\x9f\xc0\xa8\x01\x93\xc0\xa8\x01\x91\x84\x96\x04\xd2\x5e\x72\x2b\x8a\xbe\x6e\x4c\x1c\x50\x18\x01\xf6\x79\x8d\x00\x00\x68\x65\x6c\x6c\x6f\x20\x77\x6f\x72\x6c\x64\x0a"),
	// sPSHACK2
	[]byte("\xd8\x5e\xd3\x43\x03\xeb\x28\xcd\xc1\x05\x4d\xbb\x08\x00\x45\x00\x00\x34\x00\x00\x40\x00\x40\x06\xb6\x4f\xc0\xa8\x01\x91\xc0\xa8\x01\x93\x04\xd2\x84\x96\xbe\x6e\x4c\x1c\x5e\x72\x2b\x96\x50\x18\x10\x00\x6b\x77\x00\x00\x68\x65\x6c\x6c\x6f\x20\x77\x6f\x72\x6c\x64\x0a"),
	// cACK3
	[]byte("\x28\xcd\xc1\x05\x4d\xbb\xd8\x5e\xd3\x43\x03\xeb\x08\x00\x45\x00\x00\x28\x71\xb1\x40\x00\x40\x06\x44\xaa\xc0\xa8\x01\x93\xc0\xa8\x01\x91\x84\x96\x04\xd2\x5e\x72\x2b\x96\xbe\x6e\x4c\x28\x50\x10\x01\xf6\x0b\x62\x00\x00"),
	// cFINACK
	[]byte("\x28\xcd\xc1\x05\x4d\xbb\xd8\x5e\xd3\x43\x03\xeb\x08\x00\x45\x00\x00\x28\x71\xb2\x40\x00\x40\x06\x44\xa9\xc0\xa8\x01\x93\xc0\xa8\x01\x91\x84\x96\x04\xd2\x5e\x72\x2b\x96\xbe\x6e\x4c\x28\x50\x11\x01\xf6\x0b\x61\x00\x00"),
	// sACK
	[]byte("\xd8\x5e\xd3\x43\x03\xeb\x28\xcd\xc1\x05\x4d\xbb\x08\x00\x45\x00\x00\x28\x00\x00\x40\x00\x40\x06\xb6\x5b\xc0\xa8\x01\x91\xc0\xa8\x01\x93\x04\xd2\x84\x96\xbe\x6e\x4c\x28\x5e\x72\x2b\x97\x50\x10\x10\x00\xfd\x56\x00\x00\x00\x00\x00\x00\x00\x00"),
}
