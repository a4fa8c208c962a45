package tcpwire

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const snaplen = 65536

// PcapWriter writes Ethernet frames to a pcap capture file that can be
// opened with wireshark or tcpdump.
type PcapWriter struct {
	w *pcapgo.Writer
}

// NewPcapWriter writes the pcap file header to w and returns a writer for frames.
func NewPcapWriter(w io.Writer) (*PcapWriter, error) {
	pw := pcapgo.NewWriterNanos(w)
	if err := pw.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("tcpwire: writing pcap header: %w", err)
	}
	return &PcapWriter{w: pw}, nil
}

// WriteFrame appends a frame captured at ts.
func (pw *PcapWriter) WriteFrame(ts time.Time, frame []byte) error {
	return pw.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     ts,
		Length:        len(frame),
		CaptureLength: len(frame),
	}, frame)
}

// ReadPcap decodes every TCP frame in a pcap capture read from r. Frames
// that do not carry TCP are skipped.
func ReadPcap(r io.Reader) ([]Frame, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("tcpwire: reading pcap header: %w", err)
	}
	if pr.LinkType() != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("tcpwire: unsupported link type %s", pr.LinkType())
	}
	var frames []Frame
	for {
		data, _, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return frames, nil
		} else if err != nil {
			return frames, err
		}
		frame, err := DecodeFrame(data)
		if errors.Is(err, errNoTCP) || errors.Is(err, errNoIP) {
			continue
		} else if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}
