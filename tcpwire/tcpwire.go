// Package tcpwire converts between [seqs.Segment] and Ethernet frames
// carrying TCP over IPv4 or IPv6 using gopacket's layers.
package tcpwire

import (
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/tcpfsm/seqs"
)

var (
	errNoIP      = errors.New("tcpwire: frame carries no IP layer")
	errNoTCP     = errors.New("tcpwire: packet carries no TCP layer")
	errIPVersion = errors.New("tcpwire: endpoints have mismatched IP versions")
)

// Endpoint is one side of a TCP connection as seen on an Ethernet link.
type Endpoint struct {
	MAC  net.HardwareAddr
	IP   net.IP
	Port uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP.String(), fmt.Sprint(e.Port))
}

// Frame is a decoded Ethernet frame carrying a TCP segment.
type Frame struct {
	Src, Dst Endpoint
	Segment  seqs.Segment
}

// FromLayer returns the segment carried by tcp. Data aliases the layer's payload.
func FromLayer(tcp *layers.TCP) seqs.Segment {
	var flags seqs.Flags
	set := func(b bool, f seqs.Flags) {
		if b {
			flags |= f
		}
	}
	set(tcp.FIN, seqs.FlagFIN)
	set(tcp.SYN, seqs.FlagSYN)
	set(tcp.RST, seqs.FlagRST)
	set(tcp.PSH, seqs.FlagPSH)
	set(tcp.ACK, seqs.FlagACK)
	set(tcp.URG, seqs.FlagURG)
	set(tcp.ECE, seqs.FlagECE)
	set(tcp.CWR, seqs.FlagCWR)
	set(tcp.NS, seqs.FlagNS)
	seg := seqs.Segment{
		SEQ:   seqs.Value(tcp.Seq),
		ACK:   seqs.Value(tcp.Ack),
		WND:   seqs.Window(tcp.Window),
		Flags: flags,
	}
	if len(tcp.Payload) > 0 {
		seg.Data = tcp.Payload
	}
	return seg
}

// ToLayer returns a TCP layer carrying seg between the given ports. Windows
// larger than the 16 bit header field are clipped since no window scale
// option is negotiated.
func ToLayer(seg seqs.Segment, srcPort, dstPort uint16) *layers.TCP {
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     uint32(seg.SEQ),
		Ack:     uint32(seg.ACK),
		Window:  uint16(min(seg.WND, math.MaxUint16)),
		FIN:     seg.Flags.HasAny(seqs.FlagFIN),
		SYN:     seg.Flags.HasAny(seqs.FlagSYN),
		RST:     seg.Flags.HasAny(seqs.FlagRST),
		PSH:     seg.Flags.HasAny(seqs.FlagPSH),
		ACK:     seg.Flags.HasAny(seqs.FlagACK),
		URG:     seg.Flags.HasAny(seqs.FlagURG),
		ECE:     seg.Flags.HasAny(seqs.FlagECE),
		CWR:     seg.Flags.HasAny(seqs.FlagCWR),
		NS:      seg.Flags.HasAny(seqs.FlagNS),
	}
	return tcp
}

// DecodeFrame decodes an Ethernet frame carrying a TCP segment. The
// segment's Data aliases b.
func DecodeFrame(b []byte) (Frame, error) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeEthernet, gopacket.NoCopy)
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		return Frame{}, fmt.Errorf("tcpwire: decoding frame: %w", errLayer.Error())
	}
	var frame Frame
	if eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet); ok {
		frame.Src.MAC = eth.SrcMAC
		frame.Dst.MAC = eth.DstMAC
	}
	switch ip := pkt.NetworkLayer().(type) {
	case *layers.IPv4:
		frame.Src.IP, frame.Dst.IP = ip.SrcIP, ip.DstIP
	case *layers.IPv6:
		frame.Src.IP, frame.Dst.IP = ip.SrcIP, ip.DstIP
	default:
		return Frame{}, errNoIP
	}
	tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok {
		return Frame{}, errNoTCP
	}
	frame.Src.Port = uint16(tcp.SrcPort)
	frame.Dst.Port = uint16(tcp.DstPort)
	frame.Segment = FromLayer(tcp)
	return frame, nil
}

// BuildFrame serializes seg into an Ethernet frame sent from src to dst.
// Lengths and checksums are computed.
func BuildFrame(src, dst Endpoint, seg seqs.Segment) ([]byte, error) {
	tcp := ToLayer(seg, src.Port, dst.Port)
	eth := &layers.Ethernet{SrcMAC: src.MAC, DstMAC: dst.MAC}
	var ip gopacket.SerializableLayer
	switch {
	case src.IP.To4() != nil && dst.IP.To4() != nil:
		eth.EthernetType = layers.EthernetTypeIPv4
		ip4 := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Flags:    layers.IPv4DontFragment,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    src.IP.To4(),
			DstIP:    dst.IP.To4(),
		}
		tcp.SetNetworkLayerForChecksum(ip4)
		ip = ip4
	case src.IP.To4() == nil && dst.IP.To4() == nil && src.IP != nil && dst.IP != nil:
		eth.EthernetType = layers.EthernetTypeIPv6
		ip6 := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocolTCP,
			SrcIP:      src.IP,
			DstIP:      dst.IP,
		}
		tcp.SetNetworkLayerForChecksum(ip6)
		ip = ip6
	default:
		return nil, errIPVersion
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(seg.Data))
	if err != nil {
		return nil, fmt.Errorf("tcpwire: serializing frame: %w", err)
	}
	return buf.Bytes(), nil
}
