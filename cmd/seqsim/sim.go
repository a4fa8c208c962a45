package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/op/go-logging"
	"github.com/tcpfsm/seqs"
	"github.com/tcpfsm/seqs/tcpwire"
)

// maxDeliveries bounds a single drain of the link.
const maxDeliveries = 1 << 16

var (
	errNotEstablished = errors.New("connection did not establish")
	errStalled        = errors.New("transfer stalled on a closed window")
)

type peer struct {
	name string
	ep   tcpwire.Endpoint
	conn *seqs.Conn
	iss  seqs.Value
	// wnd is the last window advertised to this peer by the other end.
	wnd seqs.Window
}

type inflight struct {
	from, to *peer
	seg      seqs.Segment
}

// Sim drives a client and a server connection over an in-memory link that
// delivers segments in the order they are queued.
type Sim struct {
	sc       *Scenario
	client   *peer
	server   *peer
	queue    []inflight
	out      io.Writer
	pcap     *tcpwire.PcapWriter
	clock    time.Time
	rng      *rand.Rand
	log      *logging.Logger
	segments int
}

// Result summarizes a simulation run.
type Result struct {
	// Received is the data read by the server.
	Received []byte
	// Echoed is the data read back by the client when echo is enabled.
	Echoed      []byte
	Segments    int
	ClientState seqs.State
	ServerState seqs.State
}

// NewSim validates sc and creates both connections. connLog, if not nil,
// receives the connections' own logs.
func NewSim(sc *Scenario, log *logging.Logger, connLog *slog.Logger) (*Sim, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.MustGetLogger("seqsim")
	}
	now := time.Now()
	newPeer := func(name string, p *Peer) (*peer, error) {
		cfg := p.connConfig()
		if connLog != nil {
			cfg.Logger = connLog.With(slog.String("peer", name))
		}
		conn, err := seqs.NewConn(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		iss := p.iss(now)
		if p.ISS == nil {
			log.Infof("%s using clock based iss=%d", name, iss)
		}
		return &peer{name: name, ep: p.endpoint(), conn: conn, iss: iss}, nil
	}
	client, err := newPeer("client", &sc.Client)
	if err != nil {
		return nil, err
	}
	server, err := newPeer("server", &sc.Server)
	if err != nil {
		return nil, err
	}
	return &Sim{
		sc:     sc,
		client: client,
		server: server,
		out:    io.Discard,
		clock:  time.Unix(0, 0),
		rng:    rand.New(rand.NewSource(sc.Seed)),
		log:    log,
	}, nil
}

// SetOutput sets where RFC 9293 styled exchange lines are printed.
func (s *Sim) SetOutput(w io.Writer) { s.out = w }

// SetPcap records every segment put on the link as an Ethernet frame.
func (s *Sim) SetPcap(pw *tcpwire.PcapWriter) { s.pcap = pw }

// Run opens the connection and performs the scenario's transfers.
func (s *Sim) Run() (Result, error) {
	var res Result
	err := s.open()
	if err == nil {
		res.Received, err = s.transfer(s.client, s.server, []byte(s.sc.Data))
	}
	if err == nil && s.sc.Echo {
		res.Echoed, err = s.transfer(s.server, s.client, res.Received)
	}
	res.Segments = s.segments
	res.ClientState = s.client.conn.State()
	res.ServerState = s.server.conn.State()
	return res, err
}

func (s *Sim) open() error {
	switch s.sc.Mode {
	case modeSimultaneous:
		synC, err := s.client.conn.Connect(s.client.iss)
		if err != nil {
			return err
		}
		synS, err := s.server.conn.Connect(s.server.iss)
		if err != nil {
			return err
		}
		if err := s.transmit(s.client, s.server, synC); err != nil {
			return err
		}
		if err := s.transmit(s.server, s.client, synS); err != nil {
			return err
		}
	default:
		if err := s.server.conn.Listen(s.server.iss); err != nil {
			return err
		}
		syn, err := s.client.conn.Connect(s.client.iss)
		if err != nil {
			return err
		}
		if err := s.transmit(s.client, s.server, syn); err != nil {
			return err
		}
	}
	if err := s.drain(); err != nil {
		return err
	}
	for _, p := range []*peer{s.client, s.server} {
		if p.conn.State() != seqs.StateEstablished {
			return fmt.Errorf("%s in state %s: %w", p.name, p.conn.State(), errNotEstablished)
		}
	}
	s.log.Infof("established client=%s server=%s", s.client.ep, s.server.ep)
	// Handshake segments advertise a default window. Announce the real ones.
	if err := s.windowUpdate(s.server, s.client); err != nil {
		return err
	}
	if err := s.windowUpdate(s.client, s.server); err != nil {
		return err
	}
	return s.drain()
}

// transfer sends data from src to dst in flights no larger than the window
// dst last advertised and returns what dst read.
func (s *Sim) transfer(src, dst *peer, data []byte) ([]byte, error) {
	var received []byte
	for len(data) > 0 {
		limit := min(len(data), int(src.wnd))
		var flight []seqs.Segment
		for sent := 0; sent < limit; {
			n := min(s.sc.Chunk, limit-sent)
			seg, err := src.conn.Send(data[sent : sent+n])
			if err != nil {
				return received, err
			}
			if seg.DATALEN() == 0 {
				break
			}
			flight = append(flight, seg)
			sent += int(seg.DATALEN())
		}
		if len(flight) == 0 {
			return received, fmt.Errorf("%s -> %s: %w", src.name, dst.name, errStalled)
		}
		if s.sc.Reorder {
			s.rng.Shuffle(len(flight), func(i, j int) { flight[i], flight[j] = flight[j], flight[i] })
		}
		for _, seg := range flight {
			data = data[seg.DATALEN():]
			if err := s.transmit(src, dst, seg); err != nil {
				return received, err
			}
		}
		if err := s.drain(); err != nil {
			return received, err
		}
		buf, err := io.ReadAll(dst.conn)
		if err != nil {
			return received, err
		}
		received = append(received, buf...)
		s.log.Debugf("%s read %d bytes", dst.name, len(buf))
		if err := s.windowUpdate(dst, src); err != nil {
			return received, err
		}
		if err := s.drain(); err != nil {
			return received, err
		}
	}
	return received, nil
}

// windowUpdate sends an empty acknowledgment carrying from's current window.
func (s *Sim) windowUpdate(from, to *peer) error {
	seg, err := from.conn.Send(nil)
	if err != nil {
		return err
	}
	return s.transmit(from, to, seg)
}

func (s *Sim) transmit(from, to *peer, seg seqs.Segment) error {
	s.segments++
	s.queue = append(s.queue, inflight{from: from, to: to, seg: seg})
	if s.pcap == nil {
		return nil
	}
	frame, err := tcpwire.BuildFrame(from.ep, to.ep, seg)
	if err != nil {
		return err
	}
	s.clock = s.clock.Add(time.Millisecond)
	return s.pcap.WriteFrame(s.clock, frame)
}

// drain delivers queued segments, and the replies they cause, until the link is idle.
func (s *Sim) drain() error {
	for i := 0; len(s.queue) > 0; i++ {
		if i == maxDeliveries {
			return errors.New("link never became idle")
		}
		f := s.queue[0]
		s.queue = s.queue[1:]
		reply, ok := f.to.conn.OnSegment(f.seg)
		if !f.seg.Flags.HasAny(seqs.FlagRST) {
			f.to.wnd = f.seg.WND
		}
		s.printExchange(f)
		if ok {
			if err := s.transmit(f.to, f.from, reply); err != nil {
				return err
			}
		}
	}
	return nil
}

// printExchange prints the client on the left column regardless of direction.
func (s *Sim) printExchange(f inflight) {
	invert := f.from == s.server
	line := seqs.StringExchange(f.seg, s.client.conn.State(), s.server.conn.State(), invert)
	fmt.Fprintln(s.out, line)
}
