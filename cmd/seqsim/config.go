package main

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/go-playground/validator"
	"github.com/tcpfsm/seqs"
	"github.com/tcpfsm/seqs/tcpwire"
	"gopkg.in/yaml.v2"
)

const (
	modeNormal       = "normal"
	modeSimultaneous = "simultaneous"
)

// Scenario describes one simulated connection between a client and a server.
type Scenario struct {
	// Mode is "normal" for an active client and passive server or
	// "simultaneous" for two active ends.
	Mode   string `yaml:"mode" validate:"oneof=normal simultaneous"`
	Client Peer   `yaml:"client"`
	Server Peer   `yaml:"server"`
	// Data is sent from client to server once established.
	Data string `yaml:"data"`
	// Chunk is the maximum payload per data segment.
	Chunk int `yaml:"chunk" validate:"gte=1,lte=65535"`
	// Reorder shuffles the data segments of each flight before delivery.
	Reorder bool  `yaml:"reorder"`
	Seed    int64 `yaml:"seed"`
	// Echo makes the server send everything it received back to the client.
	Echo bool `yaml:"echo"`
}

// Peer is one end of the simulated connection.
type Peer struct {
	// ISS is the initial send sequence number. If nil a clock based one is chosen.
	ISS   *uint32 `yaml:"iss"`
	RxBuf int     `yaml:"rxbuf" validate:"gte=1,lte=1073741823"`
	MAC   string  `yaml:"mac" validate:"required,mac"`
	IP    string  `yaml:"ip" validate:"required,ip"`
	Port  uint16  `yaml:"port" validate:"required"`
}

// DefaultScenario returns the RFC 9293 figure 6 handshake followed by a short transfer.
func DefaultScenario() *Scenario {
	return &Scenario{
		Mode: modeNormal,
		Client: Peer{
			ISS:   newISS(100),
			RxBuf: 2048,
			MAC:   "02:00:00:00:00:01",
			IP:    "192.168.1.147",
			Port:  33942,
		},
		Server: Peer{
			ISS:   newISS(300),
			RxBuf: 2048,
			MAC:   "02:00:00:00:00:02",
			IP:    "192.168.1.145",
			Port:  1234,
		},
		Data:  "hello world\n",
		Chunk: 536,
		Seed:  1,
	}
}

// LoadScenario reads a YAML scenario over the defaults. Unknown keys are an error.
func LoadScenario(r io.Reader) (*Scenario, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sc := DefaultScenario()
	if err := yaml.UnmarshalStrict(b, sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return sc, nil
}

// Validate checks field constraints.
func (sc *Scenario) Validate() error {
	if err := validator.New().Struct(sc); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	if (net.ParseIP(sc.Client.IP).To4() == nil) != (net.ParseIP(sc.Server.IP).To4() == nil) {
		return fmt.Errorf("invalid scenario: client %s and server %s IP versions differ", sc.Client.IP, sc.Server.IP)
	}
	return nil
}

func newISS(iss uint32) *uint32 { return &iss }

// iss returns the configured ISS or one derived from now.
func (p *Peer) iss(now time.Time) seqs.Value {
	if p.ISS == nil {
		return seqs.DefaultNewISS(now)
	}
	return seqs.Value(*p.ISS)
}

func (p *Peer) endpoint() tcpwire.Endpoint {
	mac, _ := net.ParseMAC(p.MAC) // Validated.
	return tcpwire.Endpoint{MAC: mac, IP: net.ParseIP(p.IP), Port: p.Port}
}

func (p *Peer) connConfig() seqs.ConnConfig {
	return seqs.ConnConfig{RxBufSize: p.RxBuf}
}
