// Command seqsim simulates a TCP connection between two in-memory peers and
// prints the exchanged segments in the style of RFC 9293's figures.
//
//	seqsim -m simultaneous -d "hello world" --chunk 4 -r -w out.pcap
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/akamensky/argparse"
	"github.com/tcpfsm/seqs/tcpwire"
)

const (
	VERSION = "0.1"
)

type MainArgs struct {
	config  string
	mode    string
	data    string
	chunk   int
	rxbuf   int
	seed    int
	reorder bool
	echo    bool
	pcap    string
	verbose bool
	trace   bool
	version bool
}

func parseMainArgs(argv []string) (*MainArgs, error) {
	parser := argparse.NewParser("seqsim", "Simulates a TCP connection between two in-memory peers")
	config := parser.String("c", "config", &argparse.Options{Help: "YAML scenario file, overrides other scenario flags"})
	mode := parser.Selector("m", "mode", []string{modeNormal, modeSimultaneous}, &argparse.Options{Default: modeNormal, Help: "Connection open mode"})
	data := parser.String("d", "data", &argparse.Options{Default: "hello world\n", Help: "Data sent from client to server"})
	chunk := parser.Int("", "chunk", &argparse.Options{Default: 536, Help: "Maximum payload per segment"})
	rxbuf := parser.Int("b", "rxbuf", &argparse.Options{Default: 2048, Help: "Receive buffer size of both peers"})
	seed := parser.Int("", "seed", &argparse.Options{Default: 1, Help: "Seed for segment reordering"})
	reorder := parser.Flag("r", "reorder", &argparse.Options{Default: false, Help: "Deliver data segments out of order"})
	echo := parser.Flag("e", "echo", &argparse.Options{Default: false, Help: "Server echoes received data back"})
	pcap := parser.String("w", "write", &argparse.Options{Help: "Path to save a pcap of the exchange"})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Default: false, Help: "Log connection state transitions"})
	trace := parser.Flag("t", "trace", &argparse.Options{Default: false, Help: "Log every segment processed, implies verbose"})
	version := parser.Flag("V", "version", &argparse.Options{Default: false, Help: "Show seqsim version"})
	if err := parser.Parse(argv); err != nil {
		return nil, fmt.Errorf("%s", parser.Usage(err))
	}
	return &MainArgs{
		config:  *config,
		mode:    *mode,
		data:    *data,
		chunk:   *chunk,
		rxbuf:   *rxbuf,
		seed:    *seed,
		reorder: *reorder,
		echo:    *echo,
		pcap:    *pcap,
		verbose: *verbose || *trace,
		trace:   *trace,
		version: *version,
	}, nil
}

// scenario builds the scenario from flags and then the config file, if any.
func (args *MainArgs) scenario() (*Scenario, error) {
	sc := DefaultScenario()
	sc.Mode = args.mode
	sc.Data = args.data
	sc.Chunk = args.chunk
	sc.Client.RxBuf = args.rxbuf
	sc.Server.RxBuf = args.rxbuf
	sc.Seed = int64(args.seed)
	sc.Reorder = args.reorder
	sc.Echo = args.echo
	if args.config == "" {
		return sc, nil
	}
	f, err := os.Open(args.config)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadScenario(f)
}

func run(args *MainArgs, stdout, stderr io.Writer) error {
	if args.version {
		fmt.Fprintf(stdout, "seqsim version is %s\n", VERSION)
		return nil
	}
	log, backend := configureLogger(stderr, args.verbose)
	sc, err := args.scenario()
	if err != nil {
		return err
	}
	var connLog *slog.Logger
	if args.verbose {
		connLog = slog.New(newSlogHandler(log, backend, args.trace))
	}
	sim, err := NewSim(sc, log, connLog)
	if err != nil {
		return err
	}
	sim.SetOutput(stdout)
	if args.pcap != "" {
		f, err := os.Create(args.pcap)
		if err != nil {
			return err
		}
		defer f.Close()
		pw, err := tcpwire.NewPcapWriter(f)
		if err != nil {
			return err
		}
		sim.SetPcap(pw)
	}
	res, err := sim.Run()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d segments, server received %d bytes", res.Segments, len(res.Received))
	if sc.Echo {
		fmt.Fprintf(stdout, ", client received %d bytes", len(res.Echoed))
	}
	fmt.Fprintln(stdout)
	return nil
}

func main() {
	args, err := parseMainArgs(os.Args)
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "seqsim:", err)
		os.Exit(1)
	}
}
