// command typebctl drives an ISO/IEC 14443-3/4 Type B reader front
// end over a serial link: selecting a card, exchanging APDUs,
// emulating a card, or sniffing the air interface.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"subcarrier.dev/typeb"
)

var (
	serialDev = flag.String("device", "", "serial device")
	baud      = flag.Int("baud", 0, "serial baud rate (0: use profile default)")
	profile   = flag.String("profile", "", "YAML device profile")
	afi       = flag.Int("afi", 0x00, "application family identifier for REQB")
	apdu      = flag.String("apdu", "", "hex-encoded APDU payload to send (raw)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "typebctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if flag.NArg() < 1 {
		return errors.New("usage: typebctl <simulate|read-st|sniff|raw> [flags]")
	}

	p, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	if *baud != 0 {
		p.Baud = *baud
	}

	port, err := openSerial(*serialDev, p.Baud)
	if err != nil {
		return fmt.Errorf("open serial port: %w", err)
	}
	defer port.Close()

	fe := newSerialFrontend(port)
	tc := typeb.NewTransceiver(fe)

	switch flag.Arg(0) {
	case "raw":
		return cmdRaw(tc, p)
	case "read-st":
		return cmdReadST(tc, p)
	case "simulate":
		return cmdSimulate(tc, p)
	case "sniff":
		return cmdSniff(fe)
	default:
		return fmt.Errorf("unknown subcommand %q", flag.Arg(0))
	}
}

func cmdRaw(tc *typeb.Transceiver, p Profile) error {
	sess := typeb.NewSession(tc)
	sess.SetTimeout(p.TimeoutTicks)
	if p.MaxFrame != 0 {
		sess.SetMaxFrameSize(p.MaxFrame)
	}

	var payload []byte
	if *apdu != "" {
		b, err := hex.DecodeString(*apdu)
		if err != nil {
			return fmt.Errorf("invalid -apdu: %w", err)
		}
		payload = b
	}
	steps := typeb.Raw(sess, typeb.RawParams{
		Steps:        typeb.StepConnect | typeb.StepSetTimeout | typeb.StepSelectStd | typeb.StepAPDU | typeb.StepDisconnect,
		AFI:          byte(*afi),
		TimeoutTicks: p.TimeoutTicks,
		MaxFrame:     p.MaxFrame,
		APDU:         payload,
	})
	for _, s := range steps {
		if s.Err != nil {
			log.Printf("step %d: error: %v", s.Step, s.Err)
			continue
		}
		log.Printf("step %d: % x", s.Step, s.Data)
	}
	return nil
}

func cmdReadST(tc *typeb.Transceiver, p Profile) error {
	sess := typeb.NewSession(tc)
	sess.SetTimeout(p.TimeoutTicks)
	if _, err := sess.SelectSRxCard(); err != nil {
		return fmt.Errorf("select SRx card: %w", err)
	}
	out := make([]byte, 4)
	for block := byte(0); block < 16; block++ {
		n, err := sess.ReadSTBlock(block, out)
		if err != nil {
			return fmt.Errorf("read block %d: %w", block, err)
		}
		log.Printf("block %02d: % x", block, out[:n])
	}
	return nil
}

func cmdSimulate(tc *typeb.Transceiver, p Profile) error {
	pupi, err := p.pupiBytes()
	if err != nil {
		return err
	}
	emu := typeb.NewEmulator(tc, pupi, 0x00, func(apdu []byte) []byte {
		log.Printf("APDU in: % x", apdu)
		return []byte{0x90, 0x00}
	})
	emu.SetFieldPresent(true)
	for {
		state, err := emu.Poll()
		if err != nil {
			log.Printf("poll: %v", err)
			continue
		}
		log.Printf("state: %s", state)
	}
}

func cmdSniff(fe *serialFrontend) error {
	s := typeb.NewSniffer()
	for {
		i, q, ok := fe.Sample()
		if !ok {
			continue
		}
		s.Feed(fe.Now(), i, q)
		for _, tr := range s.Trace() {
			log.Printf("%-6s % x (crc ok=%v)", tr.Direction, tr.Bytes, tr.CRCOK)
		}
	}
}
