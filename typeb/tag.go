package typeb

import "bytes"

// CardState is the tag emulator's protocol state (§4.6).
type CardState int

const (
	StateNoField CardState = iota
	StateIdle
	StateHalted
	StateSelecting
	StateHalting
	StateAcknowledge
	StateWork
)

func (c CardState) String() string {
	switch c {
	case StateNoField:
		return "NOFIELD"
	case StateIdle:
		return "IDLE"
	case StateHalted:
		return "HALTED"
	case StateSelecting:
		return "SELECTING"
	case StateHalting:
		return "HALTING"
	case StateAcknowledge:
		return "ACKNOWLEDGE"
	case StateWork:
		return "WORK"
	default:
		return "UNKNOWN"
	}
}

// Handler answers an I-block APDU addressed to an emulated card while
// it is in StateWork and returns the response payload.
type Handler func(apdu []byte) []byte

// Emulator drives a Frontend to behave as a single Type B PICC. The
// ATQB and ATTRIB-ack frames are built once at construction, the same
// way type4.Tag precomputes its static response tables in init: a
// PUPI is fixed for the lifetime of an Emulator, not re-derived per
// frame (§ supplemented feature).
type Emulator struct {
	tc      *Transceiver
	handler Handler

	state       CardState
	pupi        [4]byte
	cid         byte
	pcbBlockNum byte

	atqb   []byte
	okResp []byte
}

// NewEmulator returns an Emulator answering as pupi with the given CID
// (0 for "no CID"), dispatching I-block payloads to handler. An
// all-zero pupi selects the default PUPI 82 0D E1 74.
func NewEmulator(tc *Transceiver, pupi [4]byte, cid byte, handler Handler) *Emulator {
	if pupi == ([4]byte{}) {
		pupi = [4]byte{0x82, 0x0D, 0xE1, 0x74}
	}
	e := &Emulator{
		tc:      tc,
		handler: handler,
		state:   StateNoField,
		pupi:    pupi,
		cid:     cid,
	}
	e.rebuildStaticFrames()
	return e
}

// rebuildStaticFrames recomputes the ATQB and ATTRIB-ack buffers from
// the current PUPI. Called once at construction; a custom PUPI is
// never recomputed mid-session.
func (e *Emulator) rebuildStaticFrames() {
	atqb := make([]byte, 0, 12)
	atqb = append(atqb, 0x50)
	atqb = append(atqb, e.pupi[:]...)
	atqb = append(atqb, 0x00, 0x00, 0x00, 0x00) // Application Data
	atqb = append(atqb, 0x00, 0x00, 0x00)        // Protocol Info
	e.atqb = AppendCRC(atqb)
	e.okResp = AppendCRC([]byte{e.cid})
}

// State reports the emulator's current CardState.
func (e *Emulator) State() CardState {
	return e.state
}

// SetFieldPresent drives the NOFIELD/IDLE transition external to any
// reader command, matching a Frontend's own field-detect signal.
func (e *Emulator) SetFieldPresent(present bool) {
	if present {
		if e.state == StateNoField {
			e.state = StateIdle
		}
		return
	}
	e.state = StateNoField
}

// Poll waits for one reader command and advances the state machine in
// response, transmitting whatever reply (if any) the command calls
// for. It returns the resulting state.
func (e *Emulator) Poll() (CardState, error) {
	buf := make([]byte, 0, MaxFrameSize)
	tr, err := e.tc.GetAnswerFromReader(buf, MaxFrameSize, ReaderRXTimeout)
	if err != nil {
		return e.state, err
	}
	if !tr.CRCOK {
		return e.state, ErrCRCMismatch
	}
	cmd := tr.Bytes[:len(tr.Bytes)-2]
	if len(cmd) == 0 {
		return e.state, ErrBadResponse
	}

	switch {
	case cmd[0] == cmdREQB && len(cmd) >= 3:
		wakeUp := cmd[2]&reqbWakeUp != 0
		if e.state == StateHalted && !wakeUp {
			break
		}
		if e.state == StateNoField {
			break
		}
		e.state = StateSelecting
		e.tc.CodeAndTransmitAsTag(e.atqb)

	case cmd[0] == cmdATTRIB && e.state == StateSelecting && len(cmd) >= 5:
		if !bytes.Equal(cmd[1:5], e.pupi[:]) {
			e.state = StateIdle
			break
		}
		e.state = StateAcknowledge
		e.pcbBlockNum = 0
		e.tc.CodeAndTransmitAsTag(e.okResp)
		e.state = StateWork

	case cmd[0] == cmdHLTB && len(cmd) >= 5 && (e.state == StateWork || e.state == StateSelecting):
		if !bytes.Equal(cmd[1:5], e.pupi[:]) {
			break
		}
		e.state = StateHalting
		e.tc.CodeAndTransmitAsTag(AppendCRC([]byte{0x00}))
		e.state = StateHalted

	case e.state == StateWork && cmd[0]&0x02 != 0:
		e.handleIBlock(cmd)

	default:
		// Command not valid for the current state: ignored, per
		// ISO14443-4's "unexpected PCB" rule, rather than dropping
		// back to IDLE on every stray frame.
	}
	return e.state, nil
}

// handleIBlock strips the PCB (and CID, if present), runs the
// handler, and replies with a PCB carrying the complementary block
// number.
func (e *Emulator) handleIBlock(cmd []byte) {
	hdr := 1
	hasCID := cmd[0]&0x08 != 0
	if hasCID {
		hdr++
	}
	if len(cmd) < hdr {
		return
	}
	resp := e.handler(cmd[hdr:])

	pcb := byte(0x0a) | e.pcbBlockNum
	e.pcbBlockNum ^= 1
	out := make([]byte, 0, len(resp)+2)
	out = append(out, pcb)
	if hasCID {
		out[0] |= 0x08
		out = append(out, e.cid)
	}
	out = append(out, resp...)
	e.tc.CodeAndTransmitAsTag(AppendCRC(out))
}
