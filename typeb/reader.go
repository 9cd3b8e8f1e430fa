package typeb

import "fmt"

// Reader commands (§4.5, ISO/IEC 14443-3/4 Type B).
const (
	cmdREQB    = 0x05
	cmdATTRIB  = 0x1D
	cmdHLTB    = 0x50
	cmdSRInit  = 0x06
	cmdSRSel   = 0x0E
	cmdSRGetUID = 0x0B
)

// WUPB, like REQB, uses cmdREQB with the wake-up bit set in param.
const reqbWakeUp = 0x08

// ErrCRCMismatch is returned whenever a received frame fails its
// CRC16 check; the caller must not trust the accompanying length or
// payload (§9 open question 2: a prior implementation returned a
// stale length here, which this one does not reproduce).
var ErrCRCMismatch = fmt.Errorf("typeb: CRC mismatch")

// ErrNoAnswer wraps a Frontend timeout into a protocol-level error.
var ErrNoAnswer = fmt.Errorf("typeb: no answer from tag")

// ErrBadResponse flags a reply that is too short or otherwise
// structurally invalid for the command that produced it.
var ErrBadResponse = fmt.Errorf("typeb: malformed response")

// SelectedCard describes the card a Session has selected, as reported
// by ATQB/ATTRIB (or an SRx INITIATE/SELECT/GET_UID exchange).
type SelectedCard struct {
	PUPI       [4]byte
	CID        byte
	MaxFrame   int
	SRxUID     [8]byte
	IsSRx      bool
}

// Session is a reader-role ISO14443-3/4 Type B protocol driver. Create
// one with NewSession; the zero value has no Transceiver to drive.
type Session struct {
	tc               *Transceiver
	pcbBlockNum      byte
	iso14443bTimeout uint32
	byteCntMax       int
	card             SelectedCard
	selected         bool
}

// NewSession returns a Session driving tc, with the default FWT-based
// timeout and MAX_FRAME_SIZE (§4.4, §4.5).
func NewSession(tc *Transceiver) *Session {
	return &Session{
		tc:               tc,
		iso14443bTimeout: DefaultFWT,
		byteCntMax:       MaxFrameSize,
	}
}

// SetTimeout overrides the per-exchange receive timeout, in
// sub-carrier ticks, clamped to MaxTimeout (§3, §8 item 10).
func (s *Session) SetTimeout(ticks uint32) {
	if ticks > MaxTimeout {
		ticks = MaxTimeout
	}
	s.iso14443bTimeout = ticks
}

// SetMaxFrameSize overrides the negotiated receive buffer ceiling.
// The clamp compares with ">", not ">=": a request of exactly 256 is
// accepted unclamped (§9 open question 4, preserved literally).
func (s *Session) SetMaxFrameSize(n int) {
	if n > 256 {
		n = 256
	}
	s.byteCntMax = n
}

// SelectedCard returns the most recently selected card, and whether a
// card is currently selected.
func (s *Session) SelectedCard() (SelectedCard, bool) {
	return s.card, s.selected
}

// exchange appends the CRC16 suffix (§4.5, §6) to cmd, codes the
// result as a reader command, transmits it, and waits for the tag's
// answer, honoring the session's current timeout/byteCntMax.
func (s *Session) exchange(cmd []byte) (Trace, error) {
	framed := AppendCRC(append([]byte{}, cmd...))
	s.tc.CodeAndTransmitAsReader(framed)
	buf := make([]byte, 0, s.byteCntMax)
	tr, err := s.tc.GetAnswerFromTag(buf, s.byteCntMax, s.iso14443bTimeout)
	if err != nil {
		return Trace{}, fmt.Errorf("typeb: exchange: %w", ErrNoAnswer)
	}
	return tr, nil
}

// SelectCard runs REQB/ATTRIB against any Type B card in the field
// and leaves it selected on success. wakeUp sends WUPB instead of
// REQB, setting the param byte's wake-up bit (§4.5 step 1) so a card
// already HALTed by this driver's own HaltCard can be reselected.
func (s *Session) SelectCard(afi byte, wakeUp bool) (SelectedCard, error) {
	s.selected = false
	param := byte(0x00)
	if wakeUp {
		param |= reqbWakeUp
	}
	atqb, err := s.exchange([]byte{cmdREQB, afi, param})
	if err != nil {
		return SelectedCard{}, err
	}
	if len(atqb.Bytes) < 12 || atqb.Bytes[0] != 0x50 {
		return SelectedCard{}, ErrBadResponse
	}
	var pupi [4]byte
	copy(pupi[:], atqb.Bytes[1:5])

	attrib := make([]byte, 0, 9)
	attrib = append(attrib, cmdATTRIB)
	attrib = append(attrib, pupi[:]...)
	attrib = append(attrib, 0x00, 0x00, 0x00, 0x00)
	tr, err := s.exchange(attrib)
	if err != nil {
		return SelectedCard{}, err
	}
	if len(tr.Bytes) < 1 {
		return SelectedCard{}, ErrBadResponse
	}
	s.card = SelectedCard{PUPI: pupi, CID: tr.Bytes[0] & 0x0f, MaxFrame: s.byteCntMax}
	s.pcbBlockNum = 0
	s.selected = true
	return s.card, nil
}

// SelectSRxCard selects an STMicro SRx-family card via its
// INITIATE/SELECT/GET_UID exchange, distinct from the generic ATTRIB
// flow because SRx tags predate ISO14443-4 chaining.
func (s *Session) SelectSRxCard() (SelectedCard, error) {
	s.selected = false
	initTr, err := s.exchange([]byte{cmdSRInit, 0x00})
	if err != nil {
		return SelectedCard{}, err
	}
	if len(initTr.Bytes) < 1 {
		return SelectedCard{}, ErrBadResponse
	}
	chipID := initTr.Bytes[0]

	selTr, err := s.exchange([]byte{cmdSRSel, chipID})
	if err != nil {
		return SelectedCard{}, err
	}
	if len(selTr.Bytes) < 1 || selTr.Bytes[0] != chipID {
		return SelectedCard{}, ErrBadResponse
	}

	uidTr, err := s.exchange([]byte{cmdSRGetUID})
	if err != nil {
		return SelectedCard{}, err
	}
	if len(uidTr.Bytes) < 8 {
		return SelectedCard{}, ErrBadResponse
	}
	var uid [8]byte
	copy(uid[:], uidTr.Bytes[:8])

	s.card = SelectedCard{SRxUID: uid, IsSRx: true, MaxFrame: s.byteCntMax}
	s.pcbBlockNum = 0
	s.selected = true
	return s.card, nil
}

// HaltCard sends HLTB for the currently selected card and clears the
// selection regardless of whether the tag acknowledges.
func (s *Session) HaltCard() error {
	if !s.selected || s.card.IsSRx {
		s.selected = false
		return nil
	}
	cmd := append([]byte{cmdHLTB}, s.card.PUPI[:]...)
	_, err := s.exchange(cmd)
	s.selected = false
	return err
}

// APDU wraps payload in an ISO14443-4 I-block, toggling the PCB block
// number unconditionally before every send regardless of whether the
// previous exchange succeeded (§9 open question 3, preserved
// literally), and returns the I-block payload stripped of PCB and
// CID. On CRC failure it returns (0, ErrCRCMismatch): it does not fall
// back to reporting the raw received length (§9 open question 2).
func (s *Session) APDU(payload []byte, out []byte) (int, error) {
	pcb := byte(0x0a) | s.pcbBlockNum
	s.pcbBlockNum ^= 1

	// PCB 0x0A carries the CID-following bit (0x08), so the CID byte
	// is always sent.
	cmd := make([]byte, 0, len(payload)+2)
	cmd = append(cmd, pcb, s.card.CID)
	cmd = append(cmd, payload...)

	tr, err := s.exchange(cmd)
	if err != nil {
		return 0, err
	}
	if !tr.CRCOK {
		return 0, ErrCRCMismatch
	}
	body := tr.Bytes[:len(tr.Bytes)-2]
	if len(body) < 1 {
		return 0, ErrBadResponse
	}
	hdr := 1
	if body[0]&0x08 != 0 {
		hdr++
	}
	if len(body) < hdr {
		return 0, ErrBadResponse
	}
	n := copy(out, body[hdr:])
	return n, nil
}

// ReadSTBlock reads one 4-byte memory block from an SRx-family card
// (ST Read Block, distinct from the ISO14443-4 APDU path).
func (s *Session) ReadSTBlock(block byte, out []byte) (int, error) {
	tr, err := s.exchange([]byte{0x08, block})
	if err != nil {
		return 0, err
	}
	if !tr.CRCOK {
		return 0, ErrCRCMismatch
	}
	body := tr.Bytes[:len(tr.Bytes)-2]
	return copy(out, body), nil
}
