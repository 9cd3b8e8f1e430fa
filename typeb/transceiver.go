package typeb

import "fmt"

// Frontend abstracts the radio hardware collaborators the bit-level
// codecs run on top of: a free-running tick counter, a reader-side
// transmit path addressed in 16-bit words, a tag-side BPSK I/Q sample
// source, a tag-side ASK/NRZ-L sliced-bit source, and the tag's own
// sub-carrier load modulator. Concrete implementations live outside
// this package (FPGA register pokes, a SDR, a simulator); typeb only
// ever talks to the interface, so it stays hardware-agnostic.
type Frontend interface {
	// Now returns the current free-running sample clock, in
	// sub-carrier ticks.
	Now() uint32
	// TransmitWord pushes one already-coded 16-bit word of a reader
	// command onto the air interface.
	TransmitWord(w uint16)
	// Sample returns the next correlator I/Q pair for tag-to-reader
	// BPSK demodulation. ok is false once the frontend has no more
	// samples buffered before the next poll.
	Sample() (i, q int8, ok bool)
	// Bit returns the next sliced ASK/NRZ-L sample for reader-to-tag
	// decoding. ok is false once no more samples are buffered.
	Bit() (bit byte, ok bool)
	// SetSubcarrier toggles the tag's load modulator.
	SetSubcarrier(on bool)
}

// ErrTimeout is returned by GetAnswerFromTag and GetAnswerFromReader
// when no complete frame arrives before the deadline.
var ErrTimeout = fmt.Errorf("typeb: timeout waiting for frame")

// Transceiver drives a Frontend through the C1-C3 bit codecs, pairing
// a Tosend encoder with a Demod/Uart decoder per direction.
type Transceiver struct {
	fe    Frontend
	ts    Tosend
	demod Demod
	uart  Uart
}

// NewTransceiver returns a Transceiver driving fe.
func NewTransceiver(fe Frontend) *Transceiver {
	return &Transceiver{fe: fe}
}

// CodeAndTransmitAsReader codes cmd as a reader command and clocks it
// out over fe immediately. It does not wait for a scheduled start slot
// and applies no ArmToTagDelay, before or between words.
func (t *Transceiver) CodeAndTransmitAsReader(cmd []byte) {
	t.ts.Reset()
	CodeAsReader(&t.ts, cmd)
	t.TransmitAsReader(&t.ts)
}

// TransmitAsReader clocks an already-coded buffer out over fe two
// bytes (one 16-bit word) at a time.
func (t *Transceiver) TransmitAsReader(ts *Tosend) {
	buf := ts.Bytes()
	for i := 0; i+1 < len(buf); i += 2 {
		w := uint16(buf[i]) | uint16(buf[i+1])<<8
		t.fe.TransmitWord(w)
	}
	if len(buf)%2 == 1 {
		t.fe.TransmitWord(uint16(buf[len(buf)-1]))
	}
}

// CodeAndTransmitAsTag codes cmd as a tag response, enables the
// sub-carrier for the duration of the frame, and clocks it out.
func (t *Transceiver) CodeAndTransmitAsTag(cmd []byte) {
	t.ts.Reset()
	CodeAsTag(&t.ts, cmd)
	t.fe.SetSubcarrier(true)
	t.TransmitAsReader(&t.ts)
	t.fe.SetSubcarrier(false)
}

// GetAnswerFromTag pulls I/Q samples from fe into a Demod until a
// complete tag frame is delimited or timeoutTicks sub-carrier ticks
// elapse without one (§4.4, §4.5 iso14443b_timeout). byteCntMax bounds
// the frame the same way a real reader's receive buffer would.
func (t *Transceiver) GetAnswerFromTag(buf []byte, byteCntMax int, timeoutTicks uint32) (Trace, error) {
	t.demod.Reset(buf, byteCntMax)
	start := t.fe.Now()
	deadline := start + timeoutTicks
	for {
		i, q, ok := t.fe.Sample()
		if !ok {
			if t.fe.Now() >= deadline {
				return Trace{}, ErrTimeout
			}
			continue
		}
		if t.demod.Receive(i, q) {
			break
		}
		if t.fe.Now() >= deadline {
			return Trace{}, ErrTimeout
		}
	}
	end := t.fe.Now()
	out := t.demod.Bytes()
	return Trace{
		Bytes:     out,
		StartTime: start,
		EndTime:   end,
		CRCOK:     CheckCRC(out),
		Direction: DirectionTag,
	}, nil
}

// GetAnswerFromReader pulls sliced bits from fe into a Uart until a
// complete reader frame is delimited or timeoutTicks ticks elapse.
// This is the tag-emulation-side counterpart of GetAnswerFromTag.
func (t *Transceiver) GetAnswerFromReader(buf []byte, byteCntMax int, timeoutTicks uint32) (Trace, error) {
	t.uart.Reset(buf, byteCntMax)
	start := t.fe.Now()
	deadline := start + timeoutTicks
	for {
		bit, ok := t.fe.Bit()
		if !ok {
			if t.fe.Now() >= deadline {
				return Trace{}, ErrTimeout
			}
			continue
		}
		if t.uart.Receive(bit) {
			break
		}
		if t.fe.Now() >= deadline {
			return Trace{}, ErrTimeout
		}
	}
	end := t.fe.Now()
	out := t.uart.Bytes()
	return Trace{
		Bytes:     out,
		StartTime: start,
		EndTime:   end,
		CRCOK:     CheckCRC(out),
		Direction: DirectionReader,
	}, nil
}
