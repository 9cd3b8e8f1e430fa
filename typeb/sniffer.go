package typeb

// Sniffer runs a Demod and a Uart decoder against the same sample
// stream, recording every frame from either direction in arrival
// order (C7). The reader and tag halves of a Type B exchange are
// strictly half-duplex, so the decoders mute each other: while the
// reader decoder is out of UNSYNCED the tag decoder is held idle, and
// once the tag decoder is past the SOF falling edge the reader decoder
// is held idle, in each case until the active one is back in UNSYNCED.
// Before either point is reached, both decoders see every tick.
type Sniffer struct {
	demod Demod
	uart  Uart

	tagBuf    []byte
	readerBuf []byte

	startTag    uint32
	startReader uint32

	// expectTagAnswer gates the tag decoder: it only runs right after a
	// completed reader frame, not on every idle tick, since a tag never
	// speaks except in answer to a reader command.
	expectTagAnswer bool

	traces []Trace
}

// NewSniffer returns a Sniffer ready to Feed.
func NewSniffer() *Sniffer {
	s := &Sniffer{
		tagBuf:    make([]byte, 0, MaxFrameSize),
		readerBuf: make([]byte, 0, MaxFrameSize),
	}
	s.demod.Reset(s.tagBuf, MaxFrameSize)
	s.uart.Reset(s.readerBuf, MaxFrameSize)
	return s
}

// Feed submits one sample tick, timestamped now, to whichever decoder
// is eligible to run it (§4.7): the reader bit is sliced from LSB(i),
// the reader decoder gets first claim on every tick, and the tag
// decoder only ever runs while expectTagAnswer is set (right after a
// completed reader frame) and is left alone, undisturbed by new reader
// activity, once it is itself committed past synchronization.
func (s *Sniffer) Feed(now uint32, i, q int8) {
	bit := byte(i) & 1
	switch {
	case s.uart.state != uartUnsynced:
		s.feedReader(now, bit)
		return
	case s.expectTagAnswer && s.demod.state > demodGotFallingEdgeOfSOF:
		s.feedTag(now, i>>1, q>>1)
		return
	}
	s.startReader = now
	s.feedReader(now, bit)
	if s.expectTagAnswer && s.uart.state == uartUnsynced {
		s.startTag = now
		s.feedTag(now, i>>1, q>>1)
	}
}

func (s *Sniffer) feedReader(now uint32, bit byte) {
	if !s.uart.Receive(bit) {
		return
	}
	s.traces = append(s.traces, Trace{
		Bytes:     append([]byte{}, s.uart.Bytes()...),
		StartTime: s.startReader,
		EndTime:   now,
		CRCOK:     CheckCRC(s.uart.Bytes()),
		Direction: DirectionReader,
	})
	s.uart.Reset(s.readerBuf[:0], MaxFrameSize)
	s.expectTagAnswer = true
}

func (s *Sniffer) feedTag(now uint32, i, q int8) {
	if !s.demod.Receive(i, q) {
		return
	}
	s.traces = append(s.traces, Trace{
		Bytes:     append([]byte{}, s.demod.Bytes()...),
		StartTime: s.startTag,
		EndTime:   now,
		CRCOK:     CheckCRC(s.demod.Bytes()),
		Direction: DirectionTag,
	})
	s.demod.Reset(s.tagBuf[:0], MaxFrameSize)
	s.expectTagAnswer = false
}

// Trace drains and returns every frame recorded so far.
func (s *Sniffer) Trace() []Trace {
	out := s.traces
	s.traces = nil
	return out
}
