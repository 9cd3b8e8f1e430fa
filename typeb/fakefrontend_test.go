package typeb

// fakeFrontend is a Frontend test double driven entirely by
// pre-loaded queues, the same role type5_test.go's fake Tag plays for
// Transceiver in the teacher package: the test arranges exactly the
// samples/bits a real radio would have produced and checks what the
// code under test transmitted and decoded.
type fakeFrontend struct {
	clock uint32

	txWords []uint16

	samples   [][2]int8
	sampleIdx int

	bits   []byte
	bitIdx int

	subcarrierOn bool
}

func (f *fakeFrontend) Now() uint32 {
	f.clock++
	return f.clock
}

func (f *fakeFrontend) TransmitWord(w uint16) {
	f.txWords = append(f.txWords, w)
}

func (f *fakeFrontend) Sample() (int8, int8, bool) {
	if f.sampleIdx >= len(f.samples) {
		return 0, 0, false
	}
	s := f.samples[f.sampleIdx]
	f.sampleIdx++
	return s[0], s[1], true
}

func (f *fakeFrontend) Bit() (byte, bool) {
	if f.bitIdx >= len(f.bits) {
		return 0, false
	}
	b := f.bits[f.bitIdx]
	f.bitIdx++
	return b, true
}

func (f *fakeFrontend) SetSubcarrier(on bool) {
	f.subcarrierOn = on
}

// wordsToBytes unpacks the little-endian 16-bit words TransmitAsReader
// produces back into the byte stream a Tosend buffer held, so a test
// can compare what was sent against an independently computed Tosend.
func wordsToBytes(words []uint16) []byte {
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = append(out, byte(w), byte(w>>8))
	}
	return out
}
