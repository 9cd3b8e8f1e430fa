package typeb

// unpackBits expands a packed byte buffer into one entry per bit,
// MSB first, matching the order Tosend.stuffBit writes them in.
func unpackBits(buf []byte) []byte {
	bits := make([]byte, 0, len(buf)*8)
	for _, b := range buf {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

// decimate keeps every factor-th bit, undoing CodeAsTag's stuff4 4x
// oversampling to recover one entry per logical symbol.
func decimate(bits []byte, factor int) []byte {
	out := make([]byte, 0, len(bits)/factor)
	for i := 0; i < len(bits); i += factor {
		out = append(out, bits[i])
	}
	return out
}

// readerAnswerSamples runs data through the real CodeAsReader encoder
// and reshapes its packed bit output into the 4x-oversampled raw
// sample stream Uart expects, inserting a guard hold at each framing
// high-to-low transition (SOF-to-data, stop-bit-to-next-start-bit,
// last-stop-bit-to-EOF) the way a real NRZ-L channel holds the line
// briefly before an edge resolves. This is the sample-domain adapter
// that lets uart_test.go exercise the real encoder/decoder pair
// instead of only hand-built vectors.
func readerAnswerSamples(data []byte) []byte {
	var ts Tosend
	ts.Reset()
	CodeAsReader(&ts, data)
	bits := unpackBits(ts.Bytes())

	const osf = 4
	const guard = 16
	// Bit 11 is the last SOF-high bit and every 10th bit after it is a
	// stop bit; those are the only framing ones followed by a zero.
	frameEnd := 12 + 10*len(data)
	var out []byte
	for idx, b := range bits {
		for k := 0; k < osf; k++ {
			out = append(out, b)
		}
		if idx >= 11 && idx < frameEnd && (idx-11)%10 == 0 {
			for k := 0; k < guard; k++ {
				out = append(out, 1)
			}
		}
	}
	return out
}

// tagAnswerSamples runs data through the real CodeAsTag encoder and
// reshapes its stuff4-oversampled output into I/Q sample pairs Demod
// expects: the TR1/SOF/EOF preamble and trailer are held for two raw
// samples per logical symbol (long enough to satisfy the training and
// SOF-width budgets), while each data bit inside a byte is exactly one
// raw sample, matching Demod's one-sample-per-bit decoding in
// RECEIVING_DATA.
func tagAnswerSamples(data []byte) [][2]int8 {
	var ts Tosend
	ts.Reset()
	CodeAsTag(&ts, data)
	sym := decimate(unpackBits(ts.Bytes()), 4)

	var out [][2]int8
	rep := func(v byte, n int) {
		for k := 0; k < n; k++ {
			if v == 1 {
				out = append(out, [2]int8{100, 0})
			} else {
				out = append(out, [2]int8{-100, 0})
			}
		}
	}

	const prefixRep = 2
	prefixLen := 20 + 10 + 2 // TR1 one-bits + SOF low + SOF high, in symbols
	i := 0
	for ; i < prefixLen && i < len(sym); i++ {
		rep(sym[i], prefixRep)
	}
	for range data {
		for k := 0; k < 10 && i < len(sym); k++ {
			rep(sym[i], 1)
			i++
		}
	}
	for ; i < len(sym); i++ {
		rep(sym[i], prefixRep)
	}
	return out
}
