package typeb

// demodState is the reader-side tag decoder state machine (§4.3).
type demodState int

const (
	demodUnsynced demodState = iota
	demodPhaseRefTraining
	demodAwaitingFallingEdgeOfSOF
	demodGotFallingEdgeOfSOF
	demodAwaitingStartBit
	demodReceivingData
)

// Training and framing budgets, in samples (§4.3).
const (
	trainingLen       = 8  // samples spent building the phase reference from TR1
	fallingEdgeBudget = 50 // samples to wait for the SOF falling edge before giving up
	sofLowMin         = 18 // shortest accepted SOF low phase
	sofLowMax         = 28 // longest accepted SOF low phase
	startBitBudget    = 12 // samples to wait for a start bit before treating the gap as SOF-only framing
)

// Demod recovers BPSK sub-carrier-modulated tag bits from signed 8-bit
// I/Q correlator sample pairs (C2). It builds its own phase reference
// during TR1 instead of assuming one, since the tag's sub-carrier phase
// at power-up is arbitrary.
type Demod struct {
	state      demodState
	posCnt     int
	bitCnt     int
	shiftReg   uint16
	byteCnt    int
	byteCntMax int
	refSignI   int
	refSignQ   int
	sumI       int
	sumQ       int
	buf        []byte
}

// Reset re-arms d to decode a new frame into buf, which must have
// capacity for at least byteCntMax bytes.
func (d *Demod) Reset(buf []byte, byteCntMax int) {
	d.state = demodUnsynced
	d.posCnt = 0
	d.bitCnt = 0
	d.shiftReg = 0
	d.byteCnt = 0
	d.byteCntMax = byteCntMax
	d.sumI, d.sumQ = 0, 0
	d.buf = buf[:0]
}

// Bytes returns the bytes decoded so far.
func (d *Demod) Bytes() []byte {
	return d.buf
}

// ByteCount reports the number of bytes decoded so far.
func (d *Demod) ByteCount() int {
	return d.byteCnt
}

// abort resyncs the decoder to UNSYNCED and discards the phase
// reference; a new one is rebuilt from the next TR1 burst.
func (d *Demod) abort() {
	d.state = demodUnsynced
	d.posCnt = 0
	d.bitCnt = 0
	d.shiftReg = 0
	d.byteCnt = 0
	d.buf = d.buf[:0]
}

func sgn(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func amplitude(i, q int8) int {
	ii, qq := int(i), int(q)
	if ii < 0 {
		ii = -ii
	}
	if qq < 0 {
		qq = -qq
	}
	return ii + qq
}

// project returns the signed soft decision for one I/Q sample against
// the phase reference trained from TR1: v := sgn(sum_i)*i + sgn(sum_q)*q.
// Positive means in-phase ("1"), negative means inverted ("0").
func (d *Demod) project(i, q int8) int {
	return d.refSignI*int(i) + d.refSignQ*int(q)
}

// Receive feeds one I/Q sample pair into the decoder. It returns true
// exactly when a full frame has been delimited: normally by a run of
// ten phase-inverted "0" samples (EOF), but also for zero-payload
// SOF-only frames (§4.3 special case): a gap exceeding startBitBudget
// after SOF with no bytes yet decoded ends the frame empty instead of
// aborting it.
func (d *Demod) Receive(i, q int8) bool {
	amp := amplitude(i, q)
	switch d.state {
	case demodUnsynced:
		if amp >= SubcarrierDetectThreshold {
			d.state = demodPhaseRefTraining
			d.posCnt = 0
			d.sumI, d.sumQ = 0, 0
		}

	case demodPhaseRefTraining:
		if amp < SubcarrierDetectThreshold {
			d.abort()
			break
		}
		d.sumI += int(i)
		d.sumQ += int(q)
		d.posCnt++
		if d.posCnt >= trainingLen {
			d.refSignI = sgn(d.sumI)
			d.refSignQ = sgn(d.sumQ)
			d.state = demodAwaitingFallingEdgeOfSOF
			d.posCnt = 0
		}

	case demodAwaitingFallingEdgeOfSOF:
		if d.project(i, q) < 0 {
			d.state = demodGotFallingEdgeOfSOF
			d.posCnt = 1
			break
		}
		d.posCnt++
		if d.posCnt > fallingEdgeBudget {
			d.abort()
		}

	case demodGotFallingEdgeOfSOF:
		if d.project(i, q) < 0 {
			d.posCnt++
			if d.posCnt > sofLowMax {
				d.abort()
			}
			break
		}
		if d.posCnt < sofLowMin {
			d.abort()
			break
		}
		d.state = demodAwaitingStartBit
		d.posCnt = 0
		d.bitCnt = 0
		d.byteCnt = 0
		d.buf = d.buf[:0]

	case demodAwaitingStartBit:
		if d.project(i, q) >= 0 {
			d.posCnt++
			if d.posCnt > startBitBudget {
				if d.byteCnt == 0 {
					d.state = demodUnsynced
					return true
				}
				d.abort()
			}
			break
		}
		// This sample is the start bit itself (always "0"), the first
		// of the 10-bit frame: it is already accounted for here rather
		// than re-fed into demodReceivingData.
		d.state = demodReceivingData
		d.posCnt = 0
		d.bitCnt = 1
		d.shiftReg = 0

	case demodReceivingData:
		d.shiftReg >>= 1
		if d.project(i, q) >= 0 {
			d.shiftReg |= 0x200
		}
		d.bitCnt++
		if d.bitCnt == 10 {
			switch {
			case d.shiftReg&0x200 != 0 && d.shiftReg&0x001 == 0:
				b := byte(d.shiftReg >> 1)
				if d.byteCnt >= d.byteCntMax {
					d.abort()
					return true
				}
				d.buf = append(d.buf, b)
				d.byteCnt++
				d.state = demodAwaitingStartBit
				d.posCnt = 0
			case d.shiftReg == 0:
				if d.byteCnt == 0 {
					d.abort()
					return false
				}
				// EOF: resync for the next frame but keep the decoded
				// bytes for the caller.
				d.state = demodUnsynced
				d.posCnt = 0
				d.bitCnt = 0
				d.shiftReg = 0
				return true
			default:
				d.abort()
			}
		}
	}
	return false
}
