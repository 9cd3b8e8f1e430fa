package typeb

// RawStep flags select which stages Raw runs, combined as a bitset
// (§6 host command surface).
type RawStep uint16

const (
	StepConnect RawStep = 1 << iota
	StepSetTimeout
	StepSelectStd
	StepSelectSR
	StepAPDU
	StepRaw
	StepDisconnect
)

// RawParams configures a Raw invocation.
type RawParams struct {
	Steps        RawStep
	AFI          byte
	WakeUp       bool
	TimeoutTicks uint32
	MaxFrame     int
	APDU         []byte
	RawPayload   []byte
}

// StepResult records the outcome of one Raw stage, in the fixed order
// CONNECT, SET_TIMEOUT, SELECT_STD, SELECT_SR, APDU, RAW, DISCONNECT.
// Stages absent from p.Steps are skipped, not recorded.
type StepResult struct {
	Step RawStep
	Data []byte
	Err  error
}

// Raw runs the requested steps against s in the fixed dispatch order,
// stopping at the first failing step (other than DISCONNECT, which
// always runs if requested so the field is left in a known state).
func Raw(s *Session, p RawParams) []StepResult {
	var results []StepResult
	failed := false

	record := func(step RawStep, data []byte, err error) {
		results = append(results, StepResult{Step: step, Data: data, Err: err})
		if err != nil {
			failed = true
		}
	}

	if p.Steps&StepConnect != 0 {
		record(StepConnect, nil, nil)
	}
	if p.Steps&StepSetTimeout != 0 && !failed {
		s.SetTimeout(p.TimeoutTicks)
		if p.MaxFrame != 0 {
			s.SetMaxFrameSize(p.MaxFrame)
		}
		record(StepSetTimeout, nil, nil)
	}
	if p.Steps&StepSelectStd != 0 && !failed {
		card, err := s.SelectCard(p.AFI, p.WakeUp)
		var data []byte
		if err == nil {
			data = append([]byte{}, card.PUPI[:]...)
		}
		record(StepSelectStd, data, err)
	}
	if p.Steps&StepSelectSR != 0 && !failed {
		card, err := s.SelectSRxCard()
		var data []byte
		if err == nil {
			data = append([]byte{}, card.SRxUID[:]...)
		}
		record(StepSelectSR, data, err)
	}
	if p.Steps&StepAPDU != 0 && !failed {
		out := make([]byte, s.byteCntMax)
		n, err := s.APDU(p.APDU, out)
		var data []byte
		if err == nil {
			data = out[:n]
		}
		record(StepAPDU, data, err)
	}
	if p.Steps&StepRaw != 0 && !failed {
		tr, err := s.exchange(p.RawPayload)
		var data []byte
		if err == nil {
			data = tr.Bytes
		}
		record(StepRaw, data, err)
	}
	if p.Steps&StepDisconnect != 0 {
		err := s.HaltCard()
		record(StepDisconnect, nil, err)
	}

	return results
}
