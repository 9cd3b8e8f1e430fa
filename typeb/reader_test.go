package typeb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionSelectCard(t *testing.T) {
	pupi := [4]byte{0x11, 0x22, 0x33, 0x44}
	atqb := AppendCRC([]byte{0x50, pupi[0], pupi[1], pupi[2], pupi[3], 0, 0, 0, 0, 0, 0, 0})
	attribAck := AppendCRC([]byte{0x03})

	fe := &fakeFrontend{}
	fe.samples = append(fe.samples, demodEncode(atqb)...)
	fe.samples = append(fe.samples, demodEncode(attribAck)...)

	tc := NewTransceiver(fe)
	sess := NewSession(tc)

	card, err := sess.SelectCard(0x00, false)
	assert.NoError(t, err)
	assert.Equal(t, pupi, card.PUPI)
	assert.Equal(t, byte(0x03), card.CID)

	selected, ok := sess.SelectedCard()
	assert.True(t, ok)
	assert.Equal(t, card, selected)
}

func TestSessionSelectCardBadATQBLength(t *testing.T) {
	fe := &fakeFrontend{}
	fe.samples = demodEncode(AppendCRC([]byte{0x50, 0x01}))

	sess := NewSession(NewTransceiver(fe))
	_, err := sess.SelectCard(0x00, false)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestSessionAPDUReturnsCRCMismatch(t *testing.T) {
	// A response with a deliberately corrupted trailing CRC byte.
	bad := AppendCRC([]byte{0x0a, 0x90, 0x00})
	bad[len(bad)-1] ^= 0xff

	fe := &fakeFrontend{}
	fe.samples = demodEncode(bad)

	sess := NewSession(NewTransceiver(fe))
	sess.selected = true
	out := make([]byte, 16)
	n, err := sess.APDU([]byte{0x00, 0xa4, 0x04, 0x00}, out)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, ErrCRCMismatch)
}

func TestSessionAPDUTogglesBlockNumberRegardlessOfOutcome(t *testing.T) {
	fe := &fakeFrontend{} // no samples queued: every exchange times out
	sess := NewSession(NewTransceiver(fe))
	sess.selected = true
	sess.SetTimeout(4)

	start := sess.pcbBlockNum
	out := make([]byte, 4)
	_, err := sess.APDU([]byte{0x00}, out)
	assert.Error(t, err)
	assert.NotEqual(t, start, sess.pcbBlockNum)
}

func TestSessionSetMaxFrameSizeClampIsExclusive(t *testing.T) {
	sess := &Session{}
	sess.SetMaxFrameSize(256)
	assert.Equal(t, 256, sess.byteCntMax)
	sess.SetMaxFrameSize(257)
	assert.Equal(t, 256, sess.byteCntMax)
}

func TestSessionSetTimeoutClampsToMaxTimeout(t *testing.T) {
	sess := &Session{}
	sess.SetTimeout(MaxTimeout + 1000)
	assert.Equal(t, uint32(MaxTimeout), sess.iso14443bTimeout)
}
