package typeb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeAsReaderFraming(t *testing.T) {
	var ts Tosend
	ts.Reset()
	CodeAsReader(&ts, []byte{0x05, 0x00, 0x08})

	out := ts.Bytes()
	assert.NotEmpty(t, out)

	// The first bit out is the start of the 10-bit-low SOF.
	assert.Equal(t, byte(0), out[0]>>7&1)
	// Encoded length is a whole number of bytes; Len reports it.
	assert.Equal(t, len(out), ts.Len())
}

func TestCodeAsReaderGrowsWithCommandLength(t *testing.T) {
	var short, long Tosend
	short.Reset()
	CodeAsReader(&short, []byte{0x05})
	long.Reset()
	CodeAsReader(&long, []byte{0x05, 0x00, 0x08, 0x39, 0x73})

	assert.Greater(t, long.Len(), short.Len())
}

func TestCodeAsTagOversamplesFourTimes(t *testing.T) {
	var plain, tag Tosend
	plain.Reset()
	CodeAsReader(&plain, []byte{0x50})
	tag.Reset()
	CodeAsTag(&tag, []byte{0x50})

	// Every data/SOF/EOF bit is repeated 4x under CodeAsTag, plus a
	// TR1 burst and no reader-only padding convention, so the tag
	// encoding of the same payload is always substantially longer.
	assert.Greater(t, tag.Len(), plain.Len())
}

func TestCodeAsTagEmptyCommandStillFramesSOFAndEOF(t *testing.T) {
	var ts Tosend
	ts.Reset()
	CodeAsTag(&ts, nil)
	assert.NotZero(t, ts.Len())
}
