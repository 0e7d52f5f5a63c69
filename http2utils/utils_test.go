package http2utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint16RoundTrip(t *testing.T) {
	var b [2]byte
	Uint16ToBytes(b[:], 0x3abc)
	assert.EqualValues(t, 0x3abc, BytesToUint16(b[:]))
}

func TestUint16MasksReservedBits(t *testing.T) {
	var b [2]byte
	Uint16ToBytes(b[:], 0xffff)
	assert.EqualValues(t, 0x3fff, BytesToUint16(b[:]))
}

func TestUint24RoundTrip(t *testing.T) {
	var b [3]byte
	Uint24ToBytes(b[:], 0x123456)
	assert.EqualValues(t, 0x123456, BytesToUint24(b[:]))
}

func TestUint32RoundTrip(t *testing.T) {
	var b [4]byte
	Uint32ToBytes(b[:], 0xdeadbeef)
	assert.EqualValues(t, 0xdeadbeef, BytesToUint32(b[:]))
}

func TestAppendUint32Bytes(t *testing.T) {
	got := AppendUint32Bytes(nil, 0x01020304)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, got)
}

func TestStreamIDRoundTripMasksReservedBit(t *testing.T) {
	var b [4]byte
	StreamIDToBytes(b[:], 0x80000003)
	assert.EqualValues(t, 3, BytesToStreamID(b[:]))
}

func TestEqualsFold(t *testing.T) {
	assert.True(t, EqualsFold([]byte("Content-Type"), []byte("content-type")))
	assert.False(t, EqualsFold([]byte("Content-Type"), []byte("content-length")))
	assert.False(t, EqualsFold([]byte("abc"), []byte("ab")))
}

func TestResizeGrowsAndTruncates(t *testing.T) {
	b := make([]byte, 2, 8)
	b = Resize(b, 5)
	assert.Len(t, b, 5)

	b = Resize(b, 1)
	assert.Len(t, b, 1)
}

func TestCutPadLowHighBothPresent(t *testing.T) {
	payload := []byte{0x00, 0x03, 'h', 'e', 'l', 'l', 'o', 0, 0, 0}
	pad, body, err := CutPadLowHigh(payload, true, true)
	assert.NoError(t, err)
	assert.Equal(t, 3, pad)
	assert.Equal(t, []byte("hello"), body)
}

func TestCutPadLowHighExceedsPayload(t *testing.T) {
	payload := []byte{0xff, 'h', 'i'}
	_, _, err := CutPadLowHigh(payload, true, false)
	assert.Error(t, err)
}

func TestAddPaddingRoundTrip(t *testing.T) {
	padded := AddPadding([]byte("payload"))
	padLen := int(padded[0])
	assert.Len(t, padded, 1+len("payload")+padLen)
	assert.Equal(t, []byte("payload"), padded[1:1+len("payload")])
}

func TestFastStringBytesRoundTrip(t *testing.T) {
	s := "round trip me"
	b := FastStringToBytes(s)
	assert.Equal(t, s, FastBytesToString(b))
}
