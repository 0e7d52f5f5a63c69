package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerRoundTrip(t *testing.T) {
	for _, n := range []uint{4, 5, 6, 7} {
		for _, v := range []uint64{0, 1, 30, 31, 127, 1337, 1 << 20, 1<<32 - 1} {
			dst := writeInt(nil, n, v)
			got, rest, err := readInt(n, dst)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, v, got)
		}
	}
}

func TestReadIntOverflow(t *testing.T) {
	// An unterminated continuation sequence that would overflow 63 bits.
	b := []byte{0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	_, _, err := readInt(7, b)
	require.Error(t, err)
}

func TestStringRoundTripHuffmanAndRaw(t *testing.T) {
	for _, s := range []string{"", "www.example.com", "custom-value-!@#$%^&*()"} {
		dst := writeString(nil, s)
		got, rest, err := readString(dst)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, s, got)
	}
}

func TestEncodeDecodeSimpleRequest(t *testing.T) {
	enc := NewEncoder(DefaultTableSize)
	dec := NewDecoder(DefaultTableSize)

	fields := []HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/"},
		{Name: ":scheme", Value: "http"},
		{Name: ":authority", Value: "example.com"},
	}

	block := enc.EncodeFull(nil, fields)
	got, err := dec.DecodeFull(block)
	require.NoError(t, err)
	assert.ElementsMatch(t, fields, got)
}

func TestPathIsNeverIndexed(t *testing.T) {
	enc := NewEncoder(DefaultTableSize)

	fields := []HeaderField{{Name: ":path", Value: "/a/very/specific/path"}}
	enc.EncodeFull(nil, fields)

	assert.Equal(t, -1, enc.table.findIndexed(":path", "/a/very/specific/path"))
}

func TestReferenceSetKeepsUnchangedHeaderAcrossBlocks(t *testing.T) {
	enc := NewEncoder(DefaultTableSize)
	dec := NewDecoder(DefaultTableSize)

	first := []HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: "user-agent", Value: "h2-test"},
	}
	block1 := enc.EncodeFull(nil, first)
	got1, err := dec.DecodeFull(block1)
	require.NoError(t, err)
	assert.ElementsMatch(t, first, got1)

	// Second block re-sends the same headers; since both are still
	// referenced, no bytes beyond what changed should be required, and
	// decode must still emit both headers.
	second := []HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: "user-agent", Value: "h2-test"},
	}
	block2 := enc.EncodeFull(nil, second)
	got2, err := dec.DecodeFull(block2)
	require.NoError(t, err)
	assert.ElementsMatch(t, second, got2)
}

func TestReferenceSetRemovesDroppedHeader(t *testing.T) {
	enc := NewEncoder(DefaultTableSize)
	dec := NewDecoder(DefaultTableSize)

	block1 := enc.EncodeFull(nil, []HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: "x-custom", Value: "keep-me-out-of-static"},
	})
	_, err := dec.DecodeFull(block1)
	require.NoError(t, err)

	// Second block omits x-custom entirely; the codec must emit a
	// removal so it doesn't linger in the decoded set.
	block2 := enc.EncodeFull(nil, []HeaderField{
		{Name: ":method", Value: "GET"},
	})
	got2, err := dec.DecodeFull(block2)
	require.NoError(t, err)

	for _, hf := range got2 {
		assert.NotEqual(t, "x-custom", hf.Name)
	}
}

func TestIndexZeroClearsReferenceSet(t *testing.T) {
	enc := NewEncoder(DefaultTableSize)
	dec := NewDecoder(DefaultTableSize)

	block1 := enc.EncodeFull(nil, []HeaderField{{Name: "x-custom", Value: "v1"}})
	_, err := dec.DecodeFull(block1)
	require.NoError(t, err)

	// An explicit index-0 representation clears every referenced flag
	// on the decoder's table without touching entry contents.
	_, err = dec.DecodeFull([]byte{0x80})
	require.NoError(t, err)

	for _, e := range dec.table.entries {
		assert.False(t, e.referenced)
	}
}

func TestDynamicTableEvictsOnSizeBound(t *testing.T) {
	enc := NewEncoder(64)

	enc.EncodeFull(nil, []HeaderField{{Name: "a", Value: "1"}})
	enc.EncodeFull(nil, []HeaderField{{Name: "b", Value: "2"}})
	enc.EncodeFull(nil, []HeaderField{{Name: "c", Value: "3"}})

	total := 0
	for _, e := range enc.table.entries {
		total += e.size
	}
	assert.LessOrEqual(t, total, 64)
}

func TestSetMaxSizeEvictsImmediately(t *testing.T) {
	enc := NewEncoder(DefaultTableSize)
	enc.EncodeFull(nil, []HeaderField{{Name: "x-a", Value: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}})
	require.NotEmpty(t, enc.table.entries)

	enc.SetMaxSize(16)
	assert.Empty(t, enc.table.entries)
}

func TestIndexOutOfRangeIsAnError(t *testing.T) {
	dec := NewDecoder(DefaultTableSize)
	_, err := dec.DecodeFull([]byte{0xff, 0x7f})
	require.Error(t, err)
}

func TestSensibleHeaderNeverIndexed(t *testing.T) {
	enc := NewEncoder(DefaultTableSize)
	enc.EncodeFull(nil, []HeaderField{{Name: "authorization", Value: "Bearer secret", Sensible: true}})

	assert.Equal(t, -1, enc.table.findIndexed("authorization", "Bearer secret"))
}
