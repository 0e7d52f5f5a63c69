package hpack

import (
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	netHpack "golang.org/x/net/http2/hpack"
)

// ErrIntegerOverflow is returned when a variable-length integer's
// continuation bytes exceed the 63-bit budget readInt enforces.
var ErrIntegerOverflow = errors.New("hpack: integer overflow")

// ErrUnexpectedEOF is returned when a representation is truncated
// mid-field.
var ErrUnexpectedEOF = errors.New("hpack: unexpected end of header block")

var errIndexOutOfRange = errors.New("hpack: header table index out of range")
var errInvalidRepresentation = errors.New("hpack: invalid header field representation")

func hashHeader(name, value string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(value)
	return d.Sum64()
}

// readInt decodes an RFC7541 4.1 variable-length integer with an
// n-bit prefix from b[0], returning the value and the unconsumed tail.
func readInt(n uint, b []byte) (uint64, []byte, error) {
	if len(b) == 0 {
		return 0, b, ErrUnexpectedEOF
	}

	max := uint64(1<<n) - 1
	v := uint64(b[0]) & max
	b = b[1:]
	if v < max {
		return v, b, nil
	}

	var m uint
	for {
		if len(b) == 0 {
			return 0, b, ErrUnexpectedEOF
		}
		c := b[0]
		b = b[1:]
		v += uint64(c&0x7f) << m
		if c&0x80 == 0 {
			return v, b, nil
		}
		m += 7
		if m >= 63 {
			return 0, b, ErrIntegerOverflow
		}
	}
}

// writeInt appends i as an RFC7541 4.1 variable-length integer using
// an n-bit prefix. The prefix byte is appended with its high 8-n bits
// clear; callers that need a pattern or flag in those bits OR it in
// afterwards (writeIntPrefixed, writeIntWithFlag).
func writeInt(dst []byte, n uint, i uint64) []byte {
	max := uint64(1<<n) - 1
	if i < max {
		dst = append(dst, byte(i))
		return dst
	}

	dst = append(dst, byte(max))
	i -= max
	for i >= 0x80 {
		dst = append(dst, byte(0x80|(i&0x7f)))
		i >>= 7
	}
	return append(dst, byte(i))
}

// readString decodes an RFC7541 5.2 string literal (7-bit length
// prefix, high bit of the first byte selects Huffman coding).
func readString(b []byte) (string, []byte, error) {
	if len(b) == 0 {
		return "", b, ErrUnexpectedEOF
	}

	huff := b[0]&0x80 != 0
	length, rest, err := readInt(7, b)
	if err != nil {
		return "", rest, err
	}
	if uint64(len(rest)) < length {
		return "", rest, ErrUnexpectedEOF
	}

	raw := rest[:length]
	rest = rest[length:]

	if !huff {
		return string(raw), rest, nil
	}

	s, err := netHpack.HuffmanDecodeToString(raw)
	if err != nil {
		return "", rest, errors.Wrap(err, "hpack: huffman decode")
	}
	return s, rest, nil
}

// writeString appends s as a Huffman-coded RFC7541 5.2 string literal
// when doing so is no larger than the raw encoding.
func writeString(dst []byte, s string) []byte {
	huffLen := netHpack.HuffmanEncodeLength(s)
	if huffLen >= uint64(len(s)) {
		dst = writeIntWithFlag(dst, 7, uint64(len(s)), false)
		return append(dst, s...)
	}

	dst = writeIntWithFlag(dst, 7, huffLen, true)
	return netHpack.AppendHuffmanString(dst, s)
}

// writeIntWithFlag is writeInt but ORs flag into the high bit of the
// prefix byte, matching how RFC7541 5.2 packs the Huffman flag into
// the same byte as the length prefix.
func writeIntWithFlag(dst []byte, n uint, i uint64, flag bool) []byte {
	start := len(dst)
	dst = writeInt(dst, n, i)
	if flag {
		dst[start] |= 0x80
	}
	return dst
}

// writeIntPrefixed is writeInt but ORs pattern into the representation
// byte's high bits, e.g. 0x80 for an indexed field or 0x40 for a
// literal-with-incremental-indexing name reference.
func writeIntPrefixed(dst []byte, pattern byte, n uint, i uint64) []byte {
	start := len(dst)
	dst = writeInt(dst, n, i)
	dst[start] |= pattern
	return dst
}
