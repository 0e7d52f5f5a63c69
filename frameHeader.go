package h2

import (
	"bufio"
	"io"
	"sync"

	"github.com/catatsuy/h2/http2utils"
)

const (
	// DefaultFrameSize is the fixed wire size of a frame header: 14-bit
	// length + 8-bit type + 8-bit flags + 31-bit stream id, 8 bytes total.
	//
	// https://httpwg.org/specs/rfc7540.html#FrameHeader
	DefaultFrameSize = 8

	// defaultMaxLen is SETTINGS_MAX_FRAME_SIZE's default, and also the
	// largest value the 14-bit length field can carry.
	defaultMaxLen = 1<<14 - 1
)

var frameHeaderPool = sync.Pool{
	New: func() interface{} {
		return &FrameHeader{}
	},
}

// FrameHeader is the parsed 8-byte frame header plus the raw payload bytes
// and, once Deserialize/SetBody has run, the typed Frame body.
//
// Use AcquireFrameHeader/ReleaseFrameHeader to recycle instances; a
// FrameHeader must not be used from more than one goroutine at a time.
//
// https://tools.ietf.org/html/rfc7540#section-4.1
type FrameHeader struct {
	length int        // 14 bits on the wire
	kind   FrameType  // 8 bits
	flags  FrameFlags // 8 bits
	stream uint32     // 31 bits

	maxLen uint32

	rawHeader [DefaultFrameSize]byte
	payload   []byte

	fr Frame
}

func AcquireFrameHeader() *FrameHeader {
	fr := frameHeaderPool.Get().(*FrameHeader)
	fr.Reset()
	return fr
}

func ReleaseFrameHeader(frh *FrameHeader) {
	if frh.fr != nil {
		ReleaseFrame(frh.fr)
	}
	frameHeaderPool.Put(frh)
}

func (frh *FrameHeader) Reset() {
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.length = 0
	frh.maxLen = defaultMaxLen
	frh.fr = nil
	frh.payload = frh.payload[:0]
}

func (frh *FrameHeader) Type() FrameType  { return frh.kind }
func (frh *FrameHeader) Flags() FrameFlags { return frh.flags }

func (frh *FrameHeader) SetFlags(flags FrameFlags) { frh.flags = flags }

func (frh *FrameHeader) Stream() uint32 { return frh.stream }

// SetStream sets the stream id; the reserved top bit is masked off on the
// wire by StreamIDToBytes, not here, so callers may round-trip a raw id.
func (frh *FrameHeader) SetStream(stream uint32) { frh.stream = stream }

func (frh *FrameHeader) Len() int { return frh.length }

func (frh *FrameHeader) MaxLen() uint32 { return frh.maxLen }

func (frh *FrameHeader) SetMaxLen(n uint32) { frh.maxLen = n }

func (frh *FrameHeader) parseValues(header []byte) {
	frh.length = int(http2utils.BytesToUint16(header[0:2]))
	frh.kind = FrameType(header[2])
	frh.flags = FrameFlags(header[3])
	frh.stream = http2utils.BytesToStreamID(header[4:8])
}

func (frh *FrameHeader) buildHeader(header []byte) {
	http2utils.Uint16ToBytes(header[0:2], uint16(frh.length))
	header[2] = byte(frh.kind)
	header[3] = byte(frh.flags)
	http2utils.StreamIDToBytes(header[4:8], frh.stream)
}

// ReadFrameFrom reads and parses one frame, using the default max frame
// size (2^14-1).
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	return ReadFrameFromWithSize(br, defaultMaxLen)
}

// ReadFrameFromWithSize reads and parses one frame, rejecting payloads
// larger than max with a FrameSizeError ConnectionError.
func ReadFrameFromWithSize(br *bufio.Reader, max uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	frh.maxLen = max

	if _, err := frh.readFrom(br); err != nil {
		ReleaseFrameHeader(frh)
		return nil, err
	}

	return frh, nil
}

func (frh *FrameHeader) ReadFrom(br *bufio.Reader) (int64, error) {
	return frh.readFrom(br)
}

func (frh *FrameHeader) readFrom(br *bufio.Reader) (int64, error) {
	header, err := br.Peek(DefaultFrameSize)
	if err != nil {
		return -1, err
	}
	br.Discard(DefaultFrameSize)

	rn := int64(DefaultFrameSize)

	frh.parseValues(header)
	if err := frh.checkLen(); err != nil {
		br.Discard(frh.length)
		return rn, err
	}

	if frh.kind > FrameContinuation {
		br.Discard(frh.length)
		return rn, ErrUnknownFrameType
	}
	frh.fr = AcquireFrame(frh.kind)

	if frh.length > 0 {
		frh.payload = http2utils.Resize(frh.payload, frh.length)

		n, err := io.ReadFull(br, frh.payload[:frh.length])
		rn += int64(n)
		if err != nil {
			return rn, err
		}
	}

	return rn, frh.fr.Deserialize(frh)
}

// WriteTo serializes the frame body into frh and writes header+payload to
// w, returning the total bytes written.
func (frh *FrameHeader) WriteTo(w *bufio.Writer) (wb int64, err error) {
	frh.fr.Serialize(frh)

	frh.length = len(frh.payload)
	frh.buildHeader(frh.rawHeader[:])

	n, err := w.Write(frh.rawHeader[:])
	if err != nil {
		return int64(n), err
	}
	wb += int64(n)

	n, err = w.Write(frh.payload)
	wb += int64(n)

	return wb, err
}

func (frh *FrameHeader) Body() Frame { return frh.fr }

func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("http2: FrameHeader.SetBody: body cannot be nil")
	}
	frh.kind = fr.Type()
	frh.fr = fr
}

func (frh *FrameHeader) setPayload(payload []byte) {
	frh.payload = append(frh.payload[:0], payload...)
}

func (frh *FrameHeader) checkLen() error {
	if frh.maxLen != 0 && frh.length > int(frh.maxLen) {
		return NewConnectionError(FrameSizeError, "frame payload exceeds negotiated maximum size")
	}
	return nil
}

func (frh *FrameHeader) appendCheckingLen(dst, src []byte) ([]byte, error) {
	n := len(src) + len(dst)
	if frh.maxLen > 0 && uint32(n) > frh.maxLen {
		return dst, NewConnectionError(FrameSizeError, "frame payload exceeds negotiated maximum size")
	}
	dst = append(dst, src...)
	frh.length = len(dst)
	return dst, nil
}
