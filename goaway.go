package h2

import (
	"fmt"

	"github.com/catatsuy/h2/http2utils"
)

var _ Frame = &GoAway{}

// GoAway tells the peer to stop creating streams above lastStream and
// shut down once those finish.
//
// https://tools.ietf.org/html/rfc7540#section-6.8
type GoAway struct {
	lastStream uint32
	code       ErrorCode
	data       []byte
}

func (ga *GoAway) Error() string {
	return fmt.Sprintf("GOAWAY lastStream=%d code=%s data=%q", ga.lastStream, ga.code, ga.data)
}

func (ga *GoAway) Type() FrameType { return FrameGoAway }

func (ga *GoAway) Reset() {
	ga.lastStream = 0
	ga.code = 0
	ga.data = ga.data[:0]
}

func (ga *GoAway) CopyTo(o *GoAway) {
	o.lastStream = ga.lastStream
	o.code = ga.code
	o.data = append(o.data[:0], ga.data...)
}

func (ga *GoAway) Code() ErrorCode { return ga.code }

func (ga *GoAway) SetCode(code ErrorCode) { ga.code = code }

func (ga *GoAway) LastStream() uint32 { return ga.lastStream }

func (ga *GoAway) SetLastStream(stream uint32) { ga.lastStream = stream & 0x7fffffff }

func (ga *GoAway) Data() []byte { return ga.data }

func (ga *GoAway) SetData(b []byte) { ga.data = append(ga.data[:0], b...) }

func (ga *GoAway) Deserialize(fr *FrameHeader) error {
	if fr.Stream() != 0 {
		return NewConnectionError(ProtocolError, "GOAWAY frame on non-zero stream")
	}
	if len(fr.payload) < 8 {
		return NewConnectionError(FrameSizeError, "GOAWAY frame shorter than 8 bytes")
	}

	ga.lastStream = http2utils.BytesToStreamID(fr.payload[:4])
	ga.code = ErrorCode(http2utils.BytesToUint32(fr.payload[4:8]))
	ga.data = append(ga.data[:0], fr.payload[8:]...)

	return nil
}

func (ga *GoAway) Serialize(fr *FrameHeader) {
	payload := make([]byte, 8, 8+len(ga.data))
	http2utils.StreamIDToBytes(payload[:4], ga.lastStream)
	http2utils.Uint32ToBytes(payload[4:8], uint32(ga.code))
	payload = append(payload, ga.data...)

	fr.setPayload(payload)
}
