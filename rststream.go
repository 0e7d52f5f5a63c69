package h2

import (
	"github.com/catatsuy/h2/http2utils"
)

var _ Frame = &RstStream{}

// RstStream abruptly terminates a stream.
//
// https://tools.ietf.org/html/rfc7540#section-6.4
type RstStream struct {
	code ErrorCode
}

func (rst *RstStream) Type() FrameType { return FrameRstStream }

func (rst *RstStream) Code() ErrorCode { return rst.code }

func (rst *RstStream) SetCode(code ErrorCode) { rst.code = code }

func (rst *RstStream) Reset() { rst.code = 0 }

func (rst *RstStream) CopyTo(r *RstStream) { r.code = rst.code }

func (rst *RstStream) Deserialize(fr *FrameHeader) error {
	if fr.Stream() == 0 {
		return NewConnectionError(ProtocolError, "RST_STREAM frame on stream 0")
	}
	if len(fr.payload) != 4 {
		return NewConnectionError(FrameSizeError, "RST_STREAM frame must be exactly 4 bytes")
	}

	rst.code = ErrorCode(http2utils.BytesToUint32(fr.payload))

	return nil
}

func (rst *RstStream) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], uint32(rst.code))
}
