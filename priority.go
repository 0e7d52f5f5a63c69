package h2

import (
	"github.com/catatsuy/h2/http2utils"
)

var _ Frame = &Priority{}

// Priority reprioritizes a stream relative to a dependency.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	depStream uint32
	weight    byte
}

func (pry *Priority) Type() FrameType { return FramePriority }

func (pry *Priority) Reset() {
	pry.depStream = 0
	pry.weight = 0
}

func (pry *Priority) CopyTo(p *Priority) {
	p.depStream = pry.depStream
	p.weight = pry.weight
}

func (pry *Priority) DepStream() uint32 { return pry.depStream }

func (pry *Priority) SetDepStream(stream uint32) { pry.depStream = stream & 0x7fffffff }

func (pry *Priority) Weight() byte { return pry.weight }

func (pry *Priority) SetWeight(w byte) { pry.weight = w }

func (pry *Priority) Deserialize(fr *FrameHeader) error {
	if fr.Stream() == 0 {
		return NewConnectionError(ProtocolError, "PRIORITY frame on stream 0")
	}
	if len(fr.payload) != 5 {
		return NewConnectionError(FrameSizeError, "PRIORITY frame must be exactly 5 bytes")
	}

	pry.depStream = http2utils.BytesToStreamID(fr.payload[:4])
	pry.weight = fr.payload[4]

	return nil
}

func (pry *Priority) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], pry.depStream&0x7fffffff)
	fr.payload = append(fr.payload, pry.weight)
}
