package h2

import (
	"github.com/catatsuy/h2/http2utils"
)

var _ Frame = &WindowUpdate{}

// WindowUpdate replenishes a flow-control window, connection-wide when
// Stream is 0 or per-stream otherwise.
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type WindowUpdate struct {
	increment uint32
}

func (wu *WindowUpdate) Type() FrameType { return FrameWindowUpdate }

func (wu *WindowUpdate) Reset() { wu.increment = 0 }

func (wu *WindowUpdate) CopyTo(w *WindowUpdate) { w.increment = wu.increment }

func (wu *WindowUpdate) Increment() uint32 { return wu.increment }

func (wu *WindowUpdate) SetIncrement(increment uint32) { wu.increment = increment }

func (wu *WindowUpdate) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 4 {
		return NewConnectionError(FrameSizeError, "WINDOW_UPDATE frame must be exactly 4 bytes")
	}

	inc := http2utils.BytesToUint32(fr.payload) & 0x7fffffff
	if inc == 0 {
		if fr.Stream() == 0 {
			return NewConnectionError(FlowControlError, "WINDOW_UPDATE increment of 0 on connection")
		}
		return NewStreamError(fr.Stream(), ProtocolError, "WINDOW_UPDATE increment of 0 on stream")
	}
	if inc > maxWindowSize {
		return NewConnectionError(FlowControlError, "WINDOW_UPDATE increment exceeds 2^31-1")
	}

	wu.increment = inc

	return nil
}

func (wu *WindowUpdate) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], wu.increment&0x7fffffff)
}
