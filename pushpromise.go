package h2

import (
	"github.com/catatsuy/h2/http2utils"
)

var (
	_ Frame            = &PushPromise{}
	_ FrameWithHeaders = &PushPromise{}
)

// PushPromise reserves a stream for a server-initiated push.
//
// https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	padLow         bool
	padHigh        bool
	endHeaders     bool
	promisedStream uint32
	header         []byte
}

func (pp *PushPromise) Type() FrameType { return FramePushPromise }

func (pp *PushPromise) Reset() {
	pp.padLow = false
	pp.padHigh = false
	pp.endHeaders = false
	pp.promisedStream = 0
	pp.header = pp.header[:0]
}

func (pp *PushPromise) CopyTo(o *PushPromise) {
	o.padLow = pp.padLow
	o.padHigh = pp.padHigh
	o.endHeaders = pp.endHeaders
	o.promisedStream = pp.promisedStream
	o.header = append(o.header[:0], pp.header...)
}

func (pp *PushPromise) PromisedStream() uint32 { return pp.promisedStream }

func (pp *PushPromise) SetPromisedStream(id uint32) { pp.promisedStream = id & 0x7fffffff }

func (pp *PushPromise) EndHeaders() bool         { return pp.endHeaders }
func (pp *PushPromise) SetEndHeaders(value bool) { pp.endHeaders = value }

func (pp *PushPromise) Headers() []byte { return pp.header }

func (pp *PushPromise) SetHeaders(h []byte) { pp.header = append(pp.header[:0], h...) }

func (pp *PushPromise) Write(b []byte) (int, error) {
	pp.header = append(pp.header, b...)
	return len(b), nil
}

func (pp *PushPromise) Deserialize(fr *FrameHeader) error {
	if fr.Stream() == 0 {
		return NewConnectionError(ProtocolError, "PUSH_PROMISE frame on stream 0")
	}

	payload := fr.payload
	padLow := fr.Flags().Has(FlagPadLow)
	padHigh := fr.Flags().Has(FlagPadHigh)
	if padLow || padHigh {
		_, body, err := http2utils.CutPadLowHigh(payload, padLow, padHigh)
		if err != nil {
			return NewConnectionError(ProtocolError, "PUSH_PROMISE padding exceeds payload length")
		}
		payload = body
	}

	if len(payload) < 4 {
		return NewConnectionError(FrameSizeError, "PUSH_PROMISE missing promised stream id")
	}

	pp.padLow = padLow
	pp.padHigh = padHigh
	pp.promisedStream = http2utils.BytesToStreamID(payload[:4])
	pp.header = append(pp.header[:0], payload[4:]...)
	pp.endHeaders = fr.Flags().Has(FlagEndHeaders)

	return nil
}

func (pp *PushPromise) Serialize(fr *FrameHeader) {
	if pp.endHeaders {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}

	payload := make([]byte, 4, 4+len(pp.header))
	http2utils.StreamIDToBytes(payload, pp.promisedStream)
	payload = append(payload, pp.header...)

	if pp.padLow {
		fr.SetFlags(fr.Flags().Add(FlagPadLow))
		payload = http2utils.AddPadding(payload)
	}

	fr.setPayload(payload)
}
