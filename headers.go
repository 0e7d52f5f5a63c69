package h2

import (
	"github.com/catatsuy/h2/http2utils"
)

var (
	_ Frame            = &Headers{}
	_ FrameWithHeaders = &Headers{}
)

// Headers opens (or continues) a stream's header block.
//
// Flags: END_STREAM, END_HEADERS, PRIORITY, PAD_LOW, PAD_HIGH.
//
// https://tools.ietf.org/html/rfc7540#section-6.2
type Headers struct {
	padLow      bool
	padHigh     bool
	hasPriority bool
	depStream   uint32 // stream dependency, only meaningful if hasPriority
	weight      uint8
	endStream   bool
	endHeaders  bool
	rawHeaders  []byte
}

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.padLow = false
	h.padHigh = false
	h.hasPriority = false
	h.depStream = 0
	h.weight = 0
	h.endStream = false
	h.endHeaders = false
	h.rawHeaders = h.rawHeaders[:0]
}

func (h *Headers) CopyTo(h2 *Headers) {
	h2.padLow = h.padLow
	h2.padHigh = h.padHigh
	h2.hasPriority = h.hasPriority
	h2.depStream = h.depStream
	h2.weight = h.weight
	h2.endStream = h.endStream
	h2.endHeaders = h.endHeaders
	h2.rawHeaders = append(h2.rawHeaders[:0], h.rawHeaders...)
}

func (h *Headers) Headers() []byte { return h.rawHeaders }

func (h *Headers) SetHeaders(b []byte) { h.rawHeaders = append(h.rawHeaders[:0], b...) }

func (h *Headers) AppendRawHeaders(b []byte) { h.rawHeaders = append(h.rawHeaders, b...) }

func (h *Headers) AppendHeaderField(enc *Encoder, hf HeaderField) {
	h.rawHeaders = enc.Append(h.rawHeaders, hf)
}

func (h *Headers) EndStream() bool          { return h.endStream }
func (h *Headers) SetEndStream(value bool)  { h.endStream = value }
func (h *Headers) EndHeaders() bool         { return h.endHeaders }
func (h *Headers) SetEndHeaders(value bool) { h.endHeaders = value }

func (h *Headers) HasPriority() bool    { return h.hasPriority }
func (h *Headers) DepStream() uint32    { return h.depStream }
func (h *Headers) Weight() byte         { return h.weight }

func (h *Headers) SetPriority(depStream uint32, weight byte) {
	h.hasPriority = true
	h.depStream = depStream
	h.weight = weight
}

func (h *Headers) Padding() bool     { return h.padLow || h.padHigh }
func (h *Headers) SetPadding(v bool) { h.padLow = v }

func (h *Headers) Deserialize(frh *FrameHeader) error {
	if frh.Stream() == 0 {
		return NewConnectionError(ProtocolError, "HEADERS frame on stream 0")
	}

	flags := frh.Flags()
	payload := frh.payload

	padLow := flags.Has(FlagPadLow)
	padHigh := flags.Has(FlagPadHigh)
	if padLow || padHigh {
		_, body, err := http2utils.CutPadLowHigh(payload, padLow, padHigh)
		if err != nil {
			return NewConnectionError(ProtocolError, "HEADERS padding exceeds payload length")
		}
		payload = body
	}

	if flags.Has(FlagPriority) {
		if len(payload) < 5 {
			return NewConnectionError(FrameSizeError, "HEADERS priority field truncated")
		}
		h.hasPriority = true
		h.depStream = http2utils.BytesToStreamID(payload[:4])
		h.weight = payload[4]
		payload = payload[5:]
	} else {
		h.hasPriority = false
	}

	h.padLow = padLow
	h.padHigh = padHigh
	h.endStream = flags.Has(FlagEndStream)
	h.endHeaders = flags.Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)

	return nil
}

func (h *Headers) Serialize(frh *FrameHeader) {
	if h.endStream {
		frh.SetFlags(frh.Flags().Add(FlagEndStream))
	}
	if h.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}

	payload := h.rawHeaders

	if h.hasPriority {
		frh.SetFlags(frh.Flags().Add(FlagPriority))
		prio := make([]byte, 5)
		http2utils.StreamIDToBytes(prio[:4], h.depStream)
		prio[4] = h.weight
		payload = append(append([]byte{}, prio...), payload...)
	}

	if h.padLow {
		frh.SetFlags(frh.Flags().Add(FlagPadLow))
		payload = http2utils.AddPadding(payload)
	}

	frh.setPayload(payload)
}
