package h2

import (
	"github.com/catatsuy/h2/http2utils"
)

var _ Frame = &Data{}

// Data carries a segment of an HTTP message body.
//
// Flags: END_STREAM, PAD_LOW, PAD_HIGH.
//
// https://tools.ietf.org/html/rfc7540#section-6.1
type Data struct {
	endStream bool
	padLow    bool
	padHigh   bool
	b         []byte
}

func (data *Data) Type() FrameType { return FrameData }

func (data *Data) Reset() {
	data.endStream = false
	data.padLow = false
	data.padHigh = false
	data.b = data.b[:0]
}

func (data *Data) CopyTo(d *Data) {
	d.padLow = data.padLow
	d.padHigh = data.padHigh
	d.endStream = data.endStream
	d.b = append(d.b[:0], data.b...)
}

func (data *Data) SetEndStream(value bool) { data.endStream = value }
func (data *Data) EndStream() bool         { return data.endStream }

func (data *Data) Data() []byte { return data.b }

func (data *Data) SetData(b []byte) { data.b = append(data.b[:0], b...) }

func (data *Data) Padding() bool       { return data.padLow || data.padHigh }
func (data *Data) SetPadding(v bool)   { data.padLow = v }

func (data *Data) Append(b []byte) { data.b = append(data.b, b...) }

func (data *Data) Len() int { return len(data.b) }

func (data *Data) Write(b []byte) (int, error) {
	data.Append(b)
	return len(b), nil
}

func (data *Data) Deserialize(fr *FrameHeader) error {
	if fr.Stream() == 0 {
		return NewConnectionError(ProtocolError, "DATA frame on stream 0")
	}

	payload := fr.payload
	padLow := fr.Flags().Has(FlagPadLow)
	padHigh := fr.Flags().Has(FlagPadHigh)

	if padLow || padHigh {
		_, body, err := http2utils.CutPadLowHigh(payload, padLow, padHigh)
		if err != nil {
			return NewConnectionError(ProtocolError, "DATA padding exceeds payload length")
		}
		payload = body
	}

	data.padLow = padLow
	data.padHigh = padHigh
	data.endStream = fr.Flags().Has(FlagEndStream)
	data.b = append(data.b[:0], payload...)

	return nil
}

func (data *Data) Serialize(fr *FrameHeader) {
	if data.endStream {
		fr.SetFlags(fr.Flags().Add(FlagEndStream))
	}

	if data.padLow {
		fr.SetFlags(fr.Flags().Add(FlagPadLow))
		data.b = http2utils.AddPadding(data.b)
	}

	fr.setPayload(data.b)
}
