package h2

var (
	_ Frame            = &Continuation{}
	_ FrameWithHeaders = &Continuation{}
)

// Continuation carries the remainder of a header block that did not fit
// in the preceding HEADERS/PUSH_PROMISE frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.10
type Continuation struct {
	endHeaders bool
	rawHeaders []byte
}

func (c *Continuation) Type() FrameType { return FrameContinuation }

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.rawHeaders = c.rawHeaders[:0]
}

func (c *Continuation) CopyTo(cc *Continuation) {
	cc.endHeaders = c.endHeaders
	cc.rawHeaders = append(cc.rawHeaders[:0], c.rawHeaders...)
}

func (c *Continuation) Headers() []byte { return c.rawHeaders }

func (c *Continuation) SetEndHeaders(value bool) { c.endHeaders = value }
func (c *Continuation) EndHeaders() bool         { return c.endHeaders }

func (c *Continuation) SetHeader(b []byte) { c.rawHeaders = append(c.rawHeaders[:0], b...) }

func (c *Continuation) AppendHeader(b []byte) { c.rawHeaders = append(c.rawHeaders, b...) }

func (c *Continuation) Write(b []byte) (int, error) {
	c.AppendHeader(b)
	return len(b), nil
}

func (c *Continuation) Deserialize(fr *FrameHeader) error {
	if fr.Stream() == 0 {
		return NewConnectionError(ProtocolError, "CONTINUATION frame on stream 0")
	}

	c.endHeaders = fr.Flags().Has(FlagEndHeaders)
	c.SetHeader(fr.payload)

	return nil
}

func (c *Continuation) Serialize(fr *FrameHeader) {
	if c.endHeaders {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}
	fr.setPayload(c.rawHeaders)
}
