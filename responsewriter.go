package h2

import "github.com/pkg/errors"

// ResponseWriter is the server-side handle a Handler uses to answer a
// stream: write response headers, stream the body, and optionally push
// additional streams before the response headers go out.
//
// Grounded on the teacher's server_fasthttp.go RequestCtx-style handle,
// generalized away from fasthttp.RequestCtx to this module's own
// Request/Response types since the wire format and header model no
// longer match fasthttp's HTTP/1 request/response pair closely enough
// to reuse it directly.
type ResponseWriter struct {
	c  *Connection
	st *Stream

	res           *Response
	headersWritten bool
}

func newResponseWriter(c *Connection, st *Stream) *ResponseWriter {
	return &ResponseWriter{c: c, st: st, res: AcquireResponse()}
}

// Header returns the response the caller should populate before the
// first Write or WriteHeaders call.
func (rw *ResponseWriter) Header() *Response { return rw.res }

// WriteHeaders flushes the response's status and header fields as a
// HEADERS frame; Write may be called any number of times afterward.
func (rw *ResponseWriter) WriteHeaders(endStream bool) error {
	if rw.headersWritten {
		return nil
	}
	rw.headersWritten = true

	if err := rw.st.TransitionSendHeaders(endStream); err != nil {
		return err
	}

	block, err := rw.res.EncodeHeaderBlock(rw.c.enc)
	if err != nil {
		return err
	}

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndHeaders(true)
	h.SetEndStream(endStream)
	h.SetHeaders(block)

	frh := AcquireFrameHeader()
	frh.SetStream(rw.st.ID())
	frh.SetBody(h)

	rw.c.enqueue(h, frh, 16)
	return nil
}

// Write streams body bytes as one or more DATA frames (fragmented to
// MAX_FRAME_SIZE by the writer). END_STREAM is not set here: finish
// sends it once the handler returns.
func (rw *ResponseWriter) Write(p []byte) (int, error) {
	if err := rw.WriteHeaders(false); err != nil {
		return 0, err
	}
	if err := rw.st.TransitionSendData(false); err != nil {
		return 0, err
	}

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(p)
	d.SetEndStream(false)

	frh := AcquireFrameHeader()
	frh.SetStream(rw.st.ID())
	frh.SetBody(d)

	rw.c.enqueue(d, frh, 16)
	return len(p), nil
}

// Push reserves a new stream for a server push: it writes a
// PUSH_PROMISE on rw's stream and returns the reserved stream the
// caller should then write a response on (headers/body) as normal.
func (rw *ResponseWriter) Push(method, path, authority string) (*Stream, error) {
	if !rw.c.remoteSettings.EnablePush() {
		return nil, ErrPushDisabled
	}

	promised := rw.c.NewStream()
	promised.ReserveLocal()

	methodHF := AcquireHeaderField()
	methodHF.Set(":method", method)
	pathHF := AcquireHeaderField()
	pathHF.Set(":path", path)
	authHF := AcquireHeaderField()
	authHF.Set(":authority", authority)

	block, err := rw.c.enc.AppendAll(nil, []*HeaderField{methodHF, pathHF, authHF})
	ReleaseHeaderField(methodHF)
	ReleaseHeaderField(pathHF)
	ReleaseHeaderField(authHF)
	if err != nil {
		rw.c.removeStream(promised.ID())
		return nil, err
	}

	pp := AcquireFrame(FramePushPromise).(*PushPromise)
	pp.SetPromisedStream(promised.ID())
	pp.SetEndHeaders(true)
	pp.SetHeaders(block)

	frh := AcquireFrameHeader()
	frh.SetStream(rw.st.ID())
	frh.SetBody(pp)

	rw.c.enqueue(pp, frh, 255)

	return promised, nil
}

// finish sets END_STREAM on an already-open response, or writes an
// empty END_STREAM HEADERS frame if none was written.
func (rw *ResponseWriter) finish() {
	if !rw.headersWritten {
		_ = rw.WriteHeaders(true)
		return
	}

	if err := rw.st.TransitionSendData(true); err != nil {
		return
	}

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(nil)
	d.SetEndStream(true)

	frh := AcquireFrameHeader()
	frh.SetStream(rw.st.ID())
	frh.SetBody(d)

	rw.c.enqueue(d, frh, 16)
}

// ErrPushDisabled is returned by Push when the peer's SETTINGS
// advertised ENABLE_PUSH=0.
var ErrPushDisabled = errors.New("h2: peer disabled server push")
