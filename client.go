package h2

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// Connect dials authority (host:port) in cleartext and performs the
// HTTP/2 client preface handshake per SPEC_FULL.md 4.4. TLS/ALPN
// negotiation is out of scope for this module; callers that need TLS
// should wrap their own tls.Dial and pass the resulting net.Conn
// through ConnectConn instead.
func Connect(authority string, opts *Options) (*Connection, error) {
	c, err := net.Dial("tcp", authority)
	if err != nil {
		return nil, errors.Wrap(err, "h2: dial")
	}
	return ConnectConn(c, opts)
}

// ConnectConn performs the client handshake over an already-open
// net.Conn.
func ConnectConn(c net.Conn, opts *Options) (*Connection, error) {
	conn := newConnection(c, true, opts, nil)

	if _, err := conn.bw.WriteString(ClientPreface); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "h2: writing preface")
	}

	st := AcquireFrame(FrameSettings).(*Settings)
	conn.localSettings.CopyTo(st)
	frh := AcquireFrameHeader()
	frh.SetStream(0)
	frh.SetBody(st)
	if _, err := frh.WriteTo(conn.bw); err != nil {
		ReleaseFrameHeader(frh)
		_ = c.Close()
		return nil, errors.Wrap(err, "h2: writing initial settings")
	}
	if err := conn.bw.Flush(); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "h2: flushing handshake")
	}
	ReleaseFrameHeader(frh)

	timeout := conn.opts.SettingsTimeout
	if timeout <= 0 {
		timeout = DefaultSettingsTimeout
	}
	// Grounded on the teacher's serverConn timer trio (maxIdleTimer,
	// pingTimer): a handshake stalled on the peer's SETTINGS fails the
	// connection rather than hanging the caller forever.
	timer := time.AfterFunc(timeout, func() { _ = c.Close() })
	err := awaitServerSettings(conn)
	timer.Stop()
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	conn.run()

	return conn, nil
}

func awaitServerSettings(conn *Connection) error {
	for {
		frh, err := ReadFrameFromWithSize(conn.br, DefaultMaxFrameSize)
		if err != nil {
			return errors.Wrap(err, "h2: reading server settings")
		}

		if frh.Type() != FrameSettings || frh.Stream() != 0 {
			ReleaseFrameHeader(frh)
			return NewConnectionError(ProtocolError, "expected SETTINGS as first server frame")
		}

		st := frh.Body().(*Settings)
		if st.Ack() {
			ReleaseFrameHeader(frh)
			continue
		}

		conn.applySettings(st)
		conn.sendSettingsAckSync()

		ReleaseFrameHeader(frh)
		return nil
	}
}

// sendSettingsAckSync writes a SETTINGS ACK directly (the writer
// goroutine isn't running yet during the handshake).
func (c *Connection) sendSettingsAckSync() error {
	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetAck(true)
	frh := AcquireFrameHeader()
	frh.SetStream(0)
	frh.SetBody(st)
	_, err := frh.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
	}
	ReleaseFrameHeader(frh)
	return err
}

// Request issues a request on a freshly created stream and blocks
// until the complete response (headers + body) has arrived.
func (c *Connection) Request(method, scheme, authority, path string, header map[string]string, body []byte) (*Stream, *Response, error) {
	st := c.NewStream()

	fields := make([]*HeaderField, 0, 4+len(header))
	fields = append(fields, hf(":method", method), hf(":scheme", scheme), hf(":authority", authority), hf(":path", path))
	for k, v := range header {
		fields = append(fields, hf(k, v))
	}

	block, err := c.enc.AppendAll(nil, fields)
	for _, f := range fields {
		ReleaseHeaderField(f)
	}
	if err != nil {
		c.removeStream(st.ID())
		return nil, nil, err
	}

	endStream := len(body) == 0

	if err := st.TransitionSendHeaders(endStream); err != nil {
		return nil, nil, err
	}

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndHeaders(true)
	h.SetEndStream(endStream)
	h.SetHeaders(block)

	frh := AcquireFrameHeader()
	frh.SetStream(st.ID())
	frh.SetBody(h)

	c.enqueue(h, frh, 16)

	if !endStream {
		if err := st.TransitionSendData(true); err != nil {
			return nil, nil, err
		}
		d := AcquireFrame(FrameData).(*Data)
		d.SetData(body)
		d.SetEndStream(true)

		dfrh := AcquireFrameHeader()
		dfrh.SetStream(st.ID())
		dfrh.SetBody(d)
		c.enqueue(d, dfrh, 16)
	}

	res, err := c.awaitResponse(st)
	return st, res, err
}

func hf(k, v string) *HeaderField {
	f := AcquireHeaderField()
	f.Set(k, v)
	return f
}

func (c *Connection) awaitResponse(st *Stream) (*Response, error) {
	res := AcquireResponse()

	for {
		fr, err := st.Dequeue()
		if err != nil {
			ReleaseResponse(res)
			return nil, err
		}

		if h, ok := fr.(*Headers); ok {
			block, done := st.RequestHeaderBlock()
			if done {
				if err := res.ApplyHeaderBlock(c.dec, block); err != nil {
					ReleaseResponse(res)
					cerr := WrapConnectionError(err, CompressionError, "HPACK decode failed on response header block")
					_ = c.closeConnectionFatal(cerr)
					return nil, cerr
				}
			}
			if h.EndStream() {
				return res, nil
			}
			continue
		}

		if d, ok := fr.(*Data); ok {
			res.Write(d.Data())
			endStream := d.EndStream()
			ReleaseFrame(d)
			if endStream {
				return res, nil
			}
			continue
		}
	}
}
