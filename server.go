package h2

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Serve accepts connections from ln, performs the server-side preface
// handshake on each, and runs its Connection engine until the peer
// disconnects. Serve blocks until ln.Accept fails or is closed.
//
// Grounded on the teacher's Server.Serve accept loop, generalized away
// from fasthttp's *fasthttp.Server wiring since this module serves its
// own Handler type rather than a fasthttp.RequestHandler.
func Serve(ln net.Listener, handler Handler, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := opts.logger()

	for {
		c, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "h2: accept")
		}

		go func() {
			conn, err := acceptConn(c, opts, handler)
			if err != nil {
				log.Warn("h2: handshake failed", zap.Error(err), zap.String("remote", c.RemoteAddr().String()))
				_ = c.Close()
				return
			}
			<-conn.Done()
		}()
	}
}

// acceptConn performs the server-side preface read and SETTINGS
// exchange before handing the connection to its engine loop.
func acceptConn(c net.Conn, opts *Options, handler Handler) (*Connection, error) {
	conn := newConnection(c, false, opts, handler)

	if err := readClientPreface(conn); err != nil {
		return nil, err
	}

	st := AcquireFrame(FrameSettings).(*Settings)
	conn.localSettings.CopyTo(st)
	frh := AcquireFrameHeader()
	frh.SetStream(0)
	frh.SetBody(st)
	if _, err := frh.WriteTo(conn.bw); err != nil {
		ReleaseFrameHeader(frh)
		return nil, errors.Wrap(err, "h2: writing initial settings")
	}
	if err := conn.bw.Flush(); err != nil {
		return nil, errors.Wrap(err, "h2: flushing handshake")
	}
	ReleaseFrameHeader(frh)

	timeout := conn.opts.SettingsTimeout
	if timeout <= 0 {
		timeout = DefaultSettingsTimeout
	}
	timer := time.AfterFunc(timeout, func() { _ = c.Close() })
	err := awaitClientSettings(conn)
	timer.Stop()
	if err != nil {
		return nil, err
	}

	conn.run()

	return conn, nil
}

func readClientPreface(conn *Connection) error {
	buf := make([]byte, len(ClientPreface))
	if _, err := io.ReadFull(conn.br, buf); err != nil {
		return errors.Wrap(err, "h2: reading client preface")
	}
	if string(buf) != ClientPreface {
		return NewConnectionError(ProtocolError, "invalid client preface")
	}
	return nil
}

func awaitClientSettings(conn *Connection) error {
	for {
		frh, err := ReadFrameFromWithSize(conn.br, DefaultMaxFrameSize)
		if err != nil {
			return errors.Wrap(err, "h2: reading client settings")
		}

		if frh.Type() != FrameSettings || frh.Stream() != 0 {
			ReleaseFrameHeader(frh)
			return NewConnectionError(ProtocolError, "expected SETTINGS as first client frame")
		}

		st := frh.Body().(*Settings)
		if st.Ack() {
			ReleaseFrameHeader(frh)
			continue
		}

		conn.applySettings(st)
		if err := conn.sendSettingsAckSync(); err != nil {
			ReleaseFrameHeader(frh)
			return err
		}

		ReleaseFrameHeader(frh)
		return nil
	}
}
