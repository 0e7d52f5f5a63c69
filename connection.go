package h2

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ClientPreface is the 24-byte token a client must send before its
// first SETTINGS frame.
//
// https://tools.ietf.org/html/rfc7540#section-3.5
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Handler processes one request/response exchange on a server-side
// stream.
type Handler func(*Stream, *Request, *ResponseWriter)

// Connection multiplexes streams over one net.Conn, running one reader
// goroutine and one writer goroutine per SPEC_FULL.md 5 (directly
// grounded on the teacher's serverConn.Serve readLoop/writeLoop
// goroutine pair, generalized to serve both the client and server
// role from a single engine since the wire protocol and stream state
// machine are now identical on both sides).
type Connection struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	isClient bool

	opts *Options
	log  *zap.Logger

	mu          sync.Mutex
	streams     map[uint32]*Stream
	nextID      uint32
	lastPeerID  uint32
	closing     bool
	localSettings  *Settings
	remoteSettings *Settings

	connWindowOut int64
	connWindowIn  int64
	windowSignal  chan struct{}

	queue *PriorityFrameQueue
	wake  chan struct{}

	enc *Encoder
	dec *Decoder

	handler Handler

	settingsAcked chan struct{}
	closed        chan struct{}
	closeOnce     sync.Once

	unackedPings int32

	// headerBlockStream is the stream id CONTINUATION frames must
	// arrive on while a header block is open, or 0 if none. Any frame
	// on a different stream while this is set is a connection error
	// per SPEC_FULL.md 5 (HEADERS/CONTINUATION must not be interleaved
	// with other frames).
	headerBlockStream uint32
	// headerBlockTarget is the stream whose accumulator CONTINUATION
	// fragments append to; equal to headerBlockStream except while
	// continuing a PUSH_PROMISE, where fragments belong to the
	// promised stream but arrive on the sender's stream id.
	headerBlockTarget uint32
}

// newConnection builds the shared engine state; role-specific
// handshake code lives in client.go/server.go.
func newConnection(c net.Conn, isClient bool, opts *Options, handler Handler) *Connection {
	if opts == nil {
		opts = DefaultOptions()
	}

	conn := &Connection{
		conn:           c,
		br:             bufio.NewReaderSize(c, 4096),
		bw:             bufio.NewWriterSize(c, int(DefaultMaxFrameSize)),
		isClient:       isClient,
		opts:           opts,
		log:            opts.logger(),
		streams:        make(map[uint32]*Stream),
		localSettings:  opts.settings(),
		remoteSettings: DefaultSettings(),
		connWindowOut:  int64(DefaultInitialWindowSize),
		connWindowIn:   int64(DefaultInitialWindowSize),
		windowSignal:   make(chan struct{}, 1),
		queue:          NewPriorityFrameQueue(),
		wake:           make(chan struct{}, 1),
		enc:            NewEncoder(int(DefaultHeaderTableSize)),
		dec:            NewDecoder(int(DefaultHeaderTableSize)),
		handler:        handler,
		settingsAcked:  make(chan struct{}),
		closed:         make(chan struct{}),
	}

	if isClient {
		conn.nextID = 1
	} else {
		conn.nextID = 2
	}

	return conn
}

// Close severs the connection: it sends GOAWAY, resets every open
// stream, and closes the transport.
func (c *Connection) Close(code ErrorCode) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		last := c.lastPeerID
		c.mu.Unlock()

		ga := AcquireFrame(FrameGoAway).(*GoAway)
		ga.SetLastStream(last)
		ga.SetCode(code)
		frh := AcquireFrameHeader()
		frh.SetStream(0)
		frh.SetBody(ga)
		_, _ = frh.WriteTo(c.bw)
		_ = c.bw.Flush()
		ReleaseFrameHeader(frh)

		c.mu.Lock()
		for id, st := range c.streams {
			st.Reset(errors.Wrapf(ErrConnectionClosed, "stream %d", id))
		}
		c.mu.Unlock()

		err = c.conn.Close()
		connectionsClosed.WithLabelValues(code.String()).Inc()
		activeConnections.Dec()
		close(c.closed)
	})
	return err
}

// Done reports a channel closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} { return c.closed }

func (c *Connection) getStream(id uint32) (*Stream, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.streams[id]
	return st, ok
}

func (c *Connection) addStream(st *Stream) {
	c.mu.Lock()
	c.streams[st.ID()] = st
	c.mu.Unlock()
	activeStreams.Inc()
}

func (c *Connection) removeStream(id uint32) {
	c.mu.Lock()
	_, existed := c.streams[id]
	delete(c.streams, id)
	c.mu.Unlock()
	if existed {
		activeStreams.Dec()
	}
}

// NewStream creates and registers a locally-initiated stream with the
// live initial window per SPEC_FULL.md 4.4's satori-grounded rule.
func (c *Connection) NewStream() *Stream {
	c.mu.Lock()
	id := c.nextID
	c.nextID += 2
	window := c.remoteSettings.InitialWindowSize()
	c.mu.Unlock()

	st := NewStream(id, window)
	c.addStream(st)
	return st
}

// openStreamCount counts streams not yet CLOSED, the population
// MAX_CONCURRENT_STREAMS bounds.
func (c *Connection) openStreamCount() int {
	n := 0
	for _, st := range c.streams {
		if st.State() != StreamStateClosed {
			n++
		}
	}
	return n
}

func (c *Connection) newPeerStream(id uint32) (*Stream, error) {
	c.mu.Lock()
	window := c.remoteSettings.InitialWindowSize()
	max := c.localSettings.MaxConcurrentStreams()
	if max != 0 && uint32(c.openStreamCount()) >= max {
		c.mu.Unlock()
		return nil, NewStreamError(id, RefusedStream, "MAX_CONCURRENT_STREAMS exceeded")
	}
	if id > c.lastPeerID {
		c.lastPeerID = id
	}
	c.mu.Unlock()

	st := NewStream(id, window)
	c.addStream(st)
	return st, nil
}

// enqueue submits a frame for the writer goroutine at the given
// weight and wakes it.
func (c *Connection) enqueue(fr Frame, frh *FrameHeader, weight uint8) {
	c.mu.Lock()
	c.queue.Push(fr, frh, weight)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// run starts the reader and writer goroutines; callers block on Done
// or on their own request futures.
func (c *Connection) run() {
	activeConnections.Inc()
	go c.writeLoop()
	go c.readLoop()
}

func (c *Connection) writeLoop() {
	defer func() { _ = c.Close(InternalError) }()

	interval := c.opts.PingInterval
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		fr, frh := c.queue.Pop()
		c.mu.Unlock()

		if fr != nil {
			if data, ok := fr.(*Data); ok {
				if err := c.writeDataFrame(data, frh); err != nil {
					c.log.Warn("write data frame", zap.Error(err))
					return
				}
				framesWritten.WithLabelValues(FrameData.String()).Inc()
				continue
			}

			kind := fr.Type()
			if _, err := frh.WriteTo(c.bw); err != nil {
				c.log.Warn("write frame", zap.Error(err))
				return
			}
			if err := c.bw.Flush(); err != nil {
				c.log.Warn("flush", zap.Error(err))
				return
			}
			framesWritten.WithLabelValues(kind.String()).Inc()
			ReleaseFrameHeader(frh)
			continue
		}

		select {
		case <-c.wake:
		case <-ticker.C:
			if err := c.writePing(false, [8]byte{}); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// writeDataFrame honors MAX_FRAME_SIZE by fragmenting a DATA frame
// larger than the negotiated limit into consecutive DATA frames with
// END_STREAM set only on the last, and blocks until both the connection
// window and the stream's window cover each chunk, per SPEC_FULL.md
// 4.4's writer protocol.
func (c *Connection) writeDataFrame(data *Data, frh *FrameHeader) error {
	body := data.Data()
	endStream := data.EndStream()
	streamID := frh.Stream()

	maxFrame := int(DefaultMaxFrameSize)

	st, _ := c.getStream(streamID)
	var stWindow chan struct{}
	if st != nil {
		stWindow = st.windowSignal
	}

	for off := 0; off < len(body) || (len(body) == 0 && off == 0); {
		end := off + maxFrame
		if end > len(body) {
			end = len(body)
		}
		chunk := body[off:end]

		n := int64(len(chunk))
		for n > 0 {
			c.mu.Lock()
			avail := c.connWindowOut
			c.mu.Unlock()
			if avail >= n && (st == nil || st.TakeOutboundWindow(n)) {
				c.mu.Lock()
				c.connWindowOut -= n
				c.mu.Unlock()
				break
			}
			select {
			case <-c.windowSignal:
			case <-stWindow:
			case <-c.closed:
				return ErrConnectionClosed
			}
		}

		last := end == len(body)

		d := AcquireFrame(FrameData).(*Data)
		d.SetData(chunk)
		d.SetEndStream(last && endStream)

		f := AcquireFrameHeader()
		f.SetStream(streamID)
		f.SetBody(d)

		if _, err := f.WriteTo(c.bw); err != nil {
			ReleaseFrameHeader(f)
			return err
		}
		ReleaseFrameHeader(f)

		off = end
		if last {
			break
		}
	}

	if err := c.bw.Flush(); err != nil {
		return err
	}
	ReleaseFrameHeader(frh)
	return nil
}

func (c *Connection) writePing(ack bool, data [8]byte) error {
	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetAck(ack)
	ping.SetData(data[:])

	frh := AcquireFrameHeader()
	frh.SetStream(0)
	frh.SetBody(ping)

	_, err := frh.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
	}
	ReleaseFrameHeader(frh)

	if err == nil && !ack {
		atomic.AddInt32(&c.unackedPings, 1)
	}
	return err
}

func (c *Connection) sendSettingsAck() {
	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetAck(true)
	frh := AcquireFrameHeader()
	frh.SetStream(0)
	frh.SetBody(st)
	c.enqueue(st, frh, 255)
}

func (c *Connection) readLoop() {
	defer func() { _ = c.Close(NoError) }()

	for {
		frh, err := ReadFrameFromWithSize(c.br, DefaultMaxFrameSize)
		if err != nil {
			c.log.Debug("read frame", zap.Error(err))
			if serr, ok := err.(*StreamError); ok {
				c.resetStream(serr)
				continue
			}
			if ce, ok := err.(*ConnectionError); ok {
				_ = c.Close(ce.Code)
			}
			return
		}

		framesRead.WithLabelValues(frh.Type().String()).Inc()

		if err := c.dispatch(frh); err != nil {
			if serr, ok := err.(*StreamError); ok {
				c.log.Warn("stream error", zap.Error(err))
				c.resetStream(serr)
				ReleaseFrameHeader(frh)
				continue
			}

			c.log.Warn("dispatch frame", zap.Error(err))
			ReleaseFrameHeader(frh)
			if ce, ok := err.(*ConnectionError); ok {
				_ = c.Close(ce.Code)
			}
			return
		}

		ReleaseFrameHeader(frh)
	}
}

// closeConnectionFatal logs cerr and tears down the whole connection.
// Used by code paths outside readLoop's own dispatch-error handling
// (serveStream's and awaitResponse's own goroutines) that discover a
// connection-fatal condition, such as an HPACK decode failure: per
// SPEC_FULL.md 7, a failed decode desynchronizes the shared dynamic
// table, corrupting every subsequent header block on the connection,
// not just the one that failed.
func (c *Connection) closeConnectionFatal(cerr *ConnectionError) error {
	c.log.Warn("connection error", zap.Error(cerr))
	return c.Close(cerr.Code)
}

// resetStream answers a StreamError from an already-registered stream
// with RST_STREAM: the stream is torn down and its futures resolved
// with serr, but the connection and every other stream on it are
// unaffected, per spec 7.
func (c *Connection) resetStream(serr *StreamError) {
	streamsReset.WithLabelValues(serr.Code.String()).Inc()

	if st, ok := c.getStream(serr.StreamID); ok {
		st.Reset(serr)
		c.removeStream(serr.StreamID)
	}

	rs := AcquireFrame(FrameRstStream).(*RstStream)
	rs.SetCode(serr.Code)

	frh := AcquireFrameHeader()
	frh.SetStream(serr.StreamID)
	frh.SetBody(rs)

	c.enqueue(rs, frh, 255)
}

// goAway answers a peer GOAWAY per SPEC_FULL.md 5: every stream this
// side opened above the peer's last-processed-stream-id was never
// seen by the peer and must be treated as refused so the caller can
// safely retry it elsewhere, rather than waiting forever on a stream
// the peer has already discarded.
func (c *Connection) goAway(lastStream uint32, code ErrorCode) {
	c.mu.Lock()
	c.closing = true
	var toRefuse []*Stream
	for id, st := range c.streams {
		if id > lastStream {
			toRefuse = append(toRefuse, st)
		}
	}
	c.mu.Unlock()

	c.log.Warn("peer GOAWAY", zap.Uint32("lastStream", lastStream), zap.Stringer("code", code))

	for _, st := range toRefuse {
		st.Reset(NewStreamError(st.ID(), RefusedStream, "connection going away"))
		c.removeStream(st.ID())
	}
}

func (c *Connection) dispatch(frh *FrameHeader) error {
	c.mu.Lock()
	pending := c.headerBlockStream
	c.mu.Unlock()

	if pending != 0 {
		if frh.Type() != FrameContinuation || frh.Stream() != pending {
			return NewConnectionError(ProtocolError, "expected CONTINUATION on the stream with an open header block")
		}
	}

	if frh.Stream() == 0 {
		return c.dispatchConnectionFrame(frh)
	}
	return c.dispatchStreamFrame(frh)
}

// trackHeaderBlock records whether a HEADERS/PUSH_PROMISE/CONTINUATION
// frame leaves a header block open awaiting END_HEADERS, and which
// stream's accumulator subsequent CONTINUATION fragments belong to.
func (c *Connection) trackHeaderBlock(streamID, target uint32, endHeaders bool) {
	c.mu.Lock()
	if endHeaders {
		c.headerBlockStream = 0
		c.headerBlockTarget = 0
	} else {
		c.headerBlockStream = streamID
		c.headerBlockTarget = target
	}
	c.mu.Unlock()
}

func (c *Connection) currentHeaderBlockTarget() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headerBlockTarget
}

func (c *Connection) dispatchConnectionFrame(frh *FrameHeader) error {
	switch frh.Type() {
	case FramePing:
		ping := frh.Body().(*Ping)
		if ping.Ack() {
			atomic.AddInt32(&c.unackedPings, -1)
			return nil
		}
		pong := AcquireFrame(FramePing).(*Ping)
		pong.SetAck(true)
		pong.SetData(ping.Data())
		pfrh := AcquireFrameHeader()
		pfrh.SetStream(0)
		pfrh.SetBody(pong)
		c.enqueue(pong, pfrh, 255)
		return nil
	case FrameSettings:
		st := frh.Body().(*Settings)
		if st.Ack() {
			select {
			case <-c.settingsAcked:
			default:
				close(c.settingsAcked)
			}
			return nil
		}
		c.applySettings(st)
		c.sendSettingsAck()
		return nil
	case FrameWindowUpdate:
		wu := frh.Body().(*WindowUpdate)
		c.mu.Lock()
		c.connWindowOut += int64(wu.Increment())
		c.mu.Unlock()
		select {
		case c.windowSignal <- struct{}{}:
		default:
		}
		return nil
	case FrameGoAway:
		ga := frh.Body().(*GoAway)
		c.goAway(ga.LastStream(), ga.Code())
		return nil
	default:
		return NewConnectionError(ProtocolError, "frame type not permitted on stream 0")
	}
}

func copyPingData(b []byte) [8]byte {
	var out [8]byte
	copy(out[:], b)
	return out
}

func (c *Connection) applySettings(st *Settings) {
	c.mu.Lock()
	oldWindow := int64(c.remoteSettings.InitialWindowSize())
	// st is a pooled frame body released after dispatch, and a SETTINGS
	// frame may list only the values that changed: merge, don't keep it.
	for id, v := range st.values {
		c.remoteSettings.Set(id, v)
	}
	newWindow := int64(c.remoteSettings.InitialWindowSize())
	tableSize := c.remoteSettings.HeaderTableSize()
	delta := newWindow - oldWindow
	streams := make([]*Stream, 0, len(c.streams))
	for _, s := range c.streams {
		streams = append(streams, s)
	}
	c.mu.Unlock()

	c.enc.SetMaxSize(int(tableSize))

	if delta != 0 {
		for _, s := range streams {
			s.AddOutboundWindowDelta(delta)
		}
	}
}

func (c *Connection) dispatchStreamFrame(frh *FrameHeader) error {
	id := frh.Stream()

	st, ok := c.getStream(id)
	if !ok {
		if frh.Type() != FrameHeaders {
			return NewConnectionError(ProtocolError, "frame on unknown stream")
		}
		if c.isClient == (id%2 == 1) {
			// Locally-numbered id the peer shouldn't be originating.
			return NewConnectionError(ProtocolError, "peer used a locally-numbered stream id")
		}
		var err error
		st, err = c.newPeerStream(id)
		if err != nil {
			return c.refuseStream(id, err.(*StreamError))
		}
		if c.handler != nil {
			go c.serveStream(st)
		}
	}

	switch frh.Type() {
	case FrameWindowUpdate:
		wu := frh.Body().(*WindowUpdate)
		st.GrowOutboundWindow(wu.Increment())
		return nil
	case FramePriority:
		p := frh.Body().(*Priority)
		st.SetPriority(p.DepStream(), p.Weight())
		return nil
	case FrameRstStream:
		rs := frh.Body().(*RstStream)
		st.Reset(NewStreamError(id, rs.Code(), "peer sent RST_STREAM"))
		c.removeStream(id)
		return nil
	case FrameHeaders:
		h := frh.Body().(*Headers)
		if err := st.TransitionRecvHeaders(h.EndStream()); err != nil {
			return err
		}
		c.trackHeaderBlock(id, id, h.EndHeaders())
		st.AppendRequestHeaderFragment(h.Headers(), h.EndHeaders())
		return c.deliverIfComplete(st, frh)
	case FrameContinuation:
		cont := frh.Body().(*Continuation)
		target, ok := c.getStream(c.currentHeaderBlockTarget())
		if !ok {
			return NewConnectionError(ProtocolError, "CONTINUATION with no open header block")
		}
		c.trackHeaderBlock(id, target.ID(), cont.EndHeaders())
		target.AppendRequestHeaderFragment(cont.Headers(), cont.EndHeaders())
		return c.deliverIfComplete(target, frh)
	case FrameData:
		d := frh.Body().(*Data)
		if err := st.TransitionRecvData(d.EndStream()); err != nil {
			return err
		}
		return st.Enqueue(copyDataFrame(d))
	case FramePushPromise:
		pp := frh.Body().(*PushPromise)
		promised, err := c.newPeerStream(pp.PromisedStream())
		if err != nil {
			return c.refuseStream(pp.PromisedStream(), err.(*StreamError))
		}
		// The header block PUSH_PROMISE opens continues on the sending
		// stream id, not the promised one: CONTINUATION frames name id,
		// never pp.PromisedStream().
		c.trackHeaderBlock(id, promised.ID(), pp.EndHeaders())
		promised.ReserveRemote()
		promised.AppendRequestHeaderFragment(pp.Headers(), pp.EndHeaders())
		return nil
	default:
		return st.Enqueue(frh.Body())
	}
}

// refuseStream answers a stream-level error with RST_STREAM rather
// than letting it propagate to a connection-fatal GOAWAY.
func (c *Connection) refuseStream(id uint32, serr *StreamError) error {
	streamsRefused.Inc()

	rs := AcquireFrame(FrameRstStream).(*RstStream)
	rs.SetCode(serr.Code)

	frh := AcquireFrameHeader()
	frh.SetStream(id)
	frh.SetBody(rs)

	c.enqueue(rs, frh, 255)
	return nil
}

func (c *Connection) deliverIfComplete(st *Stream, frh *FrameHeader) error {
	_, done := st.RequestHeaderBlock()
	if !done {
		return nil
	}
	return st.Enqueue(frh.Body())
}

// copyDataFrame clones a Data frame's bytes into a fresh Data so the
// pooled FrameHeader can be released while the stream's consumer still
// owns the payload.
func copyDataFrame(d *Data) *Data {
	out := AcquireFrame(FrameData).(*Data)
	out.SetEndStream(d.EndStream())
	out.SetData(d.Data())
	return out
}

// serveStream runs the handler for a server-accepted stream, driven
// from a short-lived goroutine per inbound request per SPEC_FULL.md 5.
func (c *Connection) serveStream(st *Stream) {
	defer c.removeStream(st.ID())

	req := AcquireRequest()
	defer ReleaseRequest(req)

	for {
		fr, err := st.Dequeue()
		if err != nil {
			return
		}
		if h, ok := fr.(*Headers); ok {
			block, done := st.RequestHeaderBlock()
			if done {
				if err := req.ApplyHeaderBlock(c.dec, block); err != nil {
					cerr := WrapConnectionError(err, CompressionError, "HPACK decode failed on request header block")
					_ = c.closeConnectionFatal(cerr)
					return
				}
			}
			if h.EndStream() {
				break
			}
			continue
		}
		if d, ok := fr.(*Data); ok {
			req.AppendBody(d.Data())
			ReleaseFrame(d)
			if d.EndStream() {
				break
			}
			continue
		}
	}

	rw := newResponseWriter(c, st)
	c.handler(st, req, rw)
	rw.finish()
}
