package h2

import (
	"sync"

	"github.com/pkg/errors"
)

// StreamState is one node of the HTTP/2 stream lifecycle.
//
// https://tools.ietf.org/html/rfc7540#section-5.1
type StreamState int8

const (
	StreamStateIdle StreamState = iota
	StreamStateReservedLocal
	StreamStateReservedRemote
	StreamStateOpen
	StreamStateHalfClosedLocal
	StreamStateHalfClosedRemote
	StreamStateClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamStateIdle:
		return "idle"
	case StreamStateReservedLocal:
		return "reserved_local"
	case StreamStateReservedRemote:
		return "reserved_remote"
	case StreamStateOpen:
		return "open"
	case StreamStateHalfClosedLocal:
		return "half_closed_local"
	case StreamStateHalfClosedRemote:
		return "half_closed_remote"
	case StreamStateClosed:
		return "closed"
	}

	return "unknown"
}

// headerBlock accumulates HEADERS/PUSH_PROMISE + CONTINUATION fragments
// until END_HEADERS closes the block.
type headerBlock struct {
	raw  []byte
	done bool
}

func (hb *headerBlock) reset() {
	hb.raw = hb.raw[:0]
	hb.done = false
}

func (hb *headerBlock) append(b []byte, end bool) {
	hb.raw = append(hb.raw, b...)
	hb.done = end
}

// Stream is one HTTP/2 stream: its state machine, its inbound frame queue,
// its accumulated header blocks and its outbound flow-control window.
//
// Grounded on the teacher's flat id/window/state/data tuple in the
// pre-rewrite stream.go, generalized to the full seven-state machine and
// enriched with the inbound queue / header accumulation / promise-future
// bookkeeping satori.protocol.py's Stream class performs.
type Stream struct {
	mu sync.Mutex

	id    uint32
	state StreamState

	weight    uint8
	depStream uint32

	// outboundWindow is this stream's share of the peer's flow-control
	// budget; the connection writer's writeDataFrame waits until it
	// covers the next DATA chunk.
	outboundWindow int64
	windowSignal   chan struct{}

	// inboundWindow is not read or updated anywhere in this package;
	// received DATA is not re-credited with an outgoing WINDOW_UPDATE.
	inboundWindow int64

	reqHeaders headerBlock
	respHeaders headerBlock

	inbound chan Frame

	resetErr error
	closed   chan struct{}
	once     sync.Once

	// promise, if non-nil, is the channel NewPromiseFuture created;
	// AwaitPromise receives the reserved stream from it.
	promise chan *Stream
}

// NewStream allocates a Stream in StreamStateIdle with the given initial
// outbound window, per the connection engine's live-settings-at-creation
// rule described in SPEC_FULL.md 4.4.
func NewStream(id uint32, initialWindow uint32) *Stream {
	return &Stream{
		id:             id,
		state:          StreamStateIdle,
		weight:         16,
		outboundWindow: int64(initialWindow),
		windowSignal:   make(chan struct{}, 1),
		inbound:        make(chan Frame, 16),
		closed:         make(chan struct{}),
	}
}

func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) setState(state StreamState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// ErrStreamReset is returned from blocked stream operations once the
// stream transitions to Closed via RST_STREAM or GOAWAY severance.
var ErrStreamReset = errors.New("h2: stream reset")

// Reset transitions the stream to Closed and wakes any operation blocked
// on its window signal or inbound queue.
func (s *Stream) Reset(err error) {
	s.mu.Lock()
	s.state = StreamStateClosed
	if s.resetErr == nil {
		if err == nil {
			err = ErrStreamReset
		}
		s.resetErr = err
	}
	s.mu.Unlock()

	s.once.Do(func() { close(s.closed) })
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetErr
}

// Done reports a channel closed once the stream has been reset.
func (s *Stream) Done() <-chan struct{} { return s.closed }

// TransitionSendHeaders applies the IDLE/RESERVED_LOCAL -> * transition a
// locally-sent HEADERS frame causes.
func (s *Stream) TransitionSendHeaders(endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StreamStateIdle:
		if endStream {
			s.state = StreamStateHalfClosedLocal
		} else {
			s.state = StreamStateOpen
		}
	case StreamStateReservedLocal:
		s.state = StreamStateHalfClosedRemote
	case StreamStateOpen:
		if endStream {
			s.state = StreamStateHalfClosedLocal
		}
	default:
		return NewStreamError(s.id, ProtocolError, "HEADERS sent in illegal state "+s.state.String())
	}

	return nil
}

// TransitionRecvHeaders applies the symmetric transition for a received
// HEADERS frame.
func (s *Stream) TransitionRecvHeaders(endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StreamStateIdle:
		if endStream {
			s.state = StreamStateHalfClosedRemote
		} else {
			s.state = StreamStateOpen
		}
	case StreamStateReservedRemote:
		s.state = StreamStateHalfClosedLocal
	case StreamStateOpen:
		if endStream {
			s.state = StreamStateHalfClosedRemote
		}
	case StreamStateHalfClosedLocal:
		if endStream {
			s.state = StreamStateClosed
		}
	default:
		return NewStreamError(s.id, ProtocolError, "HEADERS received in illegal state "+s.state.String())
	}

	return nil
}

// TransitionSendData applies the OPEN/HALF_CLOSED_REMOTE -> * transition
// a locally-sent DATA frame with END_STREAM causes; a non-final DATA
// frame leaves the state unchanged.
func (s *Stream) TransitionSendData(endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StreamStateOpen:
		if endStream {
			s.state = StreamStateHalfClosedLocal
		}
	case StreamStateHalfClosedRemote:
		if endStream {
			s.state = StreamStateClosed
		}
	case StreamStateIdle, StreamStateReservedLocal, StreamStateReservedRemote, StreamStateHalfClosedLocal, StreamStateClosed:
		return NewStreamError(s.id, ProtocolError, "DATA sent in illegal state "+s.state.String())
	}

	return nil
}

// TransitionRecvData is the symmetric transition for received DATA.
func (s *Stream) TransitionRecvData(endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StreamStateOpen:
		if endStream {
			s.state = StreamStateHalfClosedRemote
		}
	case StreamStateHalfClosedLocal:
		if endStream {
			s.state = StreamStateClosed
		}
	case StreamStateIdle, StreamStateReservedLocal, StreamStateReservedRemote, StreamStateHalfClosedRemote, StreamStateClosed:
		return NewStreamError(s.id, ProtocolError, "DATA received in illegal state "+s.state.String())
	}

	return nil
}

// ReserveLocal marks this stream RESERVED_LOCAL: a PUSH_PROMISE naming it
// is about to be sent.
func (s *Stream) ReserveLocal() { s.setState(StreamStateReservedLocal) }

// ReserveRemote marks this stream RESERVED_REMOTE: a PUSH_PROMISE naming
// it was just received.
func (s *Stream) ReserveRemote() { s.setState(StreamStateReservedRemote) }

// SetPriority records a PRIORITY frame's dependency and weight.
func (s *Stream) SetPriority(depStream uint32, weight uint8) {
	s.mu.Lock()
	s.depStream = depStream
	s.weight = weight
	s.mu.Unlock()
}

func (s *Stream) Priority() (depStream uint32, weight uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depStream, s.weight
}

// GrowOutboundWindow applies a WINDOW_UPDATE increment and signals the
// stream's window channel, waking the connection writer if it is waiting
// for this stream's window in writeDataFrame.
func (s *Stream) GrowOutboundWindow(n uint32) {
	s.mu.Lock()
	s.outboundWindow += int64(n)
	s.mu.Unlock()

	select {
	case s.windowSignal <- struct{}{}:
	default:
	}
}

// AddOutboundWindowDelta applies the delta a peer SETTINGS
// INITIAL_WINDOW_SIZE change contributes to every already-open stream.
func (s *Stream) AddOutboundWindowDelta(delta int64) {
	s.mu.Lock()
	s.outboundWindow += delta
	s.mu.Unlock()

	select {
	case s.windowSignal <- struct{}{}:
	default:
	}
}

// TakeOutboundWindow reserves n bytes of outbound window if available.
func (s *Stream) TakeOutboundWindow(n int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outboundWindow < n {
		return false
	}
	s.outboundWindow -= n
	return true
}

func (s *Stream) OutboundWindow() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outboundWindow
}

// Enqueue delivers a demultiplexed frame to this stream's consumer.
func (s *Stream) Enqueue(fr Frame) error {
	select {
	case s.inbound <- fr:
		return nil
	case <-s.closed:
		return s.Err()
	}
}

// Dequeue blocks until a frame is available or the stream is reset.
func (s *Stream) Dequeue() (Frame, error) {
	select {
	case fr := <-s.inbound:
		return fr, nil
	case <-s.closed:
		return nil, s.Err()
	}
}

// AppendRequestHeaderFragment accumulates a HEADERS/CONTINUATION
// fragment on the request side (server-received, or client-sent for
// symmetry with push responses).
func (s *Stream) AppendRequestHeaderFragment(b []byte, endHeaders bool) {
	s.mu.Lock()
	s.reqHeaders.append(b, endHeaders)
	s.mu.Unlock()
}

func (s *Stream) RequestHeaderBlock() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqHeaders.raw, s.reqHeaders.done
}

func (s *Stream) ResetRequestHeaderBlock() {
	s.mu.Lock()
	s.reqHeaders.reset()
	s.mu.Unlock()
}

func (s *Stream) AppendResponseHeaderFragment(b []byte, endHeaders bool) {
	s.mu.Lock()
	s.respHeaders.append(b, endHeaders)
	s.mu.Unlock()
}

func (s *Stream) ResponseHeaderBlock() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.respHeaders.raw, s.respHeaders.done
}

func (s *Stream) ResetResponseHeaderBlock() {
	s.mu.Lock()
	s.respHeaders.reset()
	s.mu.Unlock()
}

// AwaitPromise blocks until a stream is sent on the channel
// NewPromiseFuture created, or this stream is reset.
func (s *Stream) AwaitPromise() (*Stream, error) {
	s.mu.Lock()
	ch := s.promise
	s.mu.Unlock()
	if ch == nil {
		return nil, errors.New("h2: stream has no pending promise")
	}

	select {
	case st := <-ch:
		return st, nil
	case <-s.closed:
		return nil, s.Err()
	}
}

// NewPromiseFuture allocates the channel AwaitPromise waits on. The
// connection writer does not send on it when it writes a PUSH_PROMISE;
// ResponseWriter.Push returns the reserved stream directly instead.
func (s *Stream) NewPromiseFuture() chan *Stream {
	ch := make(chan *Stream, 1)
	s.mu.Lock()
	s.promise = ch
	s.mu.Unlock()
	return ch
}
