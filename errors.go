package h2

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode is the wire representation of an HTTP/2 error, carried in
// RST_STREAM and GOAWAY frames.
//
// These are bitmask-flavored values, not a sequential enumeration: a future
// extension can OR two of them together in a diagnostic without colliding
// with a third. See https://httpwg.org/specs/rfc7540.html#ErrorCodes.
type ErrorCode uint32

const (
	NoError            ErrorCode = 0x0
	ProtocolError      ErrorCode = 0x1
	InternalError      ErrorCode = 0x2
	FlowControlError   ErrorCode = 0x4
	SettingsTimeout    ErrorCode = 0x8
	StreamClosedError  ErrorCode = 0x10
	FrameSizeError     ErrorCode = 0x20
	RefusedStream      ErrorCode = 0x40
	CancelError        ErrorCode = 0x80
	CompressionError   ErrorCode = 0x100
	ConnectError       ErrorCode = 0x200
	EnhanceYourCalm    ErrorCode = 0x400
	InadequateSecurity ErrorCode = 0x800
)

var errCodeNames = map[ErrorCode]string{
	NoError:            "NO_ERROR",
	ProtocolError:      "PROTOCOL_ERROR",
	InternalError:      "INTERNAL_ERROR",
	FlowControlError:   "FLOW_CONTROL_ERROR",
	SettingsTimeout:    "SETTINGS_TIMEOUT",
	StreamClosedError:  "STREAM_CLOSED",
	FrameSizeError:     "FRAME_SIZE_ERROR",
	RefusedStream:      "REFUSED_STREAM",
	CancelError:        "CANCEL",
	CompressionError:   "COMPRESSION_ERROR",
	ConnectError:       "CONNECT_ERROR",
	EnhanceYourCalm:    "ENHANCE_YOUR_CALM",
	InadequateSecurity: "INADEQUATE_SECURITY",
}

func (c ErrorCode) String() string {
	if name, ok := errCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(0x%x)", uint32(c))
}

// ConnectionError is fatal to the whole connection: the engine answers it
// with a GOAWAY carrying Code and the last processed stream id, flushes the
// writer, and closes.
type ConnectionError struct {
	Code    ErrorCode
	Message string
	cause   error
}

func NewConnectionError(code ErrorCode, message string) *ConnectionError {
	return &ConnectionError{Code: code, Message: message}
}

// WrapConnectionError attaches code to a lower-level cause (e.g. a
// transport read error), keeping the cause's stack via pkg/errors.
func WrapConnectionError(cause error, code ErrorCode, message string) *ConnectionError {
	return &ConnectionError{Code: code, Message: message, cause: errors.WithStack(cause)}
}

func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("http2: connection error %s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("http2: connection error %s: %s", e.Code, e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.cause }

// StreamError is fatal to a single stream: the engine answers it with
// RST_STREAM carrying Code, transitions the stream to CLOSED, and resolves
// outstanding futures on that stream with this error. Other streams on the
// connection are unaffected.
type StreamError struct {
	StreamID uint32
	Code     ErrorCode
	Message  string
	cause    error
}

func NewStreamError(streamID uint32, code ErrorCode, message string) *StreamError {
	return &StreamError{StreamID: streamID, Code: code, Message: message}
}

func WrapStreamError(cause error, streamID uint32, code ErrorCode, message string) *StreamError {
	return &StreamError{StreamID: streamID, Code: code, Message: message, cause: errors.WithStack(cause)}
}

func (e *StreamError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("http2: stream %d error %s: %s: %v", e.StreamID, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("http2: stream %d error %s: %s", e.StreamID, e.Code, e.Message)
}

func (e *StreamError) Unwrap() error { return e.cause }

// ErrConnectionClosed is returned by pending operations once the
// connection has shut down and no ConnectionError/StreamError applies
// (graceful close).
var ErrConnectionClosed = errors.New("http2: connection closed")

// sentinel parse-time errors, classified into Connection/StreamError by the
// reader before being handed to callers.
var (
	ErrBadPreface       = errors.New("http2: bad connection preface")
	ErrUnknownFrameType = errors.New("http2: unknown frame type")
	ErrFrameTooLarge    = errors.New("http2: frame payload exceeds negotiated maximum size")
)
