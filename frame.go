package h2

import "sync"

// Frame is implemented by every concrete frame payload type (Data,
// Headers, Priority, ...). A single tagged dispatch over Type() replaces a
// virtual hierarchy: every switch over frame types is exhaustive and
// checked by the compiler.
type Frame interface {
	Type() FrameType
	Reset()

	// Deserialize populates the frame from an already-parsed FrameHeader's
	// raw payload bytes (fr.payload) and flags.
	Deserialize(fr *FrameHeader) error

	// Serialize renders the frame's fields into fr, setting fr's flags and
	// payload so FrameHeader.WriteTo can flush header+payload.
	Serialize(fr *FrameHeader)
}

// FrameWithHeaders is implemented by the three frame types that carry an
// HPACK header-block fragment: Headers, PushPromise, Continuation.
type FrameWithHeaders interface {
	Frame
	Headers() []byte
}

var framePools = map[FrameType]*sync.Pool{
	FrameData:         {New: func() interface{} { return &Data{} }},
	FrameHeaders:      {New: func() interface{} { return &Headers{} }},
	FramePriority:     {New: func() interface{} { return &Priority{} }},
	FrameRstStream:    {New: func() interface{} { return &RstStream{} }},
	FrameSettings:     {New: func() interface{} { return &Settings{} }},
	FramePushPromise:  {New: func() interface{} { return &PushPromise{} }},
	FramePing:         {New: func() interface{} { return &Ping{} }},
	FrameGoAway:       {New: func() interface{} { return &GoAway{} }},
	FrameWindowUpdate: {New: func() interface{} { return &WindowUpdate{} }},
	FrameContinuation: {New: func() interface{} { return &Continuation{} }},
}

// AcquireFrame returns a pooled, reset Frame value for t, or nil if t is
// not one of the nine known frame types.
func AcquireFrame(t FrameType) Frame {
	pool, ok := framePools[t]
	if !ok {
		return nil
	}
	fr := pool.Get().(Frame)
	fr.Reset()
	return fr
}

// ReleaseFrame returns fr to its type's pool.
func ReleaseFrame(fr Frame) {
	pool, ok := framePools[fr.Type()]
	if !ok {
		return
	}
	pool.Put(fr)
}
