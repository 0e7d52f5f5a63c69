package h2

import (
	"sync"

	"github.com/valyala/bytebufferpool"
)

var requestPool = sync.Pool{
	New: func() interface{} { return new(Request) },
}

// Request is a decoded HTTP/2 request: the pseudo-headers plus regular
// fields HPACK produced, and the body accumulated from DATA frames.
//
// Grounded on the teacher's Request/RequestHeader pair, adapted to the
// new HeaderField/Decoder types and the spec's flat header-list model
// (no hpack.Next streaming parse; DecodeFull hands back the whole
// list at once since the reference-set model can still be emitting
// carried-over entries after the last explicit byte is consumed).
type Request struct {
	method    []byte
	path      []byte
	scheme    []byte
	authority []byte

	headers []*HeaderField

	body bytebufferpool.ByteBuffer
}

// AcquireRequest gets a Request from the pool.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest releases req's fields and returns it to the pool.
func ReleaseRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}

func (req *Request) Reset() {
	for _, hf := range req.headers {
		ReleaseHeaderField(hf)
	}
	req.headers = req.headers[:0]
	req.method = req.method[:0]
	req.path = req.path[:0]
	req.scheme = req.scheme[:0]
	req.authority = req.authority[:0]
	req.body.Reset()
}

func (req *Request) Method() []byte    { return req.method }
func (req *Request) Path() []byte      { return req.path }
func (req *Request) Scheme() []byte    { return req.scheme }
func (req *Request) Authority() []byte { return req.authority }
func (req *Request) Body() []byte      { return req.body.Bytes() }

func (req *Request) SetMethod(b []byte)    { req.method = append(req.method[:0], b...) }
func (req *Request) SetPath(b []byte)      { req.path = append(req.path[:0], b...) }
func (req *Request) SetScheme(b []byte)    { req.scheme = append(req.scheme[:0], b...) }
func (req *Request) SetAuthority(b []byte) { req.authority = append(req.authority[:0], b...) }

// AppendBody appends to the request body, as DATA frames arrive.
func (req *Request) AppendBody(b []byte) { req.body.Write(b) }

// Header returns the non-pseudo header fields, in wire order.
func (req *Request) Header() []*HeaderField { return req.headers }

// Get returns the first non-pseudo field matching key, case-sensitively
// (the wire form is already lowercased per RFC7540 8.1.2).
func (req *Request) Get(key string) *HeaderField {
	for _, hf := range req.headers {
		if hf.Key() == key {
			return hf
		}
	}
	return nil
}

// ApplyHeaderBlock decodes block and splits the result between the
// request's pseudo-header fields and its regular header list.
func (req *Request) ApplyHeaderBlock(dec *Decoder, block []byte) error {
	fields, err := dec.DecodeFull(block)
	if err != nil {
		return err
	}

	for _, hf := range fields {
		if hf.IsPseudo() {
			switch hf.Key() {
			case ":method":
				req.SetMethod(hf.ValueBytes())
			case ":path":
				req.SetPath(hf.ValueBytes())
			case ":scheme":
				req.SetScheme(hf.ValueBytes())
			case ":authority":
				req.SetAuthority(hf.ValueBytes())
			}
			ReleaseHeaderField(hf)
			continue
		}
		req.headers = append(req.headers, hf)
	}

	return nil
}
