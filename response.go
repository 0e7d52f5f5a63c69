package h2

import (
	"strconv"
	"sync"

	"github.com/valyala/bytebufferpool"
)

var responsePool = sync.Pool{
	New: func() interface{} { return new(Response) },
}

// Response is an HTTP/2 response: status, regular header fields, and
// a body buffer the caller writes to incrementally.
//
// Grounded on the teacher's Response/ResponseHeader pair, adapted to
// the new HeaderField/Encoder types.
type Response struct {
	statusCode int
	headers    []*HeaderField

	body bytebufferpool.ByteBuffer
}

// AcquireResponse gets a Response from the pool.
func AcquireResponse() *Response {
	return responsePool.Get().(*Response)
}

// ReleaseResponse releases res's fields and returns it to the pool.
func ReleaseResponse(res *Response) {
	res.Reset()
	responsePool.Put(res)
}

func (res *Response) Reset() {
	for _, hf := range res.headers {
		ReleaseHeaderField(hf)
	}
	res.headers = res.headers[:0]
	res.statusCode = 0
	res.body.Reset()
}

func (res *Response) StatusCode() int         { return res.statusCode }
func (res *Response) SetStatusCode(code int)  { res.statusCode = code }
func (res *Response) Body() []byte            { return res.body.Bytes() }
func (res *Response) Header() []*HeaderField  { return res.headers }

func (res *Response) Write(b []byte) (int, error) {
	return res.body.Write(b)
}

// Set appends a regular header field.
func (res *Response) Set(key, value string) {
	hf := AcquireHeaderField()
	hf.Set(key, value)
	res.headers = append(res.headers, hf)
}

func (res *Response) Get(key string) *HeaderField {
	for _, hf := range res.headers {
		if hf.Key() == key {
			return hf
		}
	}
	return nil
}

// ApplyHeaderBlock decodes block and splits the result between the
// response's status and its regular header list.
func (res *Response) ApplyHeaderBlock(dec *Decoder, block []byte) error {
	fields, err := dec.DecodeFull(block)
	if err != nil {
		return err
	}

	for _, hf := range fields {
		if hf.IsPseudo() {
			if hf.Key() == ":status" {
				n, err := strconv.Atoi(hf.Value())
				if err != nil {
					ReleaseHeaderField(hf)
					return err
				}
				res.statusCode = n
			}
			ReleaseHeaderField(hf)
			continue
		}
		res.headers = append(res.headers, hf)
	}

	return nil
}

// EncodeHeaderBlock HPACK-encodes the response's :status pseudo-header
// followed by its regular fields, as a single batch so the encoder's
// reference-set diff sees the whole set at once.
func (res *Response) EncodeHeaderBlock(enc *Encoder) ([]byte, error) {
	status := AcquireHeaderField()
	status.SetKey(":status")
	status.SetValue(strconv.Itoa(res.statusCode))

	all := make([]*HeaderField, 0, len(res.headers)+1)
	all = append(all, status)
	all = append(all, res.headers...)

	dst, err := enc.AppendAll(nil, all)

	ReleaseHeaderField(status)

	return dst, err
}
