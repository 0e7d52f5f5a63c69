package h2

import (
	"github.com/catatsuy/h2/hpack"
	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"
)

// Encoder wraps the hpack package's reference-set codec with the
// pooled HeaderField type the frame layer uses, so callers building a
// Headers/PushPromise frame never touch hpack.HeaderField directly.
type Encoder struct {
	enc *hpack.Encoder
}

// NewEncoder returns an Encoder bounded by maxSize, the peer's
// advertised HEADER_TABLE_SIZE.
func NewEncoder(maxSize int) *Encoder {
	return &Encoder{enc: hpack.NewEncoder(maxSize)}
}

// SetMaxSize applies a peer HEADER_TABLE_SIZE change.
func (e *Encoder) SetMaxSize(n int) { e.enc.SetMaxSize(n) }

// Append encodes hf and appends it to dst.
func (e *Encoder) Append(dst []byte, hf HeaderField) []byte {
	return e.enc.EncodeFull(dst, []hpack.HeaderField{{
		Name:     hf.Key(),
		Value:    hf.Value(),
		Sensible: hf.IsSensible(),
	}})
}

// AppendAll encodes every field in fields as one diff against the
// previous reference set, per SPEC_FULL.md 4.2 this must be done as a
// single batch rather than field-by-field so compute_diff sees the
// whole outgoing header set at once.
//
// Names and values are checked with httpguts.ValidHeaderFieldName/Value
// first: a field that can't survive the wire shouldn't reach the
// dynamic table at all, let alone get indexed into it for later reuse.
func (e *Encoder) AppendAll(dst []byte, fields []*HeaderField) ([]byte, error) {
	hfs := make([]hpack.HeaderField, len(fields))
	for i, hf := range fields {
		name, value := hf.Key(), hf.Value()
		if !hf.IsPseudo() && !httpguts.ValidHeaderFieldName(name) {
			return nil, errors.Errorf("h2: invalid header field name %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, errors.Errorf("h2: invalid header field value for %q", name)
		}
		hfs[i] = hpack.HeaderField{Name: name, Value: value, Sensible: hf.IsSensible()}
	}
	return e.enc.EncodeFull(dst, hfs), nil
}

// Decoder wraps the hpack package's reference-set decoder.
type Decoder struct {
	dec *hpack.Decoder
}

// NewDecoder returns a Decoder bounded by maxSize, this side's
// advertised HEADER_TABLE_SIZE.
func NewDecoder(maxSize int) *Decoder {
	return &Decoder{dec: hpack.NewDecoder(maxSize)}
}

// SetMaxSize applies a local HEADER_TABLE_SIZE change.
func (d *Decoder) SetMaxSize(n int) { d.dec.SetMaxSize(n) }

// DecodeFull decodes a complete header block into pooled HeaderFields;
// the caller owns releasing them via ReleaseHeaderField.
func (d *Decoder) DecodeFull(block []byte) ([]*HeaderField, error) {
	fields, err := d.dec.DecodeFull(block)
	if err != nil {
		return nil, err
	}

	out := make([]*HeaderField, len(fields))
	for i, f := range fields {
		hf := AcquireHeaderField()
		hf.SetKey(f.Name)
		hf.SetValue(f.Value)
		out[i] = hf
	}
	return out, nil
}
