package hpack

// HeaderField is the name/value pair the codec encodes and decodes.
// Sensible headers are only ever written as literal-never-indexed and
// the codec never stores them in the dynamic table, per RFC7541 7.1.3.
type HeaderField struct {
	Name, Value string
	Sensible    bool
}

// DefaultTableSize is the initial HEADER_TABLE_SIZE both sides assume
// before a SETTINGS exchange changes it.
const DefaultTableSize = 4096

// Decoder maintains one side's dynamic table and turns an HPACK header
// block into a list of HeaderFields, applying the reference-set
// semantics satori.hpack.HTTP2Codec.decode_headers implements: an
// indexed representation toggles an entry's membership in the working
// set instead of unconditionally emitting it, and index 0 clears the
// whole reference set.
type Decoder struct {
	table *table
}

// NewDecoder returns a Decoder with an empty dynamic table bounded by
// maxSize (the HEADER_TABLE_SIZE this side advertised).
func NewDecoder(maxSize int) *Decoder {
	return &Decoder{table: newTable(maxSize)}
}

// SetMaxSize applies a local HEADER_TABLE_SIZE change.
func (d *Decoder) SetMaxSize(n int) { d.table.setMaxSize(n) }

// DecodeFull decodes a complete header block (HEADERS + any
// CONTINUATION fragments already concatenated) into the field list the
// peer intended, including whatever remains referenced from earlier
// blocks but wasn't re-mentioned in this one.
func (d *Decoder) DecodeFull(block []byte) ([]HeaderField, error) {
	var out []HeaderField

	d.table.resetEmitted()

	b := block
	for len(b) > 0 {
		fields, rest, err := d.decodeOne(b)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
		b = rest
	}

	for _, e := range d.table.entries {
		if e.referenced && !e.emitted {
			out = append(out, HeaderField{Name: e.name, Value: e.value})
		}
	}

	return out, nil
}

func (d *Decoder) decodeOne(b []byte) ([]HeaderField, []byte, error) {
	c := b[0]

	switch {
	case c&0x80 != 0: // indexed header field
		index, rest, err := readInt(7, b)
		if err != nil {
			return nil, rest, err
		}
		if index == 0 {
			d.table.clearReferences()
			return nil, rest, nil
		}

		e, isStatic, ok := d.table.at(int(index))
		if !ok {
			return nil, rest, errIndexOutOfRange
		}
		if isStatic {
			// Static entries have no persistent referenced/emitted
			// state; an indexed reference to one always emits it.
			return []HeaderField{{Name: e.name, Value: e.value}}, rest, nil
		}

		if e.referenced {
			e.referenced = false
			e.emitted = false
			return nil, rest, nil
		}
		e.referenced = true
		e.emitted = true
		return []HeaderField{{Name: e.name, Value: e.value}}, rest, nil

	case c&0xc0 == 0x40: // literal with incremental indexing
		return d.decodeLiteral(b, 6, true)

	case c&0xf0 == 0x00: // literal without indexing
		return d.decodeLiteral(b, 4, false)

	case c&0xf0 == 0x10: // literal never indexed
		return d.decodeLiteral(b, 4, false)

	case c&0xe0 == 0x20: // dynamic table size update
		n, rest, err := readInt(5, b)
		if err != nil {
			return nil, rest, err
		}
		d.table.setMaxSize(int(n))
		return nil, rest, nil
	}

	return nil, b[1:], errInvalidRepresentation
}

func (d *Decoder) decodeLiteral(b []byte, prefixBits uint, indexed bool) ([]HeaderField, []byte, error) {
	nameIndex, rest, err := readInt(prefixBits, b)
	if err != nil {
		return nil, rest, err
	}

	var name string
	if nameIndex == 0 {
		name, rest, err = readString(rest)
		if err != nil {
			return nil, rest, err
		}
	} else {
		e, _, ok := d.table.at(int(nameIndex))
		if !ok {
			return nil, rest, errIndexOutOfRange
		}
		name = e.name
	}

	value, rest, err := readString(rest)
	if err != nil {
		return nil, rest, err
	}

	if indexed {
		d.table.prepend(&entry{name: name, value: value, referenced: true, emitted: true})
	}

	return []HeaderField{{Name: name, Value: value}}, rest, nil
}

// Encoder maintains the encoder-side dynamic table and produces an
// HPACK block from a list of HeaderFields, grounded on
// satori.hpack.HTTP2Codec.encode_headers: diff against the previous
// reference set, emit deletions for entries no longer present, encode
// the rest, then re-encode any referenced header an intervening
// eviction knocked out of the table.
type Encoder struct {
	table *table
}

// NewEncoder returns an Encoder with an empty dynamic table bounded by
// maxSize (the peer's advertised HEADER_TABLE_SIZE).
func NewEncoder(maxSize int) *Encoder {
	return &Encoder{table: newTable(maxSize)}
}

// SetMaxSize applies a peer HEADER_TABLE_SIZE change, shrinking (and
// evicting from) the encoder table to match.
func (e *Encoder) SetMaxSize(n int) { e.table.setMaxSize(n) }

// EncodeFull appends the HPACK encoding of fields to dst and returns
// the extended slice.
func (e *Encoder) EncodeFull(dst []byte, fields []HeaderField) []byte {
	removed, referenced, remaining := e.computeDiff(fields)

	for _, idx := range removed {
		dst = writeIntPrefixed(dst, 0x80, 7, uint64(idx))
		e.table.entries[idx-1].referenced = false
		e.table.entries[idx-1].emitted = false
	}

	for _, hf := range remaining {
		dst = e.encodeOne(dst, hf)
	}

	for attempted := true; attempted && len(referenced) > 0; {
		attempted = false
		var still []HeaderField
		for _, hf := range referenced {
			if e.table.findIndexed(hf.Name, hf.Value) == -1 {
				dst = e.encodeOne(dst, hf)
				attempted = true
			} else {
				still = append(still, hf)
			}
		}
		referenced = still
	}

	return dst
}

// computeDiff mirrors satori.hpack.HTTP2Codec.compute_diff: classify
// each requested field as already-referenced (kept), not-yet-indexed
// (remaining to encode), and collect dynamic entries that were
// referenced from the previous block but are absent from this one
// (to be explicitly removed).
func (e *Encoder) computeDiff(fields []HeaderField) (removed []int, referenced, remaining []HeaderField) {
	for _, ent := range e.table.entries {
		ent.emitted = false
	}

	for _, hf := range fields {
		idx := e.table.findIndexed(hf.Name, hf.Value)
		if idx == -1 || idx > len(e.table.entries) {
			remaining = append(remaining, hf)
			continue
		}
		ent := e.table.entries[idx-1]
		if ent.referenced {
			ent.emitted = true
			referenced = append(referenced, hf)
		} else {
			remaining = append(remaining, hf)
		}
	}

	for i, ent := range e.table.entries {
		if ent.referenced && !ent.emitted {
			removed = append(removed, i+1)
		}
	}

	return removed, referenced, remaining
}

func (e *Encoder) encodeOne(dst []byte, hf HeaderField) []byte {
	if idx := e.table.findIndexed(hf.Name, hf.Value); idx != -1 {
		if idx <= len(e.table.entries) {
			ent := e.table.entries[idx-1]
			if !ent.referenced {
				dst = writeIntPrefixed(dst, 0x80, 7, uint64(idx))
			}
			ent.referenced = true
			ent.emitted = true
			return dst
		}
		// Static-table hit: always emitted as a plain indexed field,
		// it carries no table state of its own.
		return writeIntPrefixed(dst, 0x80, 7, uint64(idx))
	}

	// satori.hpack.determine_representation: :path is never indexed
	// regardless of table space, since request paths vary too widely
	// per-request to be worth the table slot.
	if hf.Sensible || hf.Name == ":path" {
		nameIdx := e.table.findName(hf.Name)
		if nameIdx != -1 {
			dst = writeIntPrefixed(dst, 0x10, 4, uint64(nameIdx))
		} else {
			dst = writeIntPrefixed(dst, 0x10, 4, 0)
			dst = writeString(dst, hf.Name)
		}
		return writeString(dst, hf.Value)
	}

	nameIdx := e.table.findName(hf.Name)
	if nameIdx != -1 {
		dst = writeIntPrefixed(dst, 0x40, 6, uint64(nameIdx))
	} else {
		dst = writeIntPrefixed(dst, 0x40, 6, 0)
		dst = writeString(dst, hf.Name)
	}
	dst = writeString(dst, hf.Value)

	e.table.prepend(&entry{name: hf.Name, value: hf.Value, referenced: true, emitted: true})

	return dst
}
