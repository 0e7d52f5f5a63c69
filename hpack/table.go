package hpack

// entry is one row of the dynamic table, mirroring
// original_source/satori/hpack.py's HeaderEntry: a header plus the two
// reference-set flags this draft's semantics require. referenced means
// the peer currently has this entry in its working header set;
// emitted guards against re-emitting it twice while diffing against
// the previous header set.
type entry struct {
	name, value string
	size        int
	referenced  bool
	emitted     bool
}

func entrySize(name, value string) int {
	return len(name) + len(value) + 32
}

// table is the reference-set dynamic table shared shape used by both
// Encoder and Decoder, grounded on satori.hpack.HTTP2Codec's
// encoder_table/decoder_table pair (this module keeps one instance
// per side rather than one shared object, since Encoder and Decoder
// are separate Go types).
type table struct {
	entries []*entry // entries[0] is the most recently added
	size    int
	maxSize int
}

func newTable(maxSize int) *table {
	return &table{maxSize: maxSize}
}

// indexSpaceLen is the combined addressable space: dynamic entries
// first (1..len(entries)), then the 61 static entries.
func (t *table) indexSpaceLen() int {
	return len(t.entries) + len(staticTable)
}

// at resolves a 1-based index into the combined dynamic+static index
// space. ok is false for an out-of-range index.
func (t *table) at(index int) (e *entry, isStatic bool, ok bool) {
	if index < 1 {
		return nil, false, false
	}
	if index <= len(t.entries) {
		return t.entries[index-1], false, true
	}
	si := index - len(t.entries) - 1
	if si >= len(staticTable) {
		return nil, false, false
	}
	s := staticTable[si]
	return &entry{name: s.Name, value: s.Value}, true, true
}

// findIndexed returns the 1-based index of an exact name+value match,
// dynamic entries first, falling back to the static table; -1 if not
// found. Grounded on satori's find_header, accelerated with the
// xxhash-backed static.go lookup for the static half.
func (t *table) findIndexed(name, value string) int {
	for i, e := range t.entries {
		if e.name == name && e.value == value {
			return i + 1
		}
	}
	if idx, _, ok := staticLookup(name, value); ok {
		return len(t.entries) + idx
	}
	return -1
}

// findName returns the 1-based index of any entry with a matching
// name (value not required to match), -1 if none.
func (t *table) findName(name string) int {
	for i, e := range t.entries {
		if e.name == name {
			return i + 1
		}
	}
	if _, nameOnly, _ := staticLookup(name, ""); nameOnly != -1 {
		return len(t.entries) + nameOnly
	}
	return -1
}

// prepend inserts e at the front, evicting from the tail until it
// fits within maxSize, per satori's prepend_decoded_header /
// prepend_encoded_header.
func (t *table) prepend(e *entry) {
	e.size = entrySize(e.name, e.value)

	for t.size+e.size > t.maxSize && len(t.entries) > 0 {
		last := len(t.entries) - 1
		evicted := t.entries[last]
		t.entries = t.entries[:last]
		t.size -= evicted.size
	}

	if t.size+e.size <= t.maxSize {
		t.entries = append([]*entry{e}, t.entries...)
		t.size += e.size
	}
}

// setMaxSize applies a HEADER_TABLE_SIZE change, evicting from the
// tail until the table fits the new bound.
func (t *table) setMaxSize(n int) {
	t.maxSize = n
	for t.size > t.maxSize && len(t.entries) > 0 {
		last := len(t.entries) - 1
		evicted := t.entries[last]
		t.entries = t.entries[:last]
		t.size -= evicted.size
	}
}

// clearReferences drops the referenced flag from every entry, the
// effect of the index-0 "empty reference set" signal.
func (t *table) clearReferences() {
	for _, e := range t.entries {
		e.referenced = false
		e.emitted = false
	}
}

func (t *table) resetEmitted() {
	for _, e := range t.entries {
		e.emitted = false
	}
}
