// Package hpack implements the header-compression codec described in
// SPEC_FULL.md 4.2: a reference-set dynamic table (the pre-final HPACK
// draft satori.hpack implements), not RFC7541's final eviction-only
// table. Integer/string primitives follow RFC7541 4/5; Huffman coding
// is delegated to golang.org/x/net/http2/hpack, already part of the
// dependency graph, rather than hand-rolling the canonical code table.
package hpack

// StaticEntry is one of the 61 predefined name/value pairs every HPACK
// codec ships with.
//
// https://tools.ietf.org/html/rfc7541#appendix-A
type StaticEntry struct {
	Name, Value string
}

var staticTable = [...]StaticEntry{
	{":authority", ""},
	{":method", "GET"},
	{":method", "POST"},
	{":path", "/"},
	{":path", "/index.html"},
	{":scheme", "http"},
	{":scheme", "https"},
	{":status", "200"},
	{":status", "204"},
	{":status", "206"},
	{":status", "304"},
	{":status", "400"},
	{":status", "404"},
	{":status", "500"},
	{"accept-charset", ""},
	{"accept-encoding", "gzip, deflate"},
	{"accept-language", ""},
	{"accept-ranges", ""},
	{"accept", ""},
	{"access-control-allow-origin", ""},
	{"age", ""},
	{"allow", ""},
	{"authorization", ""},
	{"cache-control", ""},
	{"content-disposition", ""},
	{"content-encoding", ""},
	{"content-language", ""},
	{"content-length", ""},
	{"content-location", ""},
	{"content-range", ""},
	{"content-type", ""},
	{"cookie", ""},
	{"date", ""},
	{"etag", ""},
	{"expect", ""},
	{"expires", ""},
	{"from", ""},
	{"host", ""},
	{"if-match", ""},
	{"if-modified-since", ""},
	{"if-none-match", ""},
	{"if-range", ""},
	{"if-unmodified-since", ""},
	{"last-modified", ""},
	{"link", ""},
	{"location", ""},
	{"max-forwards", ""},
	{"proxy-authenticate", ""},
	{"proxy-authorization", ""},
	{"range", ""},
	{"referer", ""},
	{"refresh", ""},
	{"retry-after", ""},
	{"server", ""},
	{"set-cookie", ""},
	{"strict-transport-security", ""},
	{"transfer-encoding", ""},
	{"user-agent", ""},
	{"vary", ""},
	{"via", ""},
	{"www-authenticate", ""},
}

// staticIndex speeds up find-by-name-and-value with an xxhash-keyed
// lookup per SPEC_FULL.md 4.2, falling back to a linear scan to resolve
// collisions and to support find-by-name-only.
var staticIndex = buildStaticIndex()

func buildStaticIndex() map[uint64][]int {
	m := make(map[uint64][]int, len(staticTable))
	for i, e := range staticTable {
		h := hashHeader(e.Name, e.Value)
		m[h] = append(m[h], i)
	}
	return m
}

func staticLookup(name, value string) (index int, nameOnly int, found bool) {
	nameOnly = -1
	h := hashHeader(name, value)
	for _, i := range staticIndex[h] {
		e := staticTable[i]
		if e.Name == name && e.Value == value {
			return i + 1, i + 1, true
		}
	}
	for i, e := range staticTable {
		if e.Name == name {
			nameOnly = i + 1
			break
		}
	}
	return 0, nameOnly, false
}
