package amf

import (
	"reflect"

	"github.com/ssungk/amfcodec/pkg/buf"
)

// This file defines the host-language value variants the codec encodes
// and decodes beyond Go's built-in nil/bool/float64/int32/string/
// []any/map[string]any (spec §3 "Host value universe").

// XMLDocument carries both the legacy AMF0 "XML document" and the AMF3
// "XMLDocument"/"XML" markers: both are specified as opaque strings, so a
// single string-based wrapper models both (spec §3, §4.5, §4.7).
type XMLDocument string

// Hash requests AMF0's ECMAArray encoding (marker 0x08, a u32 property
// count followed by the same key/value body as a plain Object) instead
// of the Object marker a bare map[string]any gets (spec §4.5, §4.6 step
// 2's three-way Typed Object / Hash / Object dispatch). Decoding an
// ECMAArray produces a Hash so a decode->encode cycle reproduces the
// same marker.
type Hash map[string]any

// ByteArray is the AMF3-only opaque byte buffer (spec §3). It is backed
// by a pooled buf.Buffer so that decoding a wire ByteArray reuses memory
// instead of allocating fresh per message — see pkg/buf.
type ByteArray struct {
	buf *buf.Buffer
}

// NewByteArray wraps data (copied) in a GC-managed ByteArray.
func NewByteArray(data []byte) *ByteArray {
	b := make([]byte, len(data))
	copy(b, data)
	return &ByteArray{buf: buf.New(b)}
}

// newByteArrayFromPool takes ownership of a pooled buffer (used by the
// AMF3 reader when decoding off the wire).
func newByteArrayFromPool(b *buf.Buffer) *ByteArray {
	return &ByteArray{buf: b}
}

// Bytes returns the buffer's contents. The slice is only valid until
// Release is called.
func (b *ByteArray) Bytes() []byte { return b.buf.Data() }

// Len returns the number of bytes.
func (b *ByteArray) Len() int { return b.buf.Len() }

// Release returns the underlying pooled memory. Safe to call multiple
// times only if Retain was called a matching number of times first.
func (b *ByteArray) Release() { b.buf.Release() }

// Retain increments the underlying pool reference count, for callers
// that want to hold onto a ByteArray past the decode call that produced
// it while another goroutine also holds a reference.
func (b *ByteArray) Retain() { b.buf.Retain() }

// DictEntry is one key/value pair of an AMF3 Dictionary.
type DictEntry struct {
	Key   any
	Value any
}

// Dictionary is the AMF3 "mapping with arbitrary-typed keys" value (spec
// §3). Go maps require comparable keys, but AMF3 dictionary keys may be
// composite (arrays, objects), so entries are kept as an ordered slice
// instead of a map[any]any.
type Dictionary struct {
	// WeakKeys preserves the wire's weak-keys flag; the codec reads and
	// writes it verbatim without interpreting it further (spec §9, open
	// question 2 — Go has no weak-reference semantics to map it to).
	WeakKeys bool
	Entries  []DictEntry
}

// NewDictionary returns an empty, strong-keyed Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{}
}

// Get returns the value for key, compared with reflect.DeepEqual, and
// whether it was found. Provided for convenience; the codec itself never
// calls this (encode/decode just walk Entries in order).
func (d *Dictionary) Get(key any) (any, bool) {
	for _, e := range d.Entries {
		if reflect.DeepEqual(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Set appends or replaces the entry for key.
func (d *Dictionary) Set(key, value any) {
	for i, e := range d.Entries {
		if reflect.DeepEqual(e.Key, key) {
			d.Entries[i].Value = value
			return
		}
	}
	d.Entries = append(d.Entries, DictEntry{Key: key, Value: value})
}
