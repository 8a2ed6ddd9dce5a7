package amf

import (
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// trait is the AMF3 class descriptor (spec §4.7/§4.8, GLOSSARY "Trait
// descriptor"). Traits are identified by slot position, not by class-name
// string: two independent definitions of the same class get two slots
// (spec invariant #4).
type trait struct {
	Name           string
	Members        []string
	Dynamic        bool
	Externalizable bool
}

// readCache is the decode-side set of per-stream reference tables (spec
// §3 "Reference caches"). Indexing starts at 0; readers address entries
// only by index, never by identity.
type readCache struct {
	objects []any
	strings []string
	traits  []trait
}

func newReadCache() *readCache {
	return &readCache{}
}

func (c *readCache) addObject(v any) int {
	c.objects = append(c.objects, v)
	return len(c.objects) - 1
}

func (c *readCache) object(idx int) (any, error) {
	if idx < 0 || idx >= len(c.objects) {
		return nil, &InvalidReferenceError{Kind: RefObject, Index: idx, CacheSize: len(c.objects)}
	}
	return c.objects[idx], nil
}

// setObject overwrites an already-reserved slot; used by
// amf3Reader.readArray, which reserves the array's slot before reading
// the associative part and fills it once the result (sequence or
// mapping) is known, before the dense elements are decoded.
func (c *readCache) setObject(idx int, v any) {
	c.objects[idx] = v
}

func (c *readCache) addString(s string) int {
	if s == "" {
		return -1 // empty string is never cached (spec invariant #6)
	}
	c.strings = append(c.strings, s)
	return len(c.strings) - 1
}

func (c *readCache) stringAt(idx int) (string, error) {
	if idx < 0 || idx >= len(c.strings) {
		return "", &InvalidReferenceError{Kind: RefString, Index: idx, CacheSize: len(c.strings)}
	}
	return c.strings[idx], nil
}

func (c *readCache) addTrait(t trait) int {
	c.traits = append(c.traits, t)
	return len(c.traits) - 1
}

func (c *readCache) traitAt(idx int) (trait, error) {
	if idx < 0 || idx >= len(c.traits) {
		return trait{}, &InvalidReferenceError{Kind: RefTrait, Index: idx, CacheSize: len(c.traits)}
	}
	return c.traits[idx], nil
}

// writeCache is the encode-side mirror: identity-keyed so that two
// distinct objects equal by value still get distinct cache slots, and
// cycles are detected by identity rather than structural comparison
// (spec §3 invariant #2, §9 "Cyclic graphs").
type writeCache struct {
	objects    map[identity]int
	objectSeq  []any // kept so Nth inserted value can be recovered if ever needed
	strings    map[string]int
	traits     map[string]int // keyed by wire class name; see spec invariant #4 caveat below
	traitSeq   []trait
	fallbackGen int
}

func newWriteCache() *writeCache {
	return &writeCache{
		objects: make(map[identity]int),
		strings: make(map[string]int),
		traits:  make(map[string]int),
	}
}

// identity is the comparable key used to recognize "the same object
// again" on the encode side.
type identity struct {
	ptr uintptr
	// hash/gen distinguish value-typed composites (see identityKey) that
	// have no stable pointer; zero for pointer-identified values.
	hash uint64
	gen  int
}

// identityKey computes a stable identity for composite host values.
// Pointer, map, slice and channel values use their runtime address
// (reflect.Value.Pointer(), a real stable address per the design note in
// spec §9). Value-typed composites (e.g. a time.Time or an XMLDocument)
// have no such address; for those we hash their current byte
// representation and combine it with a monotonically increasing
// generation counter. The counter advances on every call, so each
// occurrence of a value-typed composite gets its own key and its own
// cache slot: such values are never written as back-references, even
// when they are equal (matching Go's usual pass-by-value semantics — see
// SPEC_FULL.md §4.3).
func (c *writeCache) identityKey(v any, contentForHash func() []byte) identity {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.UnsafePointer:
		if !rv.IsNil() {
			return identity{ptr: rv.Pointer()}
		}
	}
	// Value-typed composite: fall back to a content hash plus a fresh
	// generation number, so the key is never repeated and the value is
	// never deduplicated; see DESIGN.md "Reference identity".
	h := xxhash.Sum64(contentForHash())
	c.fallbackGen++
	return identity{hash: h, gen: c.fallbackGen}
}

// lookupObject returns the cache index for key if already present.
func (c *writeCache) lookupObject(key identity) (int, bool) {
	idx, ok := c.objects[key]
	return idx, ok
}

func (c *writeCache) addObject(key identity, v any) int {
	idx := len(c.objectSeq)
	c.objects[key] = idx
	c.objectSeq = append(c.objectSeq, v)
	return idx
}

func (c *writeCache) lookupString(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	idx, ok := c.strings[s]
	return idx, ok
}

func (c *writeCache) addString(s string) int {
	idx := len(c.strings)
	c.strings[s] = idx
	return idx
}

// lookupTrait finds a previously emitted trait slot by wire class name.
// Spec invariant #4 says two *independent definitions* of the same class
// get two slots; here "independent definition" is modeled as "the mapper
// was asked for trait info and returned a different member set" — same
// name + same members + same flags reuses the slot, anything else is
// inserted fresh.
func (c *writeCache) lookupTrait(t trait) (int, bool) {
	idx, ok := c.traits[t.Name]
	if !ok {
		return 0, false
	}
	existing := c.traitSeq[idx]
	if !traitsEqual(existing, t) {
		return 0, false
	}
	return idx, true
}

func (c *writeCache) addTrait(t trait) int {
	idx := len(c.traitSeq)
	c.traitSeq = append(c.traitSeq, t)
	c.traits[t.Name] = idx
	return idx
}

func traitsEqual(a, b trait) bool {
	if a.Name != b.Name || a.Dynamic != b.Dynamic || a.Externalizable != b.Externalizable {
		return false
	}
	if len(a.Members) != len(b.Members) {
		return false
	}
	for i := range a.Members {
		if a.Members[i] != b.Members[i] {
			return false
		}
	}
	return true
}
