package amf

import (
	"fmt"
	"io"
	"time"

	"github.com/ssungk/amfcodec/pkg/buf"
)

// amf3Reader decodes AMF3 markers into host values (spec §4.7, C7). It
// owns three reference caches (object, string, trait) for the duration
// of one top-level Decode call, or for the remainder of an AMF0 stream
// after the AVM+ switch marker.
type amf3Reader struct {
	cache  *readCache
	mapper ClassMapper
	src    io.Reader
}

func newAMF3Reader(mapper ClassMapper) *amf3Reader {
	return &amf3Reader{cache: newReadCache(), mapper: mapper}
}

func (r *amf3Reader) decodeTop(src io.Reader) (any, error) {
	r.src = src
	return r.readValue(src)
}

// ReadValue satisfies ExternalReader for Externalizable.ReadExternal.
func (r *amf3Reader) ReadValue() (any, error) { return r.readValue(r.src) }

func (r *amf3Reader) readValue(src io.Reader) (any, error) {
	marker, err := readByte(src, "amf3.decode.marker")
	if err != nil {
		return nil, err
	}
	switch marker {
	case amf3Undefined, amf3Null:
		return nil, nil
	case amf3False:
		return false, nil
	case amf3True:
		return true, nil
	case amf3Integer:
		u, err := readU29(src, "amf3.decode.integer")
		if err != nil {
			return nil, err
		}
		return signExtend29(u), nil
	case amf3Double:
		return readDouble(src, "amf3.decode.double") // NaN preserved, see SPEC_FULL.md open question 1
	case amf3String:
		return r.readStringRef(src)
	case amf3XMLDoc, amf3XML:
		s, err := r.readObjectCachedString(src)
		if err != nil {
			return nil, err
		}
		return XMLDocument(s), nil
	case amf3Date:
		return r.readDate(src)
	case amf3Array:
		return r.readArray(src)
	case amf3Object:
		return r.readObject(src)
	case amf3ByteArray:
		return r.readByteArray(src)
	case amf3Dict:
		return r.readDictionary(src)
	default:
		return nil, &InvalidMarkerError{Marker: marker, Version: 3}
	}
}

// readStringRef implements the string-reference scheme (spec §4.7): U29
// header h; h&1==0 is a back-reference into the string cache, otherwise
// h>>1 is the byte length. The empty string bypasses the cache entirely
// (spec invariant #6).
func (r *amf3Reader) readStringRef(src io.Reader) (string, error) {
	h, err := readU29(src, "amf3.decode.string.header")
	if err != nil {
		return "", err
	}
	if h&1 == 0 {
		return r.cache.stringAt(int(h >> 1))
	}
	length := int(h >> 1)
	if length == 0 {
		return "", nil
	}
	s, err := readUTF8(src, length, "amf3.decode.string.bytes")
	if err != nil {
		return "", err
	}
	r.cache.addString(s)
	return s, nil
}

// readObjectCachedString reads an XMLDoc/XML payload, which uses the
// string-style header but is cached in the OBJECT cache, not the string
// cache (spec §4.7 table).
func (r *amf3Reader) readObjectCachedString(src io.Reader) (string, error) {
	h, err := readU29(src, "amf3.decode.xml.header")
	if err != nil {
		return "", err
	}
	if h&1 == 0 {
		v, err := r.cache.object(int(h >> 1))
		if err != nil {
			return "", err
		}
		s, ok := v.(XMLDocument)
		if !ok {
			return "", &InvalidReferenceError{Kind: RefObject, Index: int(h >> 1), CacheSize: len(r.cache.objects)}
		}
		return string(s), nil
	}
	length := int(h >> 1)
	s, err := readUTF8(src, length, "amf3.decode.xml.bytes")
	if err != nil {
		return "", err
	}
	r.cache.addObject(XMLDocument(s))
	return s, nil
}

func (r *amf3Reader) readDate(src io.Reader) (any, error) {
	h, err := readU29(src, "amf3.decode.date.header")
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		v, err := r.cache.object(int(h >> 1))
		if err != nil {
			return nil, err
		}
		t, ok := v.(time.Time)
		if !ok {
			return nil, &InvalidReferenceError{Kind: RefObject, Index: int(h >> 1), CacheSize: len(r.cache.objects)}
		}
		return t, nil
	}
	ms, err := readDouble(src, "amf3.decode.date.millis")
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(int64(ms)).UTC()
	r.cache.addObject(t)
	return t, nil
}

// readArray implements spec §4.7's Array decode: reference scheme on the
// object cache; on first occurrence, a dense length header, then
// associative string-keyed pairs terminated by an empty key, then the
// dense elements. If any associative keys were present the result
// combines them with stringified-integer keys for the dense part;
// otherwise it is a plain sequence.
func (r *amf3Reader) readArray(src io.Reader) (any, error) {
	h, err := readU29(src, "amf3.decode.array.header")
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return r.cache.object(int(h >> 1))
	}
	length := int(h >> 1)
	idx := r.cache.addObject(nil) // placeholder, replaced below before any element is decoded

	assoc := make(map[string]any)
	for {
		key, err := r.readStringRef(src)
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
		val, err := r.readValue(src)
		if err != nil {
			return nil, err
		}
		assoc[key] = val
	}

	if len(assoc) == 0 {
		dense := make([]any, length)
		r.cache.setObject(idx, dense) // set before filling: self-referential elements resolve correctly
		for i := range dense {
			v, err := r.readValue(src)
			if err != nil {
				return nil, err
			}
			dense[i] = v
		}
		return dense, nil
	}

	result := make(map[string]any, length+len(assoc))
	for k, v := range assoc {
		result[k] = v
	}
	r.cache.setObject(idx, result)
	for i := 0; i < length; i++ {
		v, err := r.readValue(src)
		if err != nil {
			return nil, err
		}
		result[fmt.Sprintf("%d", i)] = v
	}
	return result, nil
}

func (r *amf3Reader) readByteArray(src io.Reader) (any, error) {
	h, err := readU29(src, "amf3.decode.bytearray.header")
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return r.cache.object(int(h >> 1))
	}
	length := int(h >> 1)
	pooled, err := buf.ReadFromPool(src, length)
	if err != nil {
		return nil, &TruncatedStreamError{Op: "amf3.decode.bytearray.bytes", Err: err}
	}
	ba := newByteArrayFromPool(pooled)
	r.cache.addObject(ba)
	return ba, nil
}

func (r *amf3Reader) readDictionary(src io.Reader) (any, error) {
	h, err := readU29(src, "amf3.decode.dict.header")
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return r.cache.object(int(h >> 1))
	}
	length := int(h >> 1)
	weak, err := readU29(src, "amf3.decode.dict.weakflag")
	if err != nil {
		return nil, err
	}
	dict := NewDictionary()
	dict.WeakKeys = weak != 0
	r.cache.addObject(dict)
	for i := 0; i < length; i++ {
		k, err := r.readValue(src)
		if err != nil {
			return nil, err
		}
		v, err := r.readValue(src)
		if err != nil {
			return nil, err
		}
		dict.Entries = append(dict.Entries, DictEntry{Key: k, Value: v})
	}
	return dict, nil
}

// readObject implements spec §4.7's trait/instance scheme.
func (r *amf3Reader) readObject(src io.Reader) (any, error) {
	h1, err := readU29(src, "amf3.decode.object.header")
	if err != nil {
		return nil, err
	}
	if h1&1 == 0 {
		return r.cache.object(int(h1 >> 1))
	}

	h2 := h1 >> 1
	var t trait
	if h2&1 == 0 {
		t, err = r.cache.traitAt(int(h2 >> 1))
		if err != nil {
			return nil, err
		}
	} else {
		externalizable := (h2>>1)&1 != 0
		dynamic := (h2>>2)&1 != 0
		sealedCount := int(h2 >> 3)

		className, err := r.readStringRef(src)
		if err != nil {
			return nil, err
		}
		members := make([]string, sealedCount)
		for i := range members {
			members[i], err = r.readStringRef(src)
			if err != nil {
				return nil, err
			}
		}
		t = trait{Name: className, Members: members, Dynamic: dynamic, Externalizable: externalizable}
		r.cache.addTrait(t)
	}

	if t.Name == arrayCollectionClassName {
		inner, err := r.readValue(src)
		if err != nil {
			return nil, err
		}
		r.cache.addObject(inner) // occupies a second slot, spec §4.7 step 4 / testable property #8
		return inner, nil
	}

	instance, err := r.mapper.HostInstance(t.Name)
	if err != nil {
		return nil, &MapperError{Op: "host_instance", Err: err}
	}
	r.cache.addObject(instance)

	if t.Externalizable {
		ext, ok := instance.(Externalizable)
		if !ok {
			return nil, &UnsupportedValueError{GoType: fmt.Sprintf("%T (externalizable class %q)", instance, t.Name)}
		}
		if err := ext.ReadExternal(r); err != nil {
			return nil, err
		}
		return instance, nil
	}

	translate := r.translateCaseFor(t.Name)
	sealedProps := make(map[string]any, len(t.Members))
	for _, name := range t.Members {
		v, err := r.readValue(src)
		if err != nil {
			return nil, err
		}
		if translate {
			name = decodeTranslateCase(name)
		}
		sealedProps[name] = v
	}

	var dynamicProps map[string]any
	if t.Dynamic {
		dynamicProps = make(map[string]any)
		for {
			key, err := r.readStringRef(src)
			if err != nil {
				return nil, err
			}
			if key == "" {
				break
			}
			v, err := r.readValue(src)
			if err != nil {
				return nil, err
			}
			if translate {
				key = decodeTranslateCase(key)
			}
			dynamicProps[key] = v
		}
	}

	if err := r.mapper.Populate(instance, sealedProps, dynamicProps); err != nil {
		return nil, &MapperError{Op: "populate", Err: err}
	}
	return instance, nil
}

func (r *amf3Reader) translateCaseFor(className string) bool {
	key := any(className)
	if className == "" {
		key = "Hash"
	}
	if r.mapper == nil {
		return false
	}
	v, ok := r.mapper.Option(key, "translate_case")
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
