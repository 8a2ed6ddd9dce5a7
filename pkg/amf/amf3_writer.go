package amf

import (
	"fmt"
	"io"
	"time"
)

// amf3Writer encodes host values as AMF3 (spec §4.8, C8). It owns the
// object, string and trait reference caches for one top-level Encode
// call.
type amf3Writer struct {
	cache  *writeCache
	mapper ClassMapper
	dst    io.Writer
}

func newAMF3Writer(mapper ClassMapper) *amf3Writer {
	return &amf3Writer{cache: newWriteCache(), mapper: mapper}
}

func (w *amf3Writer) encodeTop(dst io.Writer, v any) error {
	w.dst = dst
	return w.WriteValue(v)
}

// WriteValue satisfies Writer for Encodable.EncodeAMF and recurses for
// nested values.
func (w *amf3Writer) WriteValue(v any) error {
	if enc, ok := v.(Encodable); ok {
		return enc.EncodeAMF(w)
	}

	switch val := v.(type) {
	case nil:
		return writeByte(w.dst, amf3Null)
	case bool:
		if val {
			return writeByte(w.dst, amf3True)
		}
		return writeByte(w.dst, amf3False)
	case int:
		return w.writeNumeric(int64(val))
	case int32:
		return w.writeNumeric(int64(val))
	case int64:
		return w.writeNumeric(val)
	case float64:
		return w.writeDouble(val)
	case float32:
		return w.writeDouble(float64(val))
	case string:
		if err := writeByte(w.dst, amf3String); err != nil {
			return err
		}
		return w.writeStringRef(val)
	case XMLDocument:
		return w.writeObjectCachedString(v, amf3XML, string(val))
	case time.Time:
		return w.writeDate(v, val)
	case []any:
		return w.writeArray(v, val)
	case map[string]any:
		return w.writeAnonymousObject(v, val)
	case *ByteArray:
		return w.writeByteArray(v, val)
	case *Dictionary:
		return w.writeDictionary(v, val)
	default:
		return w.writeTypedOrError(v)
	}
}

// writeNumeric picks the Integer marker when the value fits the signed
// 29-bit range, falling back to Double otherwise (spec §4.8, §4.2 "≥2^29
// falls back to Double").
func (w *amf3Writer) writeNumeric(n int64) error {
	if n >= u29Min && n <= u29Max {
		if err := writeByte(w.dst, amf3Integer); err != nil {
			return err
		}
		return writeU29(w.dst, uint32(n)&0x1FFFFFFF)
	}
	return w.writeDouble(float64(n))
}

func (w *amf3Writer) writeDouble(d float64) error {
	if err := writeByte(w.dst, amf3Double); err != nil {
		return err
	}
	return writeDouble(w.dst, d) // NaN passed through unchanged, see SPEC_FULL.md open question 1
}

// writeStringRef writes a U29 header (reference, or length + UTF-8 bytes
// on first occurrence) without a leading marker byte, so it can also
// serve class names and property keys. The empty string bypasses the
// cache (spec invariant #6).
func (w *amf3Writer) writeStringRef(s string) error {
	if s == "" {
		return writeU29(w.dst, 1)
	}
	if idx, ok := w.cache.lookupString(s); ok {
		return writeU29(w.dst, uint32(idx)<<1)
	}
	w.cache.addString(s)
	if err := writeU29(w.dst, uint32(len(s))<<1|1); err != nil {
		return err
	}
	_, err := w.dst.Write([]byte(s))
	return err
}

// identityKeyFor computes the writeCache identity for a composite value,
// using its Go-level representation as the content-hash fallback input.
func identityKeyFor(c *writeCache, v any) identity {
	return c.identityKey(v, func() []byte { return []byte(fmt.Sprintf("%#v", v)) })
}

// writeObjectCachedString writes an XMLDoc/XML payload, cached in the
// OBJECT cache rather than the string cache (spec §4.7 table mirrored on
// encode).
func (w *amf3Writer) writeObjectCachedString(v any, marker byte, s string) error {
	if err := writeByte(w.dst, marker); err != nil {
		return err
	}
	key := identityKeyFor(w.cache, v)
	if idx, ok := w.cache.lookupObject(key); ok {
		return writeU29(w.dst, uint32(idx)<<1)
	}
	w.cache.addObject(key, v)
	if err := writeU29(w.dst, uint32(len(s))<<1|1); err != nil {
		return err
	}
	_, err := w.dst.Write([]byte(s))
	return err
}

func (w *amf3Writer) writeDate(v any, t time.Time) error {
	if err := writeByte(w.dst, amf3Date); err != nil {
		return err
	}
	key := identityKeyFor(w.cache, v)
	if idx, ok := w.cache.lookupObject(key); ok {
		return writeU29(w.dst, uint32(idx)<<1)
	}
	w.cache.addObject(key, v)
	if err := writeU29(w.dst, 1); err != nil {
		return err
	}
	return writeDouble(w.dst, float64(t.UnixMilli()))
}

func (w *amf3Writer) writeArray(v any, arr []any) error {
	if err := writeByte(w.dst, amf3Array); err != nil {
		return err
	}
	key := identityKeyFor(w.cache, v)
	if idx, ok := w.cache.lookupObject(key); ok {
		return writeU29(w.dst, uint32(idx)<<1)
	}
	w.cache.addObject(key, v) // before elements, spec invariant #2
	if err := writeU29(w.dst, uint32(len(arr))<<1|1); err != nil {
		return err
	}
	if err := w.writeStringRef(""); err != nil { // empty key terminates the associative part (spec §9 note 4)
		return err
	}
	for _, el := range arr {
		if err := w.WriteValue(el); err != nil {
			return err
		}
	}
	return nil
}

func (w *amf3Writer) writeByteArray(v any, ba *ByteArray) error {
	if err := writeByte(w.dst, amf3ByteArray); err != nil {
		return err
	}
	key := identityKeyFor(w.cache, v)
	if idx, ok := w.cache.lookupObject(key); ok {
		return writeU29(w.dst, uint32(idx)<<1)
	}
	w.cache.addObject(key, v)
	data := ba.Bytes()
	if err := writeU29(w.dst, uint32(len(data))<<1|1); err != nil {
		return err
	}
	_, err := w.dst.Write(data)
	return err
}

func (w *amf3Writer) writeDictionary(v any, d *Dictionary) error {
	if err := writeByte(w.dst, amf3Dict); err != nil {
		return err
	}
	key := identityKeyFor(w.cache, v)
	if idx, ok := w.cache.lookupObject(key); ok {
		return writeU29(w.dst, uint32(idx)<<1)
	}
	w.cache.addObject(key, v)
	if err := writeU29(w.dst, uint32(len(d.Entries))<<1|1); err != nil {
		return err
	}
	weak := uint32(0)
	if d.WeakKeys {
		weak = 1
	}
	if err := writeU29(w.dst, weak); err != nil {
		return err
	}
	for _, e := range d.Entries {
		if err := w.WriteValue(e.Key); err != nil {
			return err
		}
		if err := w.WriteValue(e.Value); err != nil {
			return err
		}
	}
	return nil
}

// writeAnonymousObject encodes a map[string]any as a dynamic, untyped
// object (no sealed members): the closest AMF3 equivalent of a generic
// hash (spec §3 "string-keyed mapping").
func (w *amf3Writer) writeAnonymousObject(v any, m map[string]any) error {
	return w.writeObject(v, objectSpec{dynamicProps: m})
}

// writeTypedOrError handles any Go value not covered by the builtin
// cases above, delegating to the Class Mapper for a wire class name and
// property set (spec §4.4, §4.8).
func (w *amf3Writer) writeTypedOrError(v any) error {
	if w.mapper == nil {
		return &UnsupportedValueError{GoType: fmt.Sprintf("%T", v)}
	}
	className, ok := w.mapper.WireClassName(v)
	if !ok {
		return &UnsupportedValueError{GoType: fmt.Sprintf("%T", v)}
	}
	props, sealed, ok := w.mapper.PropertiesForSerialization(v)
	if !ok {
		return &MapperError{Op: "properties_for_serialization", Err: fmt.Errorf("no properties for %T", v)}
	}
	ext, externalizable := v.(Externalizable)
	if externalizable {
		return w.writeObject(v, objectSpec{className: className, externalizable: true, ext: ext})
	}
	sealedSet := make(map[string]bool, len(sealed))
	sealedVals := make(map[string]any, len(sealed))
	for _, name := range sealed {
		sealedVals[name] = props[name]
		sealedSet[name] = true
	}
	dynamic := make(map[string]any)
	for k, val := range props {
		if !sealedSet[k] {
			dynamic[k] = val
		}
	}
	return w.writeObject(v, objectSpec{
		className:    className,
		sealedNames:  sealed,
		sealedVals:   sealedVals,
		dynamicProps: dynamic,
	})
}

// objectSpec gathers what writeObject needs to emit one typed or
// anonymous AMF3 object (spec §4.8 mirroring §4.7's decode scheme).
type objectSpec struct {
	className      string
	sealedNames    []string // ordered; empty for anonymous objects
	sealedVals     map[string]any
	dynamicProps   map[string]any // written only when externalizable is false
	externalizable bool
	ext            Externalizable
}

// translateCaseFor mirrors amf3Reader.translateCaseFor so encode and
// decode honor the same ClassMapper.Option("translate_case") setting
// (spec §4.4, testable property #9): a mapper that decodes aB -> a_b
// must also encode a_b back out as aB, not literal a_b.
func (w *amf3Writer) translateCaseFor(className string) bool {
	key := any(className)
	if className == "" {
		key = "Hash"
	}
	if w.mapper == nil {
		return false
	}
	v, ok := w.mapper.Option(key, "translate_case")
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (w *amf3Writer) writeObject(v any, spec objectSpec) error {
	if err := writeByte(w.dst, amf3Object); err != nil {
		return err
	}
	key := identityKeyFor(w.cache, v)
	if idx, ok := w.cache.lookupObject(key); ok {
		return writeU29(w.dst, uint32(idx)<<1)
	}

	// Translate member/property names to their wire form before the
	// trait is built, so two objects of the same class reuse one trait
	// slot regardless of which path first primed the cache.
	sealedNames := spec.sealedNames
	sealedVals := spec.sealedVals
	dynamicProps := spec.dynamicProps
	if !spec.externalizable && w.translateCaseFor(spec.className) {
		sealedNames = make([]string, len(spec.sealedNames))
		sealedVals = make(map[string]any, len(spec.sealedVals))
		for i, name := range spec.sealedNames {
			wireName := encodeTranslateCase(name)
			sealedNames[i] = wireName
			sealedVals[wireName] = spec.sealedVals[name]
		}
		if spec.dynamicProps != nil {
			dynamicProps = make(map[string]any, len(spec.dynamicProps))
			for k, val := range spec.dynamicProps {
				dynamicProps[encodeTranslateCase(k)] = val
			}
		}
	}

	dynamicFlag := !spec.externalizable && (spec.className == "" || len(dynamicProps) > 0)
	t := trait{Name: spec.className, Members: sealedNames, Dynamic: dynamicFlag, Externalizable: spec.externalizable}

	var h2 uint32
	traitInline := true
	if traitIdx, ok := w.cache.lookupTrait(t); ok {
		h2 = uint32(traitIdx) << 1 // bit0=0: trait-cache reference
		traitInline = false
	} else {
		w.cache.addTrait(t)
		h2 = 1 // bit0=1: trait defined inline
		if spec.externalizable {
			h2 |= 1 << 1
		}
		if dynamicFlag {
			h2 |= 1 << 2
		}
		h2 |= uint32(len(sealedNames)) << 3
	}
	if err := writeU29(w.dst, h2<<1|1); err != nil { // bit0=1: object defined inline, not a reference
		return err
	}

	w.cache.addObject(key, v) // before property values, spec invariant #2
	if traitInline {
		if err := w.writeStringRef(spec.className); err != nil {
			return err
		}
		for _, name := range sealedNames {
			if err := w.writeStringRef(name); err != nil {
				return err
			}
		}
	}

	if spec.externalizable {
		return spec.ext.WriteExternal(w)
	}
	for _, name := range sealedNames {
		if err := w.WriteValue(sealedVals[name]); err != nil {
			return err
		}
	}
	if !dynamicFlag {
		return nil
	}
	for k, val := range dynamicProps {
		if err := w.writeStringRef(k); err != nil {
			return err
		}
		if err := w.WriteValue(val); err != nil {
			return err
		}
	}
	return w.writeStringRef("")
}
