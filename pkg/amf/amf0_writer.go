package amf

import (
	"fmt"
	"io"
	"time"
)

// amf0Writer encodes host values as AMF0 (spec §4.6, C6). It owns the
// object reference cache for one top-level Encode call.
type amf0Writer struct {
	cache  *writeCache
	mapper ClassMapper
	dst    io.Writer
}

func newAMF0Writer(mapper ClassMapper) *amf0Writer {
	return &amf0Writer{cache: newWriteCache(), mapper: mapper}
}

func (w *amf0Writer) encodeTop(dst io.Writer, v any) error {
	w.dst = dst
	return w.WriteValue(v)
}

// WriteValue satisfies Writer for Encodable.EncodeAMF and recurses for
// nested values.
func (w *amf0Writer) WriteValue(v any) error {
	if enc, ok := v.(Encodable); ok {
		return enc.EncodeAMF(w)
	}

	switch val := v.(type) {
	case nil:
		return writeByte(w.dst, markerNull)
	case bool:
		if err := writeByte(w.dst, markerBoolean); err != nil {
			return err
		}
		b := byte(0)
		if val {
			b = 1
		}
		return writeByte(w.dst, b)
	case float64:
		return w.writeNumber(val)
	case float32:
		return w.writeNumber(float64(val))
	case int:
		return w.writeNumber(float64(val))
	case int32:
		return w.writeNumber(float64(val))
	case int64:
		return w.writeNumber(float64(val))
	case string:
		return w.writeString(val)
	case XMLDocument:
		if err := writeByte(w.dst, markerXML); err != nil {
			return err
		}
		return w.writeLongStringBody(string(val))
	case time.Time:
		return w.writeDate(val)
	case []any:
		return w.writeComposite(v, func() error { return w.writeStrictArrayBody(val) })
	case map[string]any:
		return w.writeComposite(v, func() error { return w.writeMapBody(val, markerObject) })
	case Hash:
		return w.writeComposite(v, func() error { return w.writeMapBody(val, markerECMAArray) })
	default:
		return w.writeTypedOrError(v)
	}
}

func (w *amf0Writer) writeNumber(d float64) error {
	if err := writeByte(w.dst, markerNumber); err != nil {
		return err
	}
	return writeDouble(w.dst, d)
}

func (w *amf0Writer) writeString(s string) error {
	if len(s) > 0xFFFF {
		if err := writeByte(w.dst, markerLongString); err != nil {
			return err
		}
		return w.writeLongStringBody(s)
	}
	if err := writeByte(w.dst, markerString); err != nil {
		return err
	}
	return w.writeShortStringBody(s)
}

func (w *amf0Writer) writeShortStringBody(s string) error {
	if err := writeUint16(w.dst, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.dst.Write([]byte(s))
	return err
}

func (w *amf0Writer) writeLongStringBody(s string) error {
	if err := writeUint32(w.dst, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.dst.Write([]byte(s))
	return err
}

func (w *amf0Writer) writeDate(t time.Time) error {
	if err := writeByte(w.dst, markerDate); err != nil {
		return err
	}
	if err := writeDouble(w.dst, float64(t.UnixMilli())); err != nil {
		return err
	}
	return writeUint16(w.dst, 0) // timezone, always UTC on the wire (spec §3)
}

// writeComposite checks the object cache before writing; on a repeat
// identity it writes only a Reference marker + index (spec invariant #1,
// §4.6 "reference-first dispatch").
func (w *amf0Writer) writeComposite(v any, body func() error) error {
	key := w.cache.identityKey(v, func() []byte { return []byte(fmt.Sprintf("%#v", v)) })
	if idx, ok := w.cache.lookupObject(key); ok {
		if err := writeByte(w.dst, markerReference); err != nil {
			return err
		}
		return writeUint16(w.dst, uint16(idx))
	}
	w.cache.addObject(key, v) // before descending into children, spec invariant #2
	return body()
}

func (w *amf0Writer) writeStrictArrayBody(arr []any) error {
	if err := writeByte(w.dst, markerStrictArray); err != nil {
		return err
	}
	if err := writeUint32(w.dst, uint32(len(arr))); err != nil {
		return err
	}
	for _, v := range arr {
		if err := w.WriteValue(v); err != nil {
			return err
		}
	}
	return nil
}

// writeMapBody writes the Object or ECMAArray body (spec §4.6 step 2):
// both share the same key/value/terminator shape, differing only in the
// leading marker and the ECMAArray's u32 property count.
func (w *amf0Writer) writeMapBody(m map[string]any, marker byte) error {
	if err := writeByte(w.dst, marker); err != nil {
		return err
	}
	if marker == markerECMAArray {
		if err := writeUint32(w.dst, uint32(len(m))); err != nil { // true property count, SPEC_FULL.md open question 3
			return err
		}
	}
	translate := w.translateCaseFor("")
	for k, v := range m {
		key := k
		if translate {
			key = encodeTranslateCase(key)
		}
		if err := w.writeShortStringBody(key); err != nil {
			return err
		}
		if err := w.WriteValue(v); err != nil {
			return err
		}
	}
	if err := writeUint16(w.dst, 0); err != nil {
		return err
	}
	return writeByte(w.dst, markerObjectEnd)
}

// writeTypedOrError handles any Go value that isn't one of the builtin
// cases: it must be representable as a mapper-backed typed object, or
// encoding fails (spec §7 UnsupportedValue).
func (w *amf0Writer) writeTypedOrError(v any) error {
	if w.mapper == nil {
		return &UnsupportedValueError{GoType: fmt.Sprintf("%T", v)}
	}
	className, ok := w.mapper.WireClassName(v)
	if !ok {
		return &UnsupportedValueError{GoType: fmt.Sprintf("%T", v)}
	}
	props, _, ok := w.mapper.PropertiesForSerialization(v)
	if !ok {
		return &MapperError{Op: "properties_for_serialization", Err: fmt.Errorf("no properties for %T", v)}
	}
	return w.writeComposite(v, func() error {
		if err := writeByte(w.dst, markerTypedObject); err != nil {
			return err
		}
		if err := w.writeShortStringBody(className); err != nil {
			return err
		}
		translate := w.translateCaseFor(className)
		for k, val := range props {
			key := k
			if translate {
				key = encodeTranslateCase(key)
			}
			if err := w.writeShortStringBody(key); err != nil {
				return err
			}
			if err := w.WriteValue(val); err != nil {
				return err
			}
		}
		if err := writeUint16(w.dst, 0); err != nil {
			return err
		}
		return writeByte(w.dst, markerObjectEnd)
	})
}

func (w *amf0Writer) translateCaseFor(className string) bool {
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
