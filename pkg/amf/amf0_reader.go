package amf

import (
	"io"
	"time"
)

// amf0Reader decodes AMF0 markers into host values (spec §4.5, C5). It
// owns the object reference cache for the duration of one top-level
// Decode call and trampolines to a fresh amf3Reader on the AVM+ switch
// marker (0x11).
type amf0Reader struct {
	cache  *readCache
	mapper ClassMapper
	src    io.Reader
}

func newAMF0Reader(mapper ClassMapper) *amf0Reader {
	return &amf0Reader{cache: newReadCache(), mapper: mapper}
}

// ReadValue satisfies ExternalReader and is the recursive entry point.
func (r *amf0Reader) ReadValue() (any, error) { return r.readValue(r.src) }

// src is set by decodeTop for the duration of one call; readValue always
// reads from it so nested helpers don't need to thread io.Reader through
// every signature.
func (r *amf0Reader) decodeTop(src io.Reader) (any, error) {
	r.src = src
	return r.readValue(src)
}

func (r *amf0Reader) readValue(src io.Reader) (any, error) {
	marker, err := readByte(src, "amf0.decode.marker")
	if err != nil {
		return nil, err
	}
	return r.readValueMarker(src, marker)
}

func (r *amf0Reader) readValueMarker(src io.Reader, marker byte) (any, error) {
	switch marker {
	case markerNumber:
		return readDouble(src, "amf0.decode.number") // NaN preserved, matches the AMF3 resolution (SPEC_FULL.md open question 1)
	case markerBoolean:
		b, err := readByte(src, "amf0.decode.boolean")
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case markerString:
		return r.readShortString(src, "amf0.decode.string")
	case markerObject:
		return r.readObject(src)
	case markerNull, markerUndefined, markerUnsupported:
		return nil, nil
	case markerReference:
		idx, err := readUint16(src, "amf0.decode.reference")
		if err != nil {
			return nil, err
		}
		return r.cache.object(int(idx))
	case markerECMAArray:
		return r.readECMAArray(src)
	case markerStrictArray:
		return r.readStrictArray(src)
	case markerDate:
		return r.readDate(src)
	case markerLongString:
		return r.readLongString(src, "amf0.decode.longstring")
	case markerXML:
		s, err := r.readLongString(src, "amf0.decode.xml")
		if err != nil {
			return nil, err
		}
		return XMLDocument(s), nil
	case markerTypedObject:
		return r.readTypedObject(src)
	case markerAVMPlus:
		return newAMF3Reader(r.mapper).decodeTop(src)
	default:
		return nil, &InvalidMarkerError{Marker: marker, Version: 0}
	}
}

func (r *amf0Reader) readShortString(src io.Reader, op string) (string, error) {
	n, err := readUint16(src, op)
	if err != nil {
		return "", err
	}
	return readUTF8(src, int(n), op)
}

func (r *amf0Reader) readLongString(src io.Reader, op string) (string, error) {
	n, err := readUint32(src, op)
	if err != nil {
		return "", err
	}
	return readUTF8(src, int(n), op)
}

// readObjectMode repeatedly reads a u16-length key, then a value, until
// an empty key is immediately followed by ObjectEnd (spec §4.5 "Object
// mode"). dest is filled in place so it can be cache-registered before
// its children are decoded (cycle safety, spec invariant #2).
func (r *amf0Reader) readObjectMode(src io.Reader, dest map[string]any, translateCase bool) error {
	for {
		key, err := r.readShortString(src, "amf0.decode.object.key")
		if err != nil {
			return err
		}
		marker, err := readByte(src, "amf0.decode.object.marker")
		if err != nil {
			return err
		}
		if marker == markerObjectEnd && key == "" {
			return nil
		}
		val, err := r.readValueMarker(src, marker)
		if err != nil {
			return err
		}
		if translateCase {
			key = decodeTranslateCase(key)
		}
		dest[key] = val
	}
}

func (r *amf0Reader) translateCaseFor(className string) bool {
	key := className
	if key == "" {
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

func (r *amf0Reader) readObject(src io.Reader) (any, error) {
	obj := make(map[string]any)
	r.cache.addObject(obj)
	if err := r.readObjectMode(src, obj, r.translateCaseFor("")); err != nil {
		return nil, err
	}
	return obj, nil
}

func (r *amf0Reader) readECMAArray(src io.Reader) (any, error) {
	if _, err := readUint32(src, "amf0.decode.ecmaarray.count"); err != nil { // ignored for sizing, spec §4.5
		return nil, err
	}
	obj := make(Hash)
	r.cache.addObject(obj)
	if err := r.readObjectMode(src, obj, r.translateCaseFor("")); err != nil {
		return nil, err
	}
	return obj, nil
}

func (r *amf0Reader) readStrictArray(src io.Reader) (any, error) {
	length, err := readUint32(src, "amf0.decode.strictarray.length")
	if err != nil {
		return nil, err
	}
	arr := make([]any, length)
	r.cache.addObject(arr)
	for i := range arr {
		v, err := r.readValue(src)
		if err != nil {
			return nil, err
		}
		arr[i] = v
	}
	return arr, nil
}

func (r *amf0Reader) readDate(src io.Reader) (any, error) {
	ms, err := readDouble(src, "amf0.decode.date.millis")
	if err != nil {
		return nil, err
	}
	if _, err := readUint16(src, "amf0.decode.date.timezone"); err != nil { // ignored, spec §4.5
		return nil, err
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

func (r *amf0Reader) readTypedObject(src io.Reader) (any, error) {
	className, err := r.readShortString(src, "amf0.decode.typedobject.classname")
	if err != nil {
		return nil, err
	}
	instance, err := r.mapper.HostInstance(className)
	if err != nil {
		return nil, &MapperError{Op: "host_instance", Err: err}
	}
	r.cache.addObject(instance)

	props := make(map[string]any)
	if err := r.readObjectMode(src, props, r.translateCaseFor(className)); err != nil {
		return nil, err
	}
	if err := r.mapper.Populate(instance, props, nil); err != nil {
		return nil, &MapperError{Op: "populate", Err: err}
	}
	return instance, nil
}
