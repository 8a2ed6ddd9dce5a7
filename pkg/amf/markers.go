// Package amf implements a bidirectional codec for Action Message Format
// versions 0 and 3 (AMF0 and AMF3), the binary object-serialization formats
// used by Flash Player and Flex for wire interchange with application
// servers.
//
// The codec converts between a host-language value graph (nil, bool,
// float64, int32, string, []any, map[string]any, time.Time, ByteArray,
// XMLDocument, *Dictionary, and mapper-resolved typed objects) and a
// compact byte stream. AMF0 and AMF3 each get their own reader/writer pair;
// an AMF0 stream can hand off to AMF3 mid-value via the AVM+ marker
// (0x11), and the AMF3 reader then continues on the same io.Reader.
//
// Basic usage:
//
//	c := amf.NewAMF0Codec(amf.WithMapper(amf.NewGenericMapper()))
//	data, err := c.Encode(map[string]any{"a": 1.0})
//	v, err := c.Decode(bytes.NewReader(data))
//
// A codec instance is single-use per top-level Encode/Decode call: its
// reference caches are built on entry and torn down on return, and must
// not be shared across concurrent calls (see package doc of the
// collaborator interfaces in mapper.go for the Class Mapper contract).
package amf

// AMF0 type markers (spec §6).
const (
	markerNumber      byte = 0x00
	markerBoolean     byte = 0x01
	markerString      byte = 0x02
	markerObject      byte = 0x03
	markerMovieClip   byte = 0x04 // reserved, not supported
	markerNull        byte = 0x05
	markerUndefined   byte = 0x06
	markerReference   byte = 0x07
	markerECMAArray   byte = 0x08
	markerObjectEnd   byte = 0x09
	markerStrictArray byte = 0x0A
	markerDate        byte = 0x0B
	markerLongString  byte = 0x0C
	markerUnsupported byte = 0x0D
	markerXML         byte = 0x0F
	markerTypedObject byte = 0x10
	markerAVMPlus     byte = 0x11 // AMF0→AMF3 switch
)

// AMF3 type markers (spec §6).
const (
	amf3Undefined byte = 0x00
	amf3Null      byte = 0x01
	amf3False     byte = 0x02
	amf3True      byte = 0x03
	amf3Integer   byte = 0x04
	amf3Double    byte = 0x05
	amf3String    byte = 0x06
	amf3XMLDoc    byte = 0x07
	amf3Date      byte = 0x08
	amf3Array     byte = 0x09
	amf3Object    byte = 0x0A
	amf3XML       byte = 0x0B
	amf3ByteArray byte = 0x0C
	amf3Dict      byte = 0x11
)

// arrayCollectionClassName is the wire class that transparently wraps a
// sequence (spec §4.7 step 4).
const arrayCollectionClassName = "flex.messaging.io.ArrayCollection"

// U29 limits (spec §4.2).
const (
	u29Min = -(1 << 28)
	u29Max = 1<<28 - 1
)

// defaultMaxStreamLength bounds encoder output and decoder input (spec
// §4.1, C1).
const defaultMaxStreamLength = 64 << 20 // 64 MiB
