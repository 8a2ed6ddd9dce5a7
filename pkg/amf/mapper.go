package amf

import "errors"

// ClassMapper is the external collaborator that mediates between wire
// class names and host instances (spec §4.4). It is treated as
// read-mostly and thread-safe by contract; the codec never mutates it.
// A full configurable registry (case-translation policy, custom
// constructors, etc.) is out of scope for this module — callers inject
// their own implementation, or use GenericMapper for untyped values.
type ClassMapper interface {
	// WireClassName returns the wire class name for a host value, or
	// ("", false) to request anonymous-object encoding.
	WireClassName(v any) (string, bool)

	// HostInstance returns a fresh instance for a decoded typed object.
	// May return a generic map[string]any if name is unregistered.
	HostInstance(wireClassName string) (any, error)

	// PropertiesForSerialization returns the sealed-then-dynamic
	// property set to encode for v, in iteration order. ok is false if
	// v has no mapper-known property set (the caller falls back to
	// rejecting v as unsupported).
	PropertiesForSerialization(v any) (props map[string]any, sealed []string, ok bool)

	// Populate installs decoded fields into v.
	Populate(v any, sealedProps map[string]any, dynamicProps map[string]any) error

	// Option reports a per-class option. Two are honored by the codec:
	// "translate_case" (bool) and the "Hash" class's translate_case,
	// which also governs untyped hash decode (spec §4.4).
	Option(classNameOrValue any, name string) (any, bool)
}

// GenericMapper is a minimal ClassMapper sufficient to round-trip
// map[string]any values with no class registry: every typed object
// decodes to a plain map, and WireClassName always reports "no class
// name" so objects encode anonymously. It exists so the codec is usable
// out of the box; a real application with a class registry (case
// translation, concrete struct types) supplies its own ClassMapper.
type GenericMapper struct {
	// TranslateCase applies the §4.4 snake_case<->camelCase property
	// name translation to every object processed by this mapper,
	// including untyped hashes.
	TranslateCase bool
}

// NewGenericMapper returns a GenericMapper with case translation disabled.
func NewGenericMapper() *GenericMapper { return &GenericMapper{} }

func (m *GenericMapper) WireClassName(v any) (string, bool) { return "", false }

func (m *GenericMapper) HostInstance(wireClassName string) (any, error) {
	return make(map[string]any), nil
}

func (m *GenericMapper) PropertiesForSerialization(v any) (map[string]any, []string, bool) {
	props, ok := v.(map[string]any)
	if !ok {
		return nil, nil, false
	}
	return props, nil, true
}

func (m *GenericMapper) Populate(v any, sealedProps, dynamicProps map[string]any) error {
	dst, ok := v.(map[string]any)
	if !ok {
		return &MapperError{Op: "populate", Err: errUnsupportedPopulateTarget}
	}
	for k, v := range sealedProps {
		dst[k] = v
	}
	for k, v := range dynamicProps {
		dst[k] = v
	}
	return nil
}

func (m *GenericMapper) Option(classNameOrValue any, name string) (any, bool) {
	if name == "translate_case" {
		return m.TranslateCase, true
	}
	return nil, false
}

var errUnsupportedPopulateTarget = errors.New("populate target is not map[string]any")
