package amf

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Option configures an AMF0Codec or AMF3Codec at construction time
// (spec §1 Non-goals exclude a configurable registry, but stream limits,
// the Class Mapper collaborator and diagnostic logging are still knobs
// every embedder needs).
type Option func(*codecConfig)

type codecConfig struct {
	mapper       ClassMapper
	maxStreamLen int
	logger       *slog.Logger
}

func defaultConfig() codecConfig {
	return codecConfig{
		mapper:       NewGenericMapper(),
		maxStreamLen: defaultMaxStreamLength,
	}
}

// WithMapper injects the Class Mapper collaborator (spec §4.4). Without
// this option, codecs use GenericMapper.
func WithMapper(m ClassMapper) Option {
	return func(c *codecConfig) { c.mapper = m }
}

// WithMaxStreamLength bounds both decode input and encode output (spec
// §4.1, C1). A non-positive value disables the bound.
func WithMaxStreamLength(n int) Option {
	return func(c *codecConfig) { c.maxStreamLen = n }
}

// WithLogger attaches a diagnostic slog.Logger. The codec never logs on
// its own hot path; the logger only receives a start event and, on
// failure, an error event for each top-level Encode/Decode call, emitted
// at slog.LevelDebug and keyed by this codec instance's id. Reference-cache
// activity is not traced.
func WithLogger(l *slog.Logger) Option {
	return func(c *codecConfig) { c.logger = l }
}

func (c *codecConfig) trace(event string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(event, args...)
}

// AMF0Codec is the top-level entry point for component C6/C5: it builds
// fresh reference caches for each Decode or Encode call and tears them
// down on return (spec §5 "caches owned exclusively by the enclosing
// codec instance for one top-level call").
type AMF0Codec struct {
	cfg codecConfig
	id  uuid.UUID
}

// NewAMF0Codec returns a ready-to-use AMF0 codec. With no options, it
// round-trips map[string]any/[]any/string/float64/bool/nil via
// GenericMapper and a 64 MiB stream bound.
func NewAMF0Codec(opts ...Option) *AMF0Codec {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &AMF0Codec{cfg: cfg, id: uuid.New()}
}

// Decode reads one top-level AMF0 value from r. A value that trampolines
// into AMF3 via the 0x11 marker is decoded transparently; the returned
// value is whatever the AMF3 side produced.
func (c *AMF0Codec) Decode(r io.Reader) (any, error) {
	src := io.Reader(r)
	if c.cfg.maxStreamLen > 0 {
		src = newBoundedReader(r, c.cfg.maxStreamLen)
	}
	c.cfg.trace("amf0.decode.start", "codec_id", c.id)
	reader := newAMF0Reader(c.cfg.mapper)
	v, err := reader.decodeTop(src)
	if err != nil {
		c.cfg.trace("amf0.decode.error", "codec_id", c.id, "err", err)
		return nil, err
	}
	return v, nil
}

// Encode writes v as a complete AMF0 value and returns the bytes.
func (c *AMF0Codec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodeTo(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes v as a complete AMF0 value to dst.
func (c *AMF0Codec) EncodeTo(dst io.Writer, v any) error {
	w := io.Writer(dst)
	if c.cfg.maxStreamLen > 0 {
		w = newBoundedWriter(dst, c.cfg.maxStreamLen)
	}
	c.cfg.trace("amf0.encode.start", "codec_id", c.id)
	writer := newAMF0Writer(c.cfg.mapper)
	if err := writer.encodeTop(w, v); err != nil {
		c.cfg.trace("amf0.encode.error", "codec_id", c.id, "err", err)
		return err
	}
	return nil
}

// AMF3Codec is the top-level entry point for component C8/C7.
type AMF3Codec struct {
	cfg codecConfig
	id  uuid.UUID
}

// NewAMF3Codec returns a ready-to-use AMF3 codec.
func NewAMF3Codec(opts ...Option) *AMF3Codec {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &AMF3Codec{cfg: cfg, id: uuid.New()}
}

func (c *AMF3Codec) Decode(r io.Reader) (any, error) {
	src := io.Reader(r)
	if c.cfg.maxStreamLen > 0 {
		src = newBoundedReader(r, c.cfg.maxStreamLen)
	}
	c.cfg.trace("amf3.decode.start", "codec_id", c.id)
	reader := newAMF3Reader(c.cfg.mapper)
	v, err := reader.decodeTop(src)
	if err != nil {
		c.cfg.trace("amf3.decode.error", "codec_id", c.id, "err", err)
		return nil, err
	}
	return v, nil
}

func (c *AMF3Codec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodeTo(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *AMF3Codec) EncodeTo(dst io.Writer, v any) error {
	w := io.Writer(dst)
	if c.cfg.maxStreamLen > 0 {
		w = newBoundedWriter(dst, c.cfg.maxStreamLen)
	}
	c.cfg.trace("amf3.encode.start", "codec_id", c.id)
	writer := newAMF3Writer(c.cfg.mapper)
	if err := writer.encodeTop(w, v); err != nil {
		c.cfg.trace("amf3.encode.error", "codec_id", c.id, "err", err)
		return err
	}
	return nil
}
