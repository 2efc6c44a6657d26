package prefetch

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec moves a sample across the worker boundary. Encode runs on a worker,
// Decode on the caller. Decode(Encode(s)) must be observably equal to s and
// must not alias any memory still reachable from s.
//
// Implementations must be safe for concurrent Encode calls.
type Codec[S any] interface {
	Encode(s S) ([]byte, error)
	Decode(b []byte) (S, error)
}

// BytesCodec passes raw byte samples through, copying on both sides.
type BytesCodec struct{}

func (BytesCodec) Encode(s []byte) ([]byte, error) { return bytes.Clone(s), nil }

func (BytesCodec) Decode(b []byte) ([]byte, error) { return bytes.Clone(b), nil }

// GobCodec serialises samples with encoding/gob. S must be gob-encodable.
type GobCodec[S any] struct{}

func (GobCodec[S]) Encode(s S) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := gob.NewEncoder(buf).Encode(&s); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (GobCodec[S]) Decode(b []byte) (S, error) {
	var s S
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return s, fmt.Errorf("gob decode: %w", err)
	}
	return s, nil
}

// ZstdCodec compresses the output of another codec. It pays off when samples
// are large and the consumer keeps many of them queued.
type ZstdCodec[S any] struct {
	inner Codec[S]
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewZstdCodec wraps inner. Level follows the zstd command line scale (1-22).
func NewZstdCodec[S any](inner Codec[S], level int) (*ZstdCodec[S], error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: nil inner codec", ErrInvalidArgument)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &ZstdCodec[S]{inner: inner, enc: enc, dec: dec}, nil
}

func (c *ZstdCodec[S]) Encode(s S) ([]byte, error) {
	raw, err := c.inner.Encode(s)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *ZstdCodec[S]) Decode(b []byte) (S, error) {
	raw, err := c.dec.DecodeAll(b, nil)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("zstd decode: %w", err)
	}
	return c.inner.Decode(raw)
}

// Close releases the encoder and decoder.
func (c *ZstdCodec[S]) Close() error {
	c.dec.Close()
	return c.enc.Close()
}
