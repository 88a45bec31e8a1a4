package transform

import (
	"fmt"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/klauspost/compress/zstd"
)

const (
	Magic   = "SKVE"
	Version = 1

	headerLen = len(Magic) + 3
)

const (
	FlagCompressed = 1 << 0
)

const (
	AlgZstd = 1
)

// Transform encodes state values for the catalog and decodes them back.
type Transform interface {
	Name() string
	Encode(plain []byte) ([]byte, error)
	Decode(stored []byte) ([]byte, error)
}

// New builds the transform named in cfg. An empty name means "none".
func New(cfg core.TransformConfig) (Transform, error) {
	switch cfg.Name {
	case "zstd":
		return NewZstd(cfg.ZstdLevel)
	case "none", "":
		return NewNone(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported transform %q", core.ErrInvalidInput, cfg.Name)
	}
}

type noneTransform struct{}

func NewNone() Transform {
	return &noneTransform{}
}

func (t *noneTransform) Name() string                         { return "none" }
func (t *noneTransform) Encode(plain []byte) ([]byte, error)  { return plain, nil }
func (t *noneTransform) Decode(stored []byte) ([]byte, error) { return stored, nil }

// zstdTransform wraps values in a small envelope. Values below
// minCompressLen are stored uncompressed inside the envelope since most
// state values (balances, counters, account ids) are tens of bytes.
type zstdTransform struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

const minCompressLen = 64

func NewZstd(level int) (Transform, error) {
	if level == 0 {
		level = int(zstd.SpeedDefault)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	return &zstdTransform{
		encoder: enc,
		decoder: dec,
	}, nil
}

func (t *zstdTransform) Name() string { return "zstd" }

func (t *zstdTransform) Encode(plain []byte) ([]byte, error) {
	var flags byte
	payload := plain
	if len(plain) >= minCompressLen {
		compressed := t.encoder.EncodeAll(plain, nil)
		if len(compressed) < len(plain) {
			flags, payload = FlagCompressed, compressed
		}
	}

	envelope := make([]byte, 0, headerLen+len(payload))
	envelope = append(envelope, Magic...)
	envelope = append(envelope, Version, flags, AlgZstd)
	envelope = append(envelope, payload...)

	return envelope, nil
}

func (t *zstdTransform) Decode(stored []byte) ([]byte, error) {
	if len(stored) < headerLen {
		return nil, fmt.Errorf("%w: value too small for envelope", core.ErrCorrupt)
	}

	if string(stored[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("%w: invalid magic", core.ErrCorrupt)
	}

	if stored[4] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", core.ErrCorrupt, stored[4])
	}

	flags := stored[5]
	alg := stored[6]
	payload := stored[headerLen:]

	if flags&FlagCompressed != 0 {
		if alg != AlgZstd {
			return nil, fmt.Errorf("%w: unsupported compression algorithm %d", core.ErrCorrupt, alg)
		}
		out, err := t.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrCorrupt, err)
		}
		return out, nil
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
