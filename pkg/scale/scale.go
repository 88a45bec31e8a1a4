package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/agenthands/statekeys/pkg/core"
)

func U8(v uint8) []byte { return []byte{v} }

func U16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func U32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func U64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// U128 encodes a non-negative integer below 2^128 as 16 little-endian bytes.
func U128(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("%w: u128 out of range", core.ErrInvalidInput)
	}
	be := v.FillBytes(make([]byte, 16))
	for i, j := 0, len(be)-1; i < j; i, j = i+1, j-1 {
		be[i], be[j] = be[j], be[i]
	}
	return be, nil
}

func Bool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// Compact encodes v in the variable-length compact integer format.
func Compact(v uint64) []byte {
	switch {
	case v < 1<<6:
		return []byte{byte(v) << 2}
	case v < 1<<14:
		return binary.LittleEndian.AppendUint16(nil, uint16(v)<<2|0b01)
	case v < 1<<30:
		return binary.LittleEndian.AppendUint32(nil, uint32(v)<<2|0b10)
	}

	n := (bits.Len64(v) + 7) / 8
	out := make([]byte, 1, 1+n)
	out[0] = byte(n-4)<<2 | 0b11
	for i := 0; i < n; i++ {
		out = append(out, byte(v>>(8*i)))
	}
	return out
}

// DecodeCompact reads a compact integer and returns it with the number of bytes consumed.
func DecodeCompact(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: empty compact", core.ErrInvalidInput)
	}
	switch b[0] & 0b11 {
	case 0b00:
		return uint64(b[0] >> 2), 1, nil
	case 0b01:
		if len(b) < 2 {
			return 0, 0, fmt.Errorf("%w: short compact", core.ErrInvalidInput)
		}
		return uint64(binary.LittleEndian.Uint16(b) >> 2), 2, nil
	case 0b10:
		if len(b) < 4 {
			return 0, 0, fmt.Errorf("%w: short compact", core.ErrInvalidInput)
		}
		return uint64(binary.LittleEndian.Uint32(b) >> 2), 4, nil
	}

	n := int(b[0]>>2) + 4
	if n > 8 {
		return 0, 0, fmt.Errorf("%w: compact wider than 64 bits", core.ErrInvalidInput)
	}
	if len(b) < 1+n {
		return 0, 0, fmt.Errorf("%w: short compact", core.ErrInvalidInput)
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(b[1+i]) << (8 * i)
	}
	return v, 1 + n, nil
}

// Bytes encodes a length-prefixed byte sequence.
func Bytes(b []byte) []byte {
	out := Compact(uint64(len(b)))
	return append(out, b...)
}

func Str(s string) []byte { return Bytes([]byte(s)) }

// Tuple concatenates already-encoded fields, the layout of tuple keys.
func Tuple(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
