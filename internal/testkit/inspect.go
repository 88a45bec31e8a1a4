package testkit

import (
	"context"

	"github.com/agenthands/statekeys/pkg/core"
)

// Scanner is the prefix scan half of a state cache.
type Scanner interface {
	Scan(ctx context.Context, prefix core.KeyPrefix, fn func(key core.StorageKey, value []byte) error) error
}

// CountEntries returns the number of cached entries under prefix.
func CountEntries(ctx context.Context, s Scanner, prefix core.KeyPrefix) (int, error) {
	n := 0
	err := s.Scan(ctx, prefix, func(core.StorageKey, []byte) error {
		n++
		return nil
	})
	return n, err
}

// CorruptByte returns a copy of b with its first byte flipped.
func CorruptByte(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	if len(out) > 0 {
		out[0] ^= 0xFF
	}
	return out
}
