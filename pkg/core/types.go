package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// DigestLen is the length of one identifier hash (128 bits).
	DigestLen = 16
	// PrefixLen is the length of a pallet hash followed by an item hash.
	PrefixLen = 2 * DigestLen
)

// CID represents binary CID bytes.
type CID struct {
	Bytes []byte
}

// StorageKey is a fully derived key into the remote state tree.
// Derivation always returns a freshly allocated slice.
type StorageKey []byte

// KeyPrefix is the pallet hash and item hash shared by every key of one storage item.
type KeyPrefix []byte

// Hex renders the key as lowercase hex prefixed with 0x.
func (k StorageKey) Hex() string { return toHex(k) }

func (k StorageKey) String() string { return toHex(k) }

// Equal reports byte-exact equality.
func (k StorageKey) Equal(o StorageKey) bool { return bytes.Equal(k, o) }

// HasPrefix reports whether p is a byte prefix of k.
func (k StorageKey) HasPrefix(p KeyPrefix) bool { return bytes.HasPrefix(k, p) }

// Prefix returns the first PrefixLen bytes of a pallet-derived key.
func (k StorageKey) Prefix() (KeyPrefix, error) {
	if len(k) < PrefixLen {
		return nil, fmt.Errorf("%w: key shorter than %d bytes", ErrInvalidInput, PrefixLen)
	}
	p := make(KeyPrefix, PrefixLen)
	copy(p, k)
	return p, nil
}

func (p KeyPrefix) Hex() string { return toHex(p) }

func (p KeyPrefix) String() string { return toHex(p) }

// ParseHex decodes a hex string with or without the 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return b, nil
}

func toHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
