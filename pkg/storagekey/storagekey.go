package storagekey

import (
	"fmt"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/agenthands/statekeys/pkg/hasher"
)

// IdentifierBits is the hash width used for pallet and item names.
const IdentifierBits = 128

// Arg is one encoded key argument paired with the hasher applied to it.
type Arg struct {
	Encoded []byte
	Hasher  hasher.Kind
}

// HashIdentifier hashes a pallet or item name to bits/8 bytes.
func HashIdentifier(name string, bits int) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", core.ErrInvalidIdentifier)
	}
	return hasher.Twox([]byte(name), bits)
}

// KeyPrefix returns twox128(pallet) ++ twox128(item).
func KeyPrefix(pallet, item string) (core.KeyPrefix, error) {
	p, err := HashIdentifier(pallet, IdentifierBits)
	if err != nil {
		return nil, fmt.Errorf("pallet: %w", err)
	}
	i, err := HashIdentifier(item, IdentifierBits)
	if err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	return core.KeyPrefix(append(p, i...)), nil
}

// StorageKey builds the full key of an item with the given key arity.
// The number of args must equal arity: 0 for a plain value, 1 for a map,
// 2 for a double map.
func StorageKey(pallet, item string, arity int, args ...Arg) (core.StorageKey, error) {
	if len(args) != arity {
		return nil, fmt.Errorf("%w: %s.%s expects %d args, got %d", core.ErrArityMismatch, pallet, item, arity, len(args))
	}
	return build(pallet, item, args)
}

// PartialKey builds the prefix of a keyed item with only the leading args
// applied, e.g. all entries of a double map sharing the first key.
func PartialKey(pallet, item string, arity int, args ...Arg) (core.KeyPrefix, error) {
	if len(args) > arity {
		return nil, fmt.Errorf("%w: %s.%s expects at most %d args, got %d", core.ErrArityMismatch, pallet, item, arity, len(args))
	}
	k, err := build(pallet, item, args)
	return core.KeyPrefix(k), err
}

func build(pallet, item string, args []Arg) ([]byte, error) {
	prefix, err := KeyPrefix(pallet, item)
	if err != nil {
		return nil, err
	}

	key := []byte(prefix)
	for i, a := range args {
		h, err := a.Hasher.Hash(a.Encoded)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		key = append(key, h...)
	}
	return key, nil
}

// Args reads raw arguments back from a key built with transparent hashers.
// sizes gives the encoded length of each argument; the last size may be -1
// to take the remainder of the key.
func Args(key []byte, hashers []hasher.Kind, sizes []int) ([][]byte, error) {
	if len(sizes) != len(hashers) {
		return nil, fmt.Errorf("%w: %d hashers, %d sizes", core.ErrArityMismatch, len(hashers), len(sizes))
	}
	if len(key) < core.PrefixLen {
		return nil, fmt.Errorf("%w: key shorter than prefix", core.ErrInvalidInput)
	}

	rest := key[core.PrefixLen:]
	out := make([][]byte, 0, len(hashers))
	for i, h := range hashers {
		if !h.Valid() {
			return nil, fmt.Errorf("arg %d: %w: %d", i, core.ErrUnknownHasherKind, uint8(h))
		}
		if !h.Transparent() {
			return nil, fmt.Errorf("%w: arg %d uses opaque hasher %s", core.ErrInvalidInput, i, h)
		}

		if len(rest) < h.DigestLen() {
			return nil, fmt.Errorf("%w: key too short for arg %d", core.ErrInvalidInput, i)
		}
		avail := len(rest) - h.DigestLen()

		n := sizes[i]
		switch {
		case n == -1:
			if i != len(hashers)-1 {
				return nil, fmt.Errorf("%w: only the last size may be open", core.ErrInvalidInput)
			}
			n = avail
		case n < 0:
			return nil, fmt.Errorf("%w: arg %d has size %d", core.ErrInvalidInput, i, n)
		case n > avail:
			return nil, fmt.Errorf("%w: key too short for arg %d", core.ErrInvalidInput, i)
		}

		raw := make([]byte, n)
		copy(raw, rest[h.DigestLen():h.DigestLen()+n])
		out = append(out, raw)
		rest = rest[h.DigestLen()+n:]
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", core.ErrInvalidInput, len(rest))
	}
	return out, nil
}
