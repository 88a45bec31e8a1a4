package storagekey

import (
	"fmt"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/agenthands/statekeys/pkg/metadata"
)

// Deriver builds keys for items described by a metadata provider.
type Deriver struct {
	meta metadata.Provider
}

// NewDeriver returns a Deriver backed by p.
func NewDeriver(p metadata.Provider) *Deriver {
	return &Deriver{meta: p}
}

// Key builds the key of pallet.item from encoded arguments, pairing each
// with the hasher declared in metadata.
func (d *Deriver) Key(pallet, item string, encoded ...[]byte) (core.StorageKey, error) {
	e, err := d.meta.Lookup(pallet, item)
	if err != nil {
		return nil, err
	}
	if len(encoded) != e.Arity() {
		return nil, fmt.Errorf("%w: %s.%s expects %d args, got %d", core.ErrArityMismatch, pallet, item, e.Arity(), len(encoded))
	}
	return StorageKey(pallet, item, e.Arity(), pair(e, encoded)...)
}

// Prefix returns the key prefix of a registered item.
func (d *Deriver) Prefix(pallet, item string) (core.KeyPrefix, error) {
	if _, err := d.meta.Lookup(pallet, item); err != nil {
		return nil, err
	}
	return KeyPrefix(pallet, item)
}

// PartialKey returns the prefix of pallet.item with the leading arguments applied.
func (d *Deriver) PartialKey(pallet, item string, encoded ...[]byte) (core.KeyPrefix, error) {
	e, err := d.meta.Lookup(pallet, item)
	if err != nil {
		return nil, err
	}
	if len(encoded) > e.Arity() {
		return nil, fmt.Errorf("%w: %s.%s expects at most %d args, got %d", core.ErrArityMismatch, pallet, item, e.Arity(), len(encoded))
	}
	return PartialKey(pallet, item, e.Arity(), pair(e, encoded)...)
}

// Args recovers the raw arguments of a key of pallet.item.
func (d *Deriver) Args(pallet, item string, key core.StorageKey, sizes ...int) ([][]byte, error) {
	e, err := d.meta.Lookup(pallet, item)
	if err != nil {
		return nil, err
	}
	prefix, err := KeyPrefix(pallet, item)
	if err != nil {
		return nil, err
	}
	if !key.HasPrefix(prefix) {
		return nil, fmt.Errorf("%w: key is not under %s.%s", core.ErrInvalidInput, pallet, item)
	}
	return Args(key, e.Hashers, sizes)
}

func pair(e metadata.Entry, encoded [][]byte) []Arg {
	args := make([]Arg, len(encoded))
	for i, b := range encoded {
		args[i] = Arg{Encoded: b, Hasher: e.Hashers[i]}
	}
	return args
}
