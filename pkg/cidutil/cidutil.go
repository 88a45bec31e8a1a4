package cidutil

import (
	"bytes"
	"fmt"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	_ "github.com/multiformats/go-multihash/register/blake2"
)

// Blake2b256 is the multihash code for 256-bit BLAKE2b.
const Blake2b256 = multihash.BLAKE2B_MIN + 31

// Builder defines the interface for creating and verifying CIDs of cached
// state values and snapshot indexes.
type Builder interface {
	ValueCID(value []byte) (core.CID, error)
	IndexCID(dagCbor []byte) (core.CID, error)
	Verify(c core.CID, data []byte) error
}

type builder struct{}

// NewBuilder returns a new CID builder implementation.
func NewBuilder() Builder {
	return &builder{}
}

func (b *builder) ValueCID(value []byte) (core.CID, error) {
	return b.buildCID(cid.Raw, value)
}

func (b *builder) IndexCID(dagCbor []byte) (core.CID, error) {
	return b.buildCID(cid.DagCBOR, dagCbor)
}

func (b *builder) buildCID(codec uint64, data []byte) (core.CID, error) {
	hash, err := multihash.Sum(data, Blake2b256, -1)
	if err != nil {
		return core.CID{}, fmt.Errorf("failed to compute multihash: %w", err)
	}

	c := cid.NewCidV1(codec, hash)
	return core.CID{Bytes: c.Bytes()}, nil
}

func (b *builder) Verify(c core.CID, data []byte) error {
	id, err := cid.Cast(c.Bytes)
	if err != nil {
		return fmt.Errorf("%w: invalid CID bytes: %v", core.ErrCorrupt, err)
	}

	prefix := id.Prefix()
	hash, err := multihash.Sum(data, prefix.MhType, prefix.MhLength)
	if err != nil {
		return fmt.Errorf("failed to compute multihash for verification: %w", err)
	}

	if !bytes.Equal(id.Hash(), hash) {
		return fmt.Errorf("%w: CID mismatch", core.ErrCorrupt)
	}

	return nil
}
