package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agenthands/statekeys/pkg/cidutil"
	"github.com/agenthands/statekeys/pkg/core"
	"github.com/fxamacker/cbor/v2"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	carv2 "github.com/ipld/go-car/v2"
	"github.com/ipld/go-car/v2/blockstore"
)

// Entry is one state value carried by a snapshot.
type Entry struct {
	Key   core.StorageKey
	Value []byte
	At    time.Time
}

// IndexV1 is the root block of a snapshot archive.
type IndexV1 struct {
	Version uint16       `cbor:"version"`
	Entries []IndexEntry `cbor:"entries"`
}

// IndexEntry maps a storage key to the CID of its value block.
type IndexEntry struct {
	Key []byte `cbor:"key"`
	CID []byte `cbor:"cid"`
	At  int64  `cbor:"at"`
}

var encMode, _ = cbor.CanonicalEncOptions().EncMode()

// Write stores entries in a new CARv2 file at path. The root is a DAG-CBOR
// index; every value is a raw block. Equal values share one block.
func Write(ctx context.Context, path string, entries []Entry) (core.CID, error) {
	if _, err := os.Stat(path); err == nil {
		return core.CID{}, fmt.Errorf("%w: snapshot %s already exists", core.ErrInvalidInput, path)
	}

	cids := cidutil.NewBuilder()
	idx := IndexV1{Version: 1, Entries: make([]IndexEntry, 0, len(entries))}
	valueBlocks := make([]blocks.Block, 0, len(entries))

	for _, e := range entries {
		vc, err := cids.ValueCID(e.Value)
		if err != nil {
			return core.CID{}, err
		}
		id, err := cid.Cast(vc.Bytes)
		if err != nil {
			return core.CID{}, err
		}
		blk, err := blocks.NewBlockWithCid(e.Value, id)
		if err != nil {
			return core.CID{}, err
		}
		valueBlocks = append(valueBlocks, blk)
		idx.Entries = append(idx.Entries, IndexEntry{Key: e.Key, CID: vc.Bytes, At: e.At.Unix()})
	}

	idxBytes, err := encMode.Marshal(&idx)
	if err != nil {
		return core.CID{}, fmt.Errorf("failed to encode snapshot index: %w", err)
	}
	rc, err := cids.IndexCID(idxBytes)
	if err != nil {
		return core.CID{}, err
	}
	root, err := cid.Cast(rc.Bytes)
	if err != nil {
		return core.CID{}, err
	}
	rootBlk, err := blocks.NewBlockWithCid(idxBytes, root)
	if err != nil {
		return core.CID{}, err
	}

	bs, err := blockstore.OpenReadWrite(path, []cid.Cid{root})
	if err != nil {
		return core.CID{}, fmt.Errorf("failed to create snapshot: %w", err)
	}

	if err := bs.Put(ctx, rootBlk); err != nil {
		bs.Discard()
		return core.CID{}, err
	}
	for _, blk := range valueBlocks {
		if ctx.Err() != nil {
			bs.Discard()
			return core.CID{}, ctx.Err()
		}
		if err := bs.Put(ctx, blk); err != nil {
			bs.Discard()
			return core.CID{}, err
		}
	}

	if err := bs.Finalize(); err != nil {
		return core.CID{}, fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return rc, nil
}

// Read streams a snapshot archive from r, verifies every block against its
// CID and calls fn for each indexed entry in index order.
func Read(ctx context.Context, r io.Reader, fn func(Entry) error) error {
	br, err := carv2.NewBlockReader(r)
	if err != nil {
		return fmt.Errorf("%w: failed to read snapshot header: %v", core.ErrCorrupt, err)
	}
	if len(br.Roots) != 1 {
		return fmt.Errorf("%w: expected one root, got %d", core.ErrCorrupt, len(br.Roots))
	}

	cids := cidutil.NewBuilder()
	data := make(map[string][]byte)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		blk, err := br.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: failed to read block: %v", core.ErrCorrupt, err)
		}

		c := core.CID{Bytes: blk.Cid().Bytes()}
		if err := cids.Verify(c, blk.RawData()); err != nil {
			return err
		}
		data[blk.Cid().KeyString()] = blk.RawData()
	}

	idxBytes, ok := data[br.Roots[0].KeyString()]
	if !ok {
		return fmt.Errorf("%w: root block missing", core.ErrCorrupt)
	}
	var idx IndexV1
	if err := cbor.Unmarshal(idxBytes, &idx); err != nil {
		return fmt.Errorf("%w: failed to decode snapshot index: %v", core.ErrCorrupt, err)
	}
	if idx.Version != 1 {
		return fmt.Errorf("%w: unsupported snapshot version %d", core.ErrCorrupt, idx.Version)
	}

	for _, ie := range idx.Entries {
		id, err := cid.Cast(ie.CID)
		if err != nil {
			return fmt.Errorf("%w: invalid value CID: %v", core.ErrCorrupt, err)
		}
		value, ok := data[id.KeyString()]
		if !ok {
			return fmt.Errorf("%w: value block %s missing", core.ErrCorrupt, id)
		}
		e := Entry{Key: core.StorageKey(ie.Key), Value: value, At: time.Unix(ie.At, 0)}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}
