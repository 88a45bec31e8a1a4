package statecache

import (
	"context"
	"io"
	"time"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/agenthands/statekeys/pkg/prune"
	"github.com/agenthands/statekeys/pkg/storagekey"
)

type CID = core.CID
type StorageKey = core.StorageKey
type KeyPrefix = core.KeyPrefix

// Info describes a mirrored value.
type Info struct {
	Length   uint64
	At       time.Time // when the value was fetched from the node
	ValueCID CID
}

// ScanFunc receives each entry of a prefix scan in key order.
type ScanFunc = func(key StorageKey, value []byte) error

// Cache is a local, prefix-scannable mirror of remote storage values keyed
// by derived storage keys.
type Cache interface {
	Put(ctx context.Context, key StorageKey, value []byte) error
	Get(ctx context.Context, key StorageKey) ([]byte, Info, error)
	Has(ctx context.Context, key StorageKey) (bool, error)
	Delete(ctx context.Context, key StorageKey) error
	Scan(ctx context.Context, prefix KeyPrefix, fn ScanFunc) error

	// Item variants derive the key from metadata first.
	PutItem(ctx context.Context, pallet, item string, value []byte, args ...[]byte) (StorageKey, error)
	GetItem(ctx context.Context, pallet, item string, args ...[]byte) ([]byte, Info, error)
	ScanItem(ctx context.Context, pallet, item string, fn ScanFunc, leading ...[]byte) error

	Export(ctx context.Context, path string, prefix KeyPrefix) (CID, error)
	Import(ctx context.Context, r io.Reader) (int, error)
	Prune(ctx context.Context) (prune.Result, error)

	Deriver() *storagekey.Deriver
	Close() error
}
