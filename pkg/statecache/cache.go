package statecache

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/agenthands/statekeys/pkg/catalog"
	"github.com/agenthands/statekeys/pkg/cidutil"
	"github.com/agenthands/statekeys/pkg/core"
	"github.com/agenthands/statekeys/pkg/metadata"
	"github.com/agenthands/statekeys/pkg/prune"
	"github.com/agenthands/statekeys/pkg/snapshot"
	"github.com/agenthands/statekeys/pkg/storagekey"
	"github.com/agenthands/statekeys/pkg/transform"
	"github.com/cockroachdb/pebble"
)

type cache struct {
	cfg Config

	catalog   catalog.Catalog
	cidHub    cidutil.Builder
	transform transform.Transform
	deriver   *storagekey.Deriver
	pruner    prune.Runner
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open initializes and opens a state cache.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	if cfg.Catalog.Dir == "" {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("%w: cache directory not specified", core.ErrInvalidInput)
		}
		cfg.Catalog.Dir = filepath.Join(cfg.Dir, "catalog")
	}

	reg, err := metadata.FromConfig(cfg.Metadata, cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	tr, err := transform.New(cfg.Transform)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	c := &cache{
		cfg:       cfg,
		catalog:   cat,
		cidHub:    cidutil.NewBuilder(),
		transform: tr,
		deriver:   storagekey.NewDeriver(reg),
		pruner:    prune.NewRunner(cfg.Prune, cat),
		now:       time.Now,
	}
	c.pruner.Start(ctx)

	return c, nil
}

func (c *cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.pruner.Stop()
	return c.catalog.Close()
}

func (c *cache) Deriver() *storagekey.Deriver { return c.deriver }

// guard takes the read lock and fails once the cache is closed.
func (c *cache) guard() (func(), error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, core.ErrClosed
	}
	return c.mu.RUnlock, nil
}

func (c *cache) Put(ctx context.Context, key StorageKey, value []byte) error {
	release, err := c.guard()
	if err != nil {
		return err
	}
	defer release()

	return c.put(nil, key, value, c.now())
}

func (c *cache) put(batch *pebble.Batch, key StorageKey, value []byte, at time.Time) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", core.ErrInvalidInput)
	}
	if limit := c.cfg.Limits.MaxValueBytes; limit > 0 && uint64(len(value)) > limit {
		return fmt.Errorf("%w: value of %d bytes exceeds %d", core.ErrTooLarge, len(value), limit)
	}

	vc, err := c.cidHub.ValueCID(value)
	if err != nil {
		return err
	}
	stored, err := c.transform.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	return c.catalog.PutEntry(batch, key, catalog.Entry{At: at, ValueCID: vc, Stored: stored})
}

func (c *cache) Get(ctx context.Context, key StorageKey) ([]byte, Info, error) {
	release, err := c.guard()
	if err != nil {
		return nil, Info{}, err
	}
	defer release()

	e, ok, err := c.catalog.GetEntry(ctx, key)
	if err != nil {
		return nil, Info{}, err
	}
	if !ok {
		return nil, Info{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}

	value, err := c.open(e)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%s: %w", key, err)
	}
	return value, Info{Length: uint64(len(value)), At: e.At, ValueCID: e.ValueCID}, nil
}

// open decodes a stored entry and checks it against its CID.
func (c *cache) open(e catalog.Entry) ([]byte, error) {
	value, err := c.transform.Decode(e.Stored)
	if err != nil {
		return nil, err
	}
	if err := c.cidHub.Verify(e.ValueCID, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (c *cache) Has(ctx context.Context, key StorageKey) (bool, error) {
	release, err := c.guard()
	if err != nil {
		return false, err
	}
	defer release()

	_, ok, err := c.catalog.GetEntry(ctx, key)
	return ok, err
}

func (c *cache) Delete(ctx context.Context, key StorageKey) error {
	release, err := c.guard()
	if err != nil {
		return err
	}
	defer release()

	return c.catalog.DeleteEntry(nil, key)
}

func (c *cache) Scan(ctx context.Context, prefix KeyPrefix, fn ScanFunc) error {
	release, err := c.guard()
	if err != nil {
		return err
	}
	defer release()

	return c.scan(ctx, prefix, fn)
}

func (c *cache) scan(ctx context.Context, prefix KeyPrefix, fn ScanFunc) error {
	return c.catalog.IteratePrefix(ctx, prefix, func(key []byte, e catalog.Entry) error {
		value, err := c.open(e)
		if err != nil {
			return fmt.Errorf("%s: %w", StorageKey(key), err)
		}
		return fn(StorageKey(key), value)
	})
}

func (c *cache) PutItem(ctx context.Context, pallet, item string, value []byte, args ...[]byte) (StorageKey, error) {
	key, err := c.deriver.Key(pallet, item, args...)
	if err != nil {
		return nil, err
	}
	if err := c.Put(ctx, key, value); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *cache) GetItem(ctx context.Context, pallet, item string, args ...[]byte) ([]byte, Info, error) {
	key, err := c.deriver.Key(pallet, item, args...)
	if err != nil {
		return nil, Info{}, err
	}
	return c.Get(ctx, key)
}

func (c *cache) ScanItem(ctx context.Context, pallet, item string, fn ScanFunc, leading ...[]byte) error {
	prefix, err := c.deriver.PartialKey(pallet, item, leading...)
	if err != nil {
		return err
	}
	return c.Scan(ctx, prefix, fn)
}

// Export writes every entry under prefix to a new snapshot archive.
func (c *cache) Export(ctx context.Context, path string, prefix KeyPrefix) (CID, error) {
	release, err := c.guard()
	if err != nil {
		return CID{}, err
	}
	defer release()

	var entries []snapshot.Entry
	err = c.catalog.IteratePrefix(ctx, prefix, func(key []byte, e catalog.Entry) error {
		value, err := c.open(e)
		if err != nil {
			return fmt.Errorf("%s: %w", StorageKey(key), err)
		}
		entries = append(entries, snapshot.Entry{Key: StorageKey(key), Value: value, At: e.At})
		return nil
	})
	if err != nil {
		return CID{}, err
	}

	return snapshot.Write(ctx, path, entries)
}

// Import loads a snapshot archive. Entries are committed in a single batch,
// so a failed import leaves the cache unchanged.
func (c *cache) Import(ctx context.Context, r io.Reader) (int, error) {
	release, err := c.guard()
	if err != nil {
		return 0, err
	}
	defer release()

	batch := c.catalog.NewBatch()
	defer batch.Close()

	var n int
	err = snapshot.Read(ctx, r, func(e snapshot.Entry) error {
		if err := c.put(batch, e.Key, e.Value, e.At); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return n, nil
}

func (c *cache) Prune(ctx context.Context) (prune.Result, error) {
	release, err := c.guard()
	if err != nil {
		return prune.Result{}, err
	}
	defer release()

	return c.pruner.RunOnce(ctx)
}
