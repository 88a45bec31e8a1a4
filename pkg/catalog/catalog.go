package catalog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/cockroachdb/pebble"
)

// PrefixEntries namespaces mirrored state entries. The storage key follows
// it unchanged so that prefix scans over storage keys map to pebble ranges.
var PrefixEntries = []byte("se:")

// Entry is one mirrored state value.
type Entry struct {
	At       time.Time
	ValueCID core.CID
	Stored   []byte // transformed value bytes
}

// Catalog defines the interface for the embedded KV store.
type Catalog interface {
	GetEntry(ctx context.Context, key []byte) (Entry, bool, error)
	PutEntry(batch *pebble.Batch, key []byte, e Entry) error
	DeleteEntry(batch *pebble.Batch, key []byte) error
	IteratePrefix(ctx context.Context, prefix []byte, fn func(key []byte, e Entry) error) error

	NewBatch() *pebble.Batch
	Close() error
}

type pebbleCatalog struct {
	db *pebble.DB
}

// Open opens a Pebble-based catalog in the specified directory.
func Open(dir string) (Catalog, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}
	return &pebbleCatalog{db: db}, nil
}

func (c *pebbleCatalog) Close() error {
	return c.db.Close()
}

func (c *pebbleCatalog) NewBatch() *pebble.Batch {
	return c.db.NewBatch()
}

func (c *pebbleCatalog) GetEntry(ctx context.Context, key []byte) (Entry, bool, error) {
	val, closer, err := c.db.Get(entryKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	defer closer.Close()

	e, err := decodeEntry(val)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (c *pebbleCatalog) PutEntry(batch *pebble.Batch, key []byte, e Entry) error {
	k := entryKey(key)
	val := encodeEntry(e)

	if batch != nil {
		return batch.Set(k, val, nil)
	}
	return c.db.Set(k, val, pebble.Sync)
}

func (c *pebbleCatalog) DeleteEntry(batch *pebble.Batch, key []byte) error {
	k := entryKey(key)
	if batch != nil {
		return batch.Delete(k, nil)
	}
	return c.db.Delete(k, pebble.Sync)
}

func (c *pebbleCatalog) IteratePrefix(ctx context.Context, prefix []byte, fn func(key []byte, e Entry) error) error {
	lower := entryKey(prefix)
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: incrementByte(lower),
	})
	if err != nil {
		return fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw := iter.Key()[len(PrefixEntries):]
		key := make([]byte, len(raw))
		copy(key, raw)

		e, err := decodeEntry(iter.Value())
		if err != nil {
			return fmt.Errorf("entry %x: %w", key, err)
		}

		if err := fn(key, e); err != nil {
			return err
		}
	}
	return iter.Error()
}

func entryKey(key []byte) []byte {
	k := make([]byte, 0, len(PrefixEntries)+len(key))
	k = append(k, PrefixEntries...)
	return append(k, key...)
}

// Value layout: at (8, BE unix seconds) | cid len (2, BE) | cid | stored.
func encodeEntry(e Entry) []byte {
	val := make([]byte, 10, 10+len(e.ValueCID.Bytes)+len(e.Stored))
	binary.BigEndian.PutUint64(val, uint64(e.At.Unix()))
	binary.BigEndian.PutUint16(val[8:], uint16(len(e.ValueCID.Bytes)))
	val = append(val, e.ValueCID.Bytes...)
	return append(val, e.Stored...)
}

func decodeEntry(val []byte) (Entry, error) {
	if len(val) < 10 {
		return Entry{}, fmt.Errorf("%w: entry too short", core.ErrCorrupt)
	}
	ts := int64(binary.BigEndian.Uint64(val))
	n := int(binary.BigEndian.Uint16(val[8:]))
	if len(val) < 10+n {
		return Entry{}, fmt.Errorf("%w: invalid CID length", core.ErrCorrupt)
	}

	// pebble owns val; copy out
	cidBytes := make([]byte, n)
	copy(cidBytes, val[10:10+n])
	stored := make([]byte, len(val)-10-n)
	copy(stored, val[10+n:])

	return Entry{
		At:       time.Unix(ts, 0),
		ValueCID: core.CID{Bytes: cidBytes},
		Stored:   stored,
	}, nil
}

func incrementByte(b []byte) []byte {
	res := make([]byte, len(b))
	copy(res, b)
	for i := len(res) - 1; i >= 0; i-- {
		res[i]++
		if res[i] != 0 {
			return res[:i+1]
		}
	}
	return nil
}
