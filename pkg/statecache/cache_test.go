package statecache_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agenthands/statekeys/internal/testkit"
	"github.com/agenthands/statekeys/pkg/catalog"
	"github.com/agenthands/statekeys/pkg/scale"
	"github.com/agenthands/statekeys/pkg/statecache"
	"github.com/agenthands/statekeys/pkg/storagekey"
)

func openCache(t *testing.T, cfg statecache.Config) statecache.Cache {
	t.Helper()
	if cfg.Dir == "" {
		dir, err := os.MkdirTemp("", "statekeys-cache-test")
		if err != nil {
			t.Fatalf("failed to create temp dir: %v", err)
		}
		t.Cleanup(func() { os.RemoveAll(dir) })
		cfg.Dir = dir
	}

	c, err := statecache.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func accounts(t *testing.T, n int) [][]byte {
	t.Helper()
	r := testkit.RNG(77)
	out := make([][]byte, n)
	for i := range out {
		out[i] = testkit.RandomBytes(r, scale.AccountIDLen)
	}
	return out
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := openCache(t, statecache.Config{
		Transform: statecache.TransformConfig{Name: "zstd", ZstdLevel: 3},
	})

	key, err := storagekey.StorageKey("Timestamp", "Now", 0)
	if err != nil {
		t.Fatalf("StorageKey failed: %v", err)
	}
	value := scale.U64(1_700_000_000_000)

	t.Run("RoundTrip", func(t *testing.T) {
		if err := c.Put(ctx, key, value); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, info, err := c.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, value) {
			t.Errorf("expected %x, got %x", value, got)
		}
		if info.Length != uint64(len(value)) || len(info.ValueCID.Bytes) == 0 || info.At.IsZero() {
			t.Errorf("unexpected info %+v", info)
		}

		ok, err := c.Has(ctx, key)
		if err != nil || !ok {
			t.Errorf("Has = %v, %v", ok, err)
		}
	})

	t.Run("LargeValue", func(t *testing.T) {
		big := testkit.CompressibleBytes(testkit.RNG(4), 32*1024)
		events, _ := storagekey.StorageKey("System", "Events", 0)
		if err := c.Put(ctx, events, big); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, _, err := c.Get(ctx, events)
		if err != nil || !bytes.Equal(got, big) {
			t.Errorf("large value roundtrip failed: %v", err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		number, _ := storagekey.StorageKey("System", "Number", 0)
		if _, _, err := c.Get(ctx, number); !errors.Is(err, statecache.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := c.Delete(ctx, key); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if ok, _ := c.Has(ctx, key); ok {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("EmptyKey", func(t *testing.T) {
		if err := c.Put(ctx, nil, value); !errors.Is(err, statecache.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestCache_Items(t *testing.T) {
	ctx := context.Background()
	c := openCache(t, statecache.Config{})
	ids := accounts(t, 5)

	for i, id := range ids {
		if _, err := c.PutItem(ctx, "System", "Account", scale.U32(uint32(i)), id); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
	}
	if _, err := c.PutItem(ctx, "Balances", "TotalIssuance", []byte{1}); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}
	for era := uint32(0); era < 3; era++ {
		for _, id := range ids[:2] {
			if _, err := c.PutItem(ctx, "Staking", "ErasStakers", []byte{byte(era)}, scale.U32(era), id); err != nil {
				t.Fatalf("PutItem failed: %v", err)
			}
		}
	}

	t.Run("GetItem", func(t *testing.T) {
		got, _, err := c.GetItem(ctx, "System", "Account", ids[3])
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if !bytes.Equal(got, scale.U32(3)) {
			t.Errorf("unexpected value %x", got)
		}
	})

	t.Run("ScanMap", func(t *testing.T) {
		seen := make(map[string]bool)
		err := c.ScanItem(ctx, "System", "Account", func(key statecache.StorageKey, value []byte) error {
			args, err := c.Deriver().Args("System", "Account", key, -1)
			if err != nil {
				return err
			}
			seen[string(args[0])] = true
			return nil
		})
		if err != nil {
			t.Fatalf("ScanItem failed: %v", err)
		}
		if len(seen) != len(ids) {
			t.Fatalf("expected %d accounts, got %d", len(ids), len(seen))
		}
		for _, id := range ids {
			if !seen[string(id)] {
				t.Errorf("account %x missing from scan", id)
			}
		}
	})

	t.Run("ScanDoubleMapByFirstKey", func(t *testing.T) {
		var n int
		err := c.ScanItem(ctx, "Staking", "ErasStakers", func(key statecache.StorageKey, value []byte) error {
			if !bytes.Equal(value, []byte{1}) {
				t.Errorf("entry from wrong era: %x", value)
			}
			n++
			return nil
		}, scale.U32(1))
		if err != nil {
			t.Fatalf("ScanItem failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 entries in era 1, got %d", n)
		}

		prefix, _ := storagekey.KeyPrefix("Staking", "ErasStakers")
		total, err := testkit.CountEntries(ctx, c, prefix)
		if err != nil || total != 6 {
			t.Errorf("expected 6 entries in total, got %d (%v)", total, err)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		if _, err := c.PutItem(ctx, "System", "Account", []byte{0}); !errors.Is(err, statecache.ErrArityMismatch) {
			t.Errorf("expected ErrArityMismatch, got %v", err)
		}
		if _, _, err := c.GetItem(ctx, "system", "account", ids[0]); !errors.Is(err, statecache.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCache_Limits(t *testing.T) {
	c := openCache(t, statecache.Config{
		Limits: statecache.LimitsConfig{MaxValueBytes: 16},
	})
	key, _ := storagekey.StorageKey("Sudo", "Key", 0)

	if err := c.Put(context.Background(), key, make([]byte, 17)); !errors.Is(err, statecache.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if err := c.Put(context.Background(), key, make([]byte, 16)); err != nil {
		t.Errorf("Put at the limit failed: %v", err)
	}
}

func TestCache_Closed(t *testing.T) {
	c := openCache(t, statecache.Config{})
	key, _ := storagekey.StorageKey("Sudo", "Key", 0)

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if err := c.Put(context.Background(), key, []byte{1}); !errors.Is(err, statecache.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, _, err := c.Get(context.Background(), key); !errors.Is(err, statecache.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestCache_Corruption(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "statekeys-cache-corrupt")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg := statecache.Config{Dir: dir}
	c, err := statecache.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	key, _ := storagekey.StorageKey("Sudo", "Key", 0)
	if err := c.Put(ctx, key, []byte("root account")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	c.Close()

	cat, err := catalog.Open(filepath.Join(dir, "catalog"))
	if err != nil {
		t.Fatalf("catalog.Open failed: %v", err)
	}
	e, ok, err := cat.GetEntry(ctx, key)
	if err != nil || !ok {
		t.Fatalf("GetEntry = %v, %v", ok, err)
	}
	e.Stored = testkit.CorruptByte(e.Stored)
	if err := cat.PutEntry(nil, key, e); err != nil {
		t.Fatalf("PutEntry failed: %v", err)
	}
	cat.Close()

	c, err = statecache.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Get(ctx, key); !errors.Is(err, statecache.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
	err = c.Scan(ctx, nil, func(statecache.StorageKey, []byte) error { return nil })
	if !errors.Is(err, statecache.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt from scan, got %v", err)
	}
}

func TestCache_OpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := statecache.Open(ctx, statecache.Config{}); !errors.Is(err, statecache.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	dir, _ := os.MkdirTemp("", "statekeys-cache-open")
	defer os.RemoveAll(dir)

	_, err := statecache.Open(ctx, statecache.Config{Dir: dir, Transform: statecache.TransformConfig{Name: "brotli"}})
	if !errors.Is(err, statecache.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown transform, got %v", err)
	}

	_, err = statecache.Open(ctx, statecache.Config{Dir: dir, Metadata: statecache.MetadataConfig{Path: filepath.Join(dir, "missing.cbor")}})
	if err == nil {
		t.Error("expected error for missing metadata file")
	}
}

func TestCache_Prune(t *testing.T) {
	ctx := context.Background()
	c := openCache(t, statecache.Config{
		Prune: statecache.PruneConfig{MaxAge: time.Hour},
	})
	key, _ := storagekey.StorageKey("Sudo", "Key", 0)
	_ = c.Put(ctx, key, []byte{1})

	res, err := c.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if res.EntriesPruned != 0 || res.EntriesScanned != 1 {
		t.Errorf("fresh entries should survive: %+v", res)
	}
}

func TestCache_ScanStopsOnError(t *testing.T) {
	ctx := context.Background()
	c := openCache(t, statecache.Config{})
	for i, id := range accounts(t, 4) {
		if _, err := c.PutItem(ctx, "System", "Account", scale.U32(uint32(i)), id); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
	}

	fn := testkit.FailAfter[statecache.StorageKey, []byte](2, nil)
	if err := c.ScanItem(ctx, "System", "Account", fn); !errors.Is(err, testkit.ErrInjectedFault) {
		t.Errorf("expected callback error to stop the scan, got %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := c.ScanItem(canceled, "System", "Account", func(statecache.StorageKey, []byte) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCache_TransformFixedPerDir(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "statekeys-cache-transform")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	key, _ := storagekey.StorageKey("System", "Events", 0)
	value := testkit.CompressibleBytes(testkit.RNG(5), 4096)

	c, err := statecache.Open(ctx, statecache.Config{Dir: dir, Transform: statecache.TransformConfig{Name: "zstd"}})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := c.Put(ctx, key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	c.Close()

	c, err = statecache.Open(ctx, statecache.Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Get(ctx, key); !errors.Is(err, statecache.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt after switching transform, got %v", err)
	}
}
