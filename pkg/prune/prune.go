package prune

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agenthands/statekeys/pkg/catalog"
	"github.com/agenthands/statekeys/pkg/core"
	"github.com/cockroachdb/pebble"
)

// Result contains statistics from a prune run.
type Result struct {
	EntriesScanned int
	EntriesPruned  int
	BytesReclaimed uint64
}

// Runner expires mirrored entries older than the configured age.
type Runner interface {
	RunOnce(ctx context.Context) (Result, error)
	Start(ctx context.Context)
	Stop()
}

type runner struct {
	cfg core.PruneConfig
	cat catalog.Catalog
	now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewRunner creates a new prune runner.
func NewRunner(cfg core.PruneConfig, cat catalog.Catalog) Runner {
	return newRunner(cfg, cat, time.Now)
}

func newRunner(cfg core.PruneConfig, cat catalog.Catalog, now func() time.Time) *runner {
	if cfg.RunEvery == 0 {
		cfg.RunEvery = time.Hour
	}
	return &runner{
		cfg: cfg,
		cat: cat,
		now: now,
	}
}

// RunOnce deletes every entry fetched before now-MaxAge in one batch.
// A zero MaxAge keeps everything.
func (r *runner) RunOnce(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result
	if r.cfg.MaxAge <= 0 {
		return res, nil
	}
	cutoff := r.now().Add(-r.cfg.MaxAge)

	var expired [][]byte
	err := r.cat.IteratePrefix(ctx, nil, func(key []byte, e catalog.Entry) error {
		res.EntriesScanned++
		if e.At.Before(cutoff) {
			expired = append(expired, key)
			res.BytesReclaimed += uint64(len(key) + len(e.Stored))
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("scan failed: %w", err)
	}
	if len(expired) == 0 {
		return res, nil
	}

	batch := r.cat.NewBatch()
	defer batch.Close()
	for _, key := range expired {
		if err := r.cat.DeleteEntry(batch, key); err != nil {
			return Result{}, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return Result{}, fmt.Errorf("commit failed: %w", err)
	}

	res.EntriesPruned = len(expired)
	return res, nil
}

func (r *runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running || !r.cfg.Enabled {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	stop, done := r.stopCh, r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.cfg.RunEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				_, _ = r.RunOnce(ctx)
			}
		}
	}()
}

// Stop ends the background loop and waits for an in-flight run to finish.
func (r *runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.done
	r.mu.Unlock()

	<-done
}
