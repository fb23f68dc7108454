package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stagehand/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves one asset. It may block; it only ever runs on loader workers.
type Fetcher interface {
	Fetch(ctx context.Context, ref AssetRef) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref AssetRef) error

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, ref AssetRef) error { return f(ctx, ref) }

// DirFetcher reads assets from a directory tree and keeps their sizes.
type DirFetcher struct {
	Root string

	mu    sync.Mutex
	sizes map[AssetRef]int
}

// Fetch reads Root/ref fully. References may not escape Root.
func (d *DirFetcher) Fetch(ctx context.Context, ref AssetRef) error {
	if !filepath.IsLocal(string(ref)) {
		return fmt.Errorf("asset %q escapes asset root", ref)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(string(ref))))
	if err != nil {
		return fmt.Errorf("failed to read asset %s: %w", ref, err)
	}
	d.mu.Lock()
	if d.sizes == nil {
		d.sizes = make(map[AssetRef]int)
	}
	d.sizes[ref] = len(data)
	d.mu.Unlock()
	return nil
}

// Size returns the byte size of a fetched asset.
func (d *DirFetcher) Size(ref AssetRef) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.sizes[ref]
	return n, ok
}

// Loader retrieves bundle assets on a bounded pool of background workers and
// exposes their statuses to the Tracker. Every batch carries an epoch;
// results reported by a batch that has since been cancelled are dropped.
type Loader struct {
	fetcher Fetcher
	workers int

	mu       sync.RWMutex
	statuses map[AssetRef]Status
	epoch    uint64

	batchMu sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewLoader creates a loader running at most workers fetches at once.
func NewLoader(fetcher Fetcher, workers int) *Loader {
	if workers <= 0 {
		workers = 4
	}
	return &Loader{
		fetcher:  fetcher,
		workers:  workers,
		statuses: make(map[AssetRef]Status),
	}
}

// Status implements StatusSource. It never blocks on I/O.
func (l *Loader) Status(ref AssetRef) Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statuses[ref]
}

// report records s for ref unless the batch of epoch was superseded.
func (l *Loader) report(epoch uint64, ref AssetRef, s Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.epoch != epoch {
		return false
	}
	l.statuses[ref] = s
	return true
}

// Start begins retrieving every asset of req and returns immediately. A batch
// that is still running is cancelled first without waiting for it. Assets
// already Loaded are skipped.
func (l *Loader) Start(ctx context.Context, req BundleRequest) {
	l.Cancel()

	batchCtx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.epoch++
	epoch := l.epoch
	var todo []AssetRef
	for _, a := range req.Assets {
		if l.statuses[a.Ref] == Loaded {
			continue
		}
		l.statuses[a.Ref] = Loading
		todo = append(todo, a.Ref)
	}
	l.mu.Unlock()

	l.batchMu.Lock()
	l.cancel = cancel
	l.batchMu.Unlock()

	l.running.Add(1)
	go func() {
		defer l.running.Done()
		defer cancel()
		g, gctx := errgroup.WithContext(batchCtx)
		g.SetLimit(l.workers)
		for _, ref := range todo {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				err := l.fetcher.Fetch(gctx, ref)
				switch {
				case err == nil:
					l.report(epoch, ref, Loaded)
				case errors.Is(err, context.Canceled):
					l.report(epoch, ref, NotLoaded)
				default:
					if l.report(epoch, ref, Failed) {
						logging.AssetsWarn("fetch %s failed: %v", ref, err)
					}
				}
				// Failures are recorded per asset; the batch keeps going.
				return nil
			})
		}
		_ = g.Wait()
		logging.AssetsDebug("loader batch for %s finished", req.Tag)
	}()
}

// Cancel stops the running batch, if any, and returns without waiting for
// its workers. Assets it left in Loading go back to NotLoaded, and anything
// its workers report afterwards is ignored.
func (l *Loader) Cancel() {
	l.batchMu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.batchMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	l.mu.Lock()
	l.epoch++
	for ref, s := range l.statuses {
		if s == Loading {
			l.statuses[ref] = NotLoaded
		}
	}
	l.mu.Unlock()
}

// Wait blocks until every batch, cancelled ones included, has finished.
// Intended for tests, tooling and shutdown, never for the frame loop.
func (l *Loader) Wait() {
	l.running.Wait()
}

// Forget resets every asset of req to NotLoaded so a retry fetches again.
func (l *Loader) Forget(req BundleRequest) {
	l.mu.Lock()
	for _, a := range req.Assets {
		delete(l.statuses, a.Ref)
	}
	l.mu.Unlock()
}
