package assets

import (
	"fmt"

	"stagehand/internal/events"
	"stagehand/internal/logging"

	"github.com/google/uuid"
)

// BundleID identifies one registration of a bundle request.
type BundleID string

type trackedAsset struct {
	spec   AssetSpec
	loaded bool
	failed bool
}

type trackedBundle struct {
	req      BundleRequest
	assets   []trackedAsset
	progress LoadProgress
	reported float64
	done     bool
	ready    bool
}

// Tracker computes progress and readiness for registered bundles. It is
// driven from the main tick and is not safe for concurrent use.
type Tracker struct {
	source  StatusSource
	queue   *events.Queue
	bundles map[BundleID]*trackedBundle
}

// NewTracker creates a tracker reading statuses from source and publishing
// bundle events onto queue.
func NewTracker(source StatusSource, queue *events.Queue) *Tracker {
	if queue == nil {
		queue = events.NewQueue()
	}
	return &Tracker{
		source:  source,
		queue:   queue,
		bundles: make(map[BundleID]*trackedBundle),
	}
}

// Register starts tracking req and returns its id.
func (t *Tracker) Register(req BundleRequest) BundleID {
	id := BundleID(uuid.NewString())
	b := &trackedBundle{
		req:    req,
		assets: make([]trackedAsset, len(req.Assets)),
		progress: LoadProgress{
			Total:  len(req.Assets),
			Failed: make(map[AssetRef]struct{}),
		},
		reported: -1,
	}
	for i, a := range req.Assets {
		b.assets[i] = trackedAsset{spec: a}
	}
	t.bundles[id] = b
	logging.Assets("registered bundle %s (%s) with %d assets, %d required",
		req.Tag, id, len(req.Assets), len(req.Required()))
	return id
}

// Poll reads every unsettled asset's status once and updates the bundle.
// It emits BundleProgress when the fraction rises, then at most one of
// BundleReady or BundleLoadFailed over the bundle's lifetime. Once either
// fired, further polls return the final progress without reading statuses.
func (t *Tracker) Poll(id BundleID) (LoadProgress, error) {
	b, ok := t.bundles[id]
	if !ok {
		return LoadProgress{}, fmt.Errorf("%w: %s", ErrUnknownBundle, id)
	}
	if b.done {
		return b.progress.clone(), nil
	}

	// Loaded and Failed latch, so a stale status never undoes progress.
	for i := range b.assets {
		a := &b.assets[i]
		if a.loaded || a.failed {
			continue
		}
		switch t.source.Status(a.spec.Ref) {
		case Loaded:
			a.loaded = true
			b.progress.Loaded++
		case Failed:
			a.failed = true
			b.progress.Failed[a.spec.Ref] = struct{}{}
			if !a.spec.Required {
				logging.AssetsWarn("optional asset %s of bundle %s failed", a.spec.Ref, b.req.Tag)
			}
		}
	}

	if f := b.progress.Fraction(); f > b.reported {
		b.reported = f
		t.queue.Push(events.BundleProgress{Bundle: string(id), Fraction: f})
	}

	allRequired := true
	for _, a := range b.assets {
		if !a.spec.Required {
			continue
		}
		if a.failed {
			b.done = true
			logging.AssetsError("required asset %s of bundle %s failed", a.spec.Ref, b.req.Tag)
			t.queue.Push(events.BundleLoadFailed{Bundle: string(id), Asset: string(a.spec.Ref)})
			return b.progress.clone(), nil
		}
		if !a.loaded {
			allRequired = false
		}
	}
	if allRequired {
		b.done = true
		b.ready = true
		logging.Assets("bundle %s ready (%d/%d loaded)", b.req.Tag, b.progress.Loaded, b.progress.Total)
		t.queue.Push(events.BundleReady{Bundle: string(id)})
	}
	return b.progress.clone(), nil
}

// Progress returns the last computed progress without polling.
func (t *Tracker) Progress(id BundleID) (LoadProgress, error) {
	b, ok := t.bundles[id]
	if !ok {
		return LoadProgress{}, fmt.Errorf("%w: %s", ErrUnknownBundle, id)
	}
	return b.progress.clone(), nil
}

// Ready reports whether the bundle's BundleReady has fired.
func (t *Tracker) Ready(id BundleID) bool {
	b, ok := t.bundles[id]
	return ok && b.ready
}

// Request returns the request a bundle was registered with.
func (t *Tracker) Request(id BundleID) (BundleRequest, bool) {
	b, ok := t.bundles[id]
	if !ok {
		return BundleRequest{}, false
	}
	return b.req, true
}

// Release stops tracking a bundle.
func (t *Tracker) Release(id BundleID) {
	delete(t.bundles, id)
}
