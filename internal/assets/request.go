// Package assets tracks named bundles of external resources: which were
// requested, what state each is in, and when a bundle is ready to play.
//
// Retrieval runs on background workers (Loader). The Tracker only reads the
// status flags those workers already computed, so Poll never blocks a frame.
package assets

import (
	"errors"
	"fmt"
)

// ErrUnknownBundle is returned for bundle ids or tags that were never registered.
var ErrUnknownBundle = errors.New("unknown bundle")

// AssetRef names one external resource, relative to the asset root.
type AssetRef string

// AssetSpec is one entry of a bundle.
type AssetSpec struct {
	Ref      AssetRef
	Required bool
}

// BundleRequest is an ordered list of assets loaded together as a unit.
type BundleRequest struct {
	Tag    string
	Assets []AssetSpec
}

// Required returns the required asset references in request order.
func (r BundleRequest) Required() []AssetRef {
	var out []AssetRef
	for _, a := range r.Assets {
		if a.Required {
			out = append(out, a.Ref)
		}
	}
	return out
}

// Validate checks the request for empty or duplicate references.
func (r BundleRequest) Validate() error {
	if r.Tag == "" {
		return fmt.Errorf("bundle tag is empty")
	}
	seen := make(map[AssetRef]bool, len(r.Assets))
	for i, a := range r.Assets {
		if a.Ref == "" {
			return fmt.Errorf("bundle %s: asset %d has an empty reference", r.Tag, i)
		}
		if seen[a.Ref] {
			return fmt.Errorf("bundle %s: duplicate asset %q", r.Tag, a.Ref)
		}
		seen[a.Ref] = true
	}
	return nil
}

// Status is the load state of a single asset.
type Status int

const (
	NotLoaded Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case NotLoaded:
		return "NotLoaded"
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StatusSource reports already-computed asset statuses. Implementations must
// not block.
type StatusSource interface {
	Status(ref AssetRef) Status
}
