package assets

import "sort"

// LoadProgress is the accounting of one bundle. Loaded never exceeds Total.
type LoadProgress struct {
	Loaded int
	Total  int
	Failed map[AssetRef]struct{}
}

// Fraction is Loaded/Total; an empty bundle is complete.
func (p LoadProgress) Fraction() float64 {
	if p.Total == 0 {
		return 1.0
	}
	return float64(p.Loaded) / float64(p.Total)
}

// FailedRefs returns the failed references sorted.
func (p LoadProgress) FailedRefs() []AssetRef {
	out := make([]AssetRef, 0, len(p.Failed))
	for ref := range p.Failed {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p LoadProgress) clone() LoadProgress {
	c := p
	c.Failed = make(map[AssetRef]struct{}, len(p.Failed))
	for ref := range p.Failed {
		c.Failed[ref] = struct{}{}
	}
	return c
}
