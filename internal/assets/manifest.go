package assets

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Manifest maps bundle tags to their ordered asset lists. It is declared in
// an HCL file:
//
//	bundle "level1" {
//	  asset "textures/ground.png" {}
//	  asset "music/theme.ogg" {
//	    optional = true
//	  }
//	}
type Manifest struct {
	bundles map[string]BundleRequest
	order   []string
}

// hclManifestFile represents the top-level structure of a manifest for decoding.
type hclManifestFile struct {
	Bundles []*hclBundle `hcl:"bundle,block"`
}

type hclBundle struct {
	Tag    string      `hcl:"tag,label"`
	Assets []*hclAsset `hcl:"asset,block"`
}

type hclAsset struct {
	Ref      string `hcl:"ref,label"`
	Optional bool   `hcl:"optional,optional"`
}

// EmptyManifest returns a manifest with no bundles.
func EmptyManifest() *Manifest {
	return &Manifest{bundles: make(map[string]BundleRequest)}
}

// LoadManifest parses the manifest file at path.
func LoadManifest(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(src, path)
}

// ParseManifest parses manifest source. filename is used in diagnostics only.
func ParseManifest(src []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}

	var parsed hclManifestFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", filename, diags)
	}

	m := &Manifest{bundles: make(map[string]BundleRequest, len(parsed.Bundles))}
	for _, hb := range parsed.Bundles {
		if _, dup := m.bundles[hb.Tag]; dup {
			return nil, fmt.Errorf("manifest %s: duplicate bundle %q", filename, hb.Tag)
		}
		req := BundleRequest{Tag: hb.Tag, Assets: make([]AssetSpec, 0, len(hb.Assets))}
		for _, ha := range hb.Assets {
			req.Assets = append(req.Assets, AssetSpec{Ref: AssetRef(ha.Ref), Required: !ha.Optional})
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", filename, err)
		}
		m.bundles[hb.Tag] = req
		m.order = append(m.order, hb.Tag)
	}
	return m, nil
}

// Request returns the bundle request for tag. The returned asset slice is a copy.
func (m *Manifest) Request(tag string) (BundleRequest, error) {
	req, ok := m.bundles[tag]
	if !ok {
		return BundleRequest{}, fmt.Errorf("%w: tag %q", ErrUnknownBundle, tag)
	}
	out := BundleRequest{Tag: req.Tag, Assets: make([]AssetSpec, len(req.Assets))}
	copy(out.Assets, req.Assets)
	return out, nil
}

// Tags returns bundle tags in declaration order.
func (m *Manifest) Tags() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// SortedTags returns bundle tags alphabetically.
func (m *Manifest) SortedTags() []string {
	out := m.Tags()
	sort.Strings(out)
	return out
}

// Len returns the number of bundles.
func (m *Manifest) Len() int { return len(m.order) }
