package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
bundle "menu" {
  asset "ui/logo.png" {}
}

bundle "level1" {
  asset "tex/ground.png" {}
  asset "music/theme.ogg" {
    optional = true
  }
  asset "mesh/hero.obj" {
    optional = false
  }
}
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest), "assets.hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "level1"}, m.Tags())
	assert.Equal(t, []string{"level1", "menu"}, m.SortedTags())

	req, err := m.Request("level1")
	require.NoError(t, err)
	want := BundleRequest{Tag: "level1", Assets: []AssetSpec{
		{Ref: "tex/ground.png", Required: true},
		{Ref: "music/theme.ogg", Required: false},
		{Ref: "mesh/hero.obj", Required: true},
	}}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []AssetRef{"tex/ground.png", "mesh/hero.obj"}, req.Required())

	// Mutating the returned request must not affect the manifest.
	req.Assets[0].Required = false
	again, _ := m.Request("level1")
	assert.True(t, again.Assets[0].Required)
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `bundle "a" {`},
		{"duplicate bundle", "bundle \"a\" {}\nbundle \"a\" {}\n"},
		{"duplicate asset", "bundle \"a\" {\n  asset \"x\" {}\n  asset \"x\" {}\n}\n"},
		{"unknown attribute", "bundle \"a\" {\n  asset \"x\" {\n    weight = 3\n  }\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.src), "bad.hcl")
			assert.Error(t, err)
		})
	}
}

func TestManifestUnknownTag(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest), "assets.hcl")
	require.NoError(t, err)
	_, err = m.Request("credits")
	assert.ErrorIs(t, err, ErrUnknownBundle)
}

func TestLoadManifestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0644))
	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
