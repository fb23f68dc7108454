package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTheme(t *testing.T) {
	tests := []struct {
		name     string
		override string
		colorfg  string
		wantDark bool
	}{
		{"override dark", "1", "0;15", true},
		{"override light", "0", "15;0", false},
		{"dark terminal background", "", "15;0", true},
		{"light terminal background", "", "0;15", false},
		{"rxvt three field form", "", "15;default;0", true},
		{"unset", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STAGEHAND_DARK_MODE", tt.override)
			t.Setenv("COLORFGBG", tt.colorfg)
			assert.Equal(t, tt.wantDark, DetectTheme().IsDark)
		})
	}
}

func TestNewStylesCarriesTheme(t *testing.T) {
	s := NewStyles(DarkTheme)
	assert.True(t, s.Theme.IsDark)
	assert.Contains(t, Logo(s), "|___/")
}
