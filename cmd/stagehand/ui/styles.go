// Package ui provides the terminal front end for stagehand: one screen per
// lifecycle phase, the settings overlay and the fade cover.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the stage lighting: house colours plus the footlight accent.
type Theme struct {
	Ink     lipgloss.Color // body text
	Curtain lipgloss.Color // header band and titles
	Spot    lipgloss.Color // selection, spinner, badges
	Dim     lipgloss.Color // hints and footers
	Frame   lipgloss.Color // panel border
	Board   lipgloss.Color // panel fill
	Alarm   lipgloss.Color // warnings and skipped assets
	IsDark  bool
}

// Themes for light and dark terminals.
var (
	LightTheme = Theme{
		Ink:     "#1b1f2a",
		Curtain: "#3b2f6b",
		Spot:    "#b7791f",
		Dim:     "#8a8f99",
		Frame:   "#d2d6dd",
		Board:   "#ffffff",
		Alarm:   "#c62828",
	}
	DarkTheme = Theme{
		Ink:     "#ecebf2",
		Curtain: "#e0a526",
		Spot:    "#9b8cf0",
		Dim:     "#5c5870",
		Frame:   "#2f2b40",
		Board:   "#1c1928",
		Alarm:   "#ffb300",
		IsDark:  true,
	}
)

// DetectTheme reads STAGEHAND_DARK_MODE ("1" or "0"), then the terminal's
// COLORFGBG background index.
func DetectTheme() Theme {
	switch os.Getenv("STAGEHAND_DARK_MODE") {
	case "1":
		return DarkTheme
	case "0":
		return LightTheme
	}
	fields := strings.Split(os.Getenv("COLORFGBG"), ";")
	bg, err := strconv.Atoi(fields[len(fields)-1])
	if err == nil && (bg <= 6 || bg == 8) {
		return DarkTheme
	}
	return LightTheme
}

// Styles are the rendered pieces of every screen.
type Styles struct {
	Theme Theme

	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Panel   lipgloss.Style

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Warning  lipgloss.Style

	Spinner lipgloss.Style
	Badge   lipgloss.Style
	Faded   lipgloss.Style // screen under a half-closed fade
}

// NewStyles builds the styles for theme.
func NewStyles(theme Theme) Styles {
	text := lipgloss.NewStyle().Foreground(theme.Ink)
	dim := lipgloss.NewStyle().Foreground(theme.Dim)
	spot := lipgloss.NewStyle().Foreground(theme.Spot)

	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Curtain).
			Foreground(theme.Board).
			Bold(true).
			Padding(0, 2),
		Footer:  dim.Padding(0, 2),
		Content: lipgloss.NewStyle().Padding(1, 2),
		Panel: text.
			Background(theme.Board).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(1, 2),

		Title:    lipgloss.NewStyle().Foreground(theme.Curtain).Bold(true).MarginBottom(1),
		Subtitle: dim.Italic(true),
		Body:     text,
		Muted:    dim,
		Selected: spot.Bold(true),
		Warning:  lipgloss.NewStyle().Foreground(theme.Alarm).Bold(true),

		Spinner: spot,
		Badge:   lipgloss.NewStyle().Background(theme.Spot).Foreground(theme.Board).Bold(true).Padding(0, 1),
		Faded:   lipgloss.NewStyle().Faint(true),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// Logo returns the splash banner.
func Logo(s Styles) string {
	logo := `
  ___ _                   _                 _
 / __| |_ __ _ __ _ ___  | |_  __ _ _ _  __| |
 \__ \  _/ _` + "`" + ` / _` + "`" + ` / -_) | ' \/ _` + "`" + ` | ' \/ _` + "`" + ` |
 |___/\__\__,_\__, \___| |_||_\__,_|_||_\__,_|
              |___/
`
	return s.Title.Render(logo)
}
