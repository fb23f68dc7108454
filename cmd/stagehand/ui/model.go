package ui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"stagehand/internal/app"
	"stagehand/internal/fade"
	"stagehand/internal/lifecycle"
	"stagehand/internal/logging"
	"stagehand/internal/settings"
)

// maxFrameDelta caps dt after a stall (terminal suspended, debugger) so
// timers do not jump past whole phases.
const maxFrameDelta = 250 * time.Millisecond

type tickMsg time.Time

// Model is the bubbletea model driving a Runtime, one Tick per frame.
type Model struct {
	rt     *app.Runtime
	styles Styles
	keys   keyMap
	help   help.Model

	spinner  spinner.Model
	progress progress.Model
	markdown *glamour.TermRenderer

	frame time.Duration
	last  time.Time

	width, height int
	menuIdx       int
	recoveryIdx   int
	settingsIdx   int
	focusSettings bool
	note          string

	errRendered string
	errFor      string
}

// New creates a model ticking rt every frame.
func New(rt *app.Runtime, frame time.Duration) Model {
	if frame <= 0 {
		frame = time.Second / 60
	}
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := Model{
		rt:       rt,
		styles:   styles,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		frame:    frame,
		width:    80,
		height:   24,
	}
	m.markdown = newMarkdown(styles.Theme, m.width)
	return m
}

func newMarkdown(theme Theme, width int) *glamour.TermRenderer {
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-8, 20)),
	)
	if err != nil {
		logging.Get(logging.CategoryUI).Warn("markdown renderer unavailable: %v", err)
		return nil
	}
	return r
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the frame loop and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.spinner.Tick)
}

// Update handles frames, keys and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		now := time.Time(msg)
		dt := m.frame
		if !m.last.IsZero() {
			dt = min(now.Sub(m.last), maxFrameDelta)
		}
		m.last = now
		m.rt.Tick(dt)
		m.renderFailure()
		if m.rt.ExitRequested() {
			return m, tea.Quit
		}
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = min(max(msg.Width-12, 10), 60)
		m.help.Width = msg.Width
		m.markdown = newMarkdown(m.styles.Theme, msg.Width)
		m.errFor, m.errRendered = "", ""
		m.renderFailure()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQ) {
		m.rt.Exit()
		return m, tea.Quit
	}
	m.note = ""

	var err error
	switch m.rt.Phase() {
	case lifecycle.Splash:
		err = m.rt.SkipSplash()

	case lifecycle.MainMenu:
		err = m.handleMenuKey(msg)

	case lifecycle.Loading:
		if key.Matches(msg, m.keys.Back) {
			err = m.rt.ReturnToMenu()
		}

	case lifecycle.InGame:
		switch {
		case key.Matches(msg, m.keys.Pause):
			err = m.rt.Pause()
		case key.Matches(msg, m.keys.Menu):
			err = m.rt.ReturnToMenu()
		}

	case lifecycle.Paused:
		switch {
		case key.Matches(msg, m.keys.Pause):
			err = m.rt.Resume()
		case key.Matches(msg, m.keys.Menu):
			err = m.rt.ReturnToMenu()
		default:
			err = m.handleSettingsKey(msg)
		}

	case lifecycle.Error:
		opts := m.rt.Status().Recovery
		switch {
		case key.Matches(msg, m.keys.Up):
			m.recoveryIdx = max(m.recoveryIdx-1, 0)
		case key.Matches(msg, m.keys.Down):
			m.recoveryIdx = min(m.recoveryIdx+1, len(opts)-1)
		case key.Matches(msg, m.keys.Quit):
			m.rt.Exit()
		case key.Matches(msg, m.keys.Enter):
			if m.recoveryIdx == 0 {
				err = m.rt.ReturnToMenu()
			} else {
				m.rt.Exit()
			}
		}
	}

	if err != nil {
		m.note = describe(err)
		logging.UIDebug("key %q rejected: %v", msg.String(), err)
	}
	if m.rt.ExitRequested() {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleMenuKey(msg tea.KeyMsg) error {
	if key.Matches(msg, m.keys.Tab) {
		m.focusSettings = !m.focusSettings
		return nil
	}
	if m.focusSettings {
		if key.Matches(msg, m.keys.Back) {
			m.focusSettings = false
			return nil
		}
		return m.handleSettingsKey(msg)
	}

	items := m.menuItems()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.menuIdx = max(m.menuIdx-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.menuIdx = min(m.menuIdx+1, len(items)-1)
	case key.Matches(msg, m.keys.Quit):
		m.rt.Exit()
	case key.Matches(msg, m.keys.Enter):
		if m.menuIdx == len(items)-1 {
			m.rt.Exit()
			return nil
		}
		return m.rt.StartGame(items[m.menuIdx])
	}
	return nil
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) error {
	rows := len(settings.Keys)
	switch {
	case key.Matches(msg, m.keys.Up):
		m.settingsIdx = max(m.settingsIdx-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.settingsIdx = min(m.settingsIdx+1, rows-1)
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		dir := 1
		if key.Matches(msg, m.keys.Left) {
			dir = -1
		}
		k := settings.Keys[m.settingsIdx]
		return m.rt.SetSetting(k, Adjust(m.rt.Status().Settings, k, dir))
	case key.Matches(msg, m.keys.Reset):
		return m.rt.ResetSettings()
	}
	return nil
}

// renderFailure caches the markdown error panel for the current failure.
func (m *Model) renderFailure() {
	if m.rt.Phase() != lifecycle.Error {
		m.recoveryIdx = 0
		return
	}
	cause := "unknown failure"
	if failure := m.rt.Status().Failure; failure != nil {
		cause = failure.Error()
	}
	if m.errRendered != "" && cause == m.errFor {
		return
	}
	md := fmt.Sprintf("# Something went wrong\n\n> %s\n\nReturn to the main menu to try again, or exit.\n", cause)
	m.errFor, m.errRendered = cause, md
	if m.markdown == nil {
		return
	}
	if out, err := m.markdown.Render(md); err == nil {
		m.errRendered = out
	}
}

// menuItems lists bundle tags followed by Quit.
func (m Model) menuItems() []string {
	return append(m.rt.Manifest().Tags(), "Quit")
}

func describe(err error) string {
	switch {
	case errors.Is(err, fade.ErrFaderBusy):
		return "one moment..."
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return "not available right now"
	default:
		return err.Error()
	}
}
