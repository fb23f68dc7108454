package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"stagehand/internal/app"
	"stagehand/internal/lifecycle"
)

// View renders the current phase under the fade cover.
func (m Model) View() string {
	st := m.rt.Status()

	var body string
	switch st.Phase {
	case lifecycle.Booting:
		body = m.styles.Muted.Render("booting...")
	case lifecycle.Splash:
		body = m.viewSplash()
	case lifecycle.MainMenu:
		body = m.viewMenu()
	case lifecycle.Loading:
		body = m.viewLoading(st)
	case lifecycle.InGame:
		body = m.viewInGame(st)
	case lifecycle.Paused:
		body = m.viewPaused()
	case lifecycle.Error:
		body = m.viewError(st)
	}

	header := m.styles.Header.Render("stagehand · " + st.Phase.String())
	if st.SettingsDue {
		header += " " + m.styles.Badge.Render("saving")
	}
	footer := m.styles.Footer.Render(m.help.ShortHelpView(m.bindings(st.Phase)))
	if m.note != "" {
		footer = m.styles.Warning.Render(m.note) + "\n" + footer
	}

	content := m.styles.Content.Render(body)
	switch {
	case st.Alpha >= 0.999:
		content = strings.Repeat("\n", lipgloss.Height(content)-1)
	case st.Alpha > 0.5:
		content = m.styles.Faded.Render(content)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (m Model) bindings(p lifecycle.Phase) []key.Binding {
	k := m.keys
	switch p {
	case lifecycle.MainMenu:
		if m.focusSettings {
			return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Reset, k.Back}
		}
		return []key.Binding{k.Up, k.Down, k.Enter, k.Tab, k.Quit}
	case lifecycle.Loading:
		return []key.Binding{k.Back}
	case lifecycle.InGame:
		return []key.Binding{k.Pause, k.Menu}
	case lifecycle.Paused:
		return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Reset, k.Pause, k.Menu}
	case lifecycle.Error:
		return []key.Binding{k.Up, k.Down, k.Enter, k.Quit}
	default:
		return nil
	}
}

func (m Model) viewSplash() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		Logo(m.styles),
		m.spinner.View()+" "+m.styles.Subtitle.Render("press any key"),
	)
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Main menu"))
	b.WriteString("\n")
	for i, item := range m.menuItems() {
		label := item
		if i < len(m.menuItems())-1 {
			label = "Play " + item
		}
		if i == m.menuIdx && !m.focusSettings {
			b.WriteString(m.styles.Selected.Render("› " + label))
		} else {
			b.WriteString(m.styles.Body.Render("  " + label))
		}
		b.WriteString("\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, b.String(), "   ", m.viewSettings(m.focusSettings))
}

func (m Model) viewLoading(st app.Status) string {
	p := st.Progress
	lines := []string{
		m.styles.Title.Render("Loading " + st.Bundle),
		m.progress.ViewAs(p.Fraction()),
		m.styles.Muted.Render(fmt.Sprintf("%d of %d assets", p.Loaded, p.Total)),
	}
	for _, ref := range p.FailedRefs() {
		lines = append(lines, m.styles.Warning.Render("skipped "+string(ref)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewInGame(st app.Status) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Now playing: "+st.Bundle),
		m.styles.Muted.Render(fmt.Sprintf("frame %d", st.Frame)),
	)
}

func (m Model) viewPaused() string {
	return m.viewSettings(true)
}

func (m Model) viewSettings(focused bool) string {
	overlay := m.rt.Overlay()
	if !overlay.Surface().Editable() {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(overlay.Title()))
	b.WriteString("\n")
	for i, row := range overlay.Rows() {
		line := fmt.Sprintf("%-18s %s", row.Label, row.Value)
		if focused && i == m.settingsIdx {
			b.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			b.WriteString(m.styles.Body.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return m.styles.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) viewError(st app.Status) string {
	var b strings.Builder
	b.WriteString(m.errRendered)
	for i, opt := range st.Recovery {
		if i == m.recoveryIdx {
			b.WriteString(m.styles.Selected.Render("› " + opt))
		} else {
			b.WriteString(m.styles.Body.Render("  " + opt))
		}
		b.WriteString("\n")
	}
	return b.String()
}
