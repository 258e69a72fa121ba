package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/miniheartx/heartx/pkg/catalog"
	"github.com/miniheartx/heartx/pkg/pipeline"
	"github.com/miniheartx/heartx/pkg/session"
)

const (
	sidebarWidth = 34
	busyNotice   = "A translation is already running. Wait for it to finish."
)

type focusArea int

const (
	focusInput focusArea = iota
	focusTools
)

// entryMsg carries the outcome of one pipeline submission back to Update.
type entryMsg struct {
	entry session.Entry
	err   error
}

// Model is the single-screen operator console: transcript on the left,
// tool arsenal on the right, input and quick commands underneath.
type Model struct {
	pipe    *pipeline.Pipeline
	catalog *catalog.Catalog
	tools   []catalog.Tool
	status  string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	focus   focusArea
	cursor  int
	waiting bool
	pending string
	notice  string
	width   int
	height  int
}

func NewModel(p *pipeline.Pipeline, cat *catalog.Catalog, status string) Model {
	if cat == nil {
		cat = catalog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Describe what you want, e.g. scan ports on 192.168.1.1"
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		pipe:     p,
		catalog:  cat,
		tools:    cat.Tools(),
		status:   status,
		viewport: viewport.New(60, 15),
		input:    ti,
		spinner:  s,
	}
	m.applyTheme()
	m.refreshViewport()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Mode reports the team mode the session is in.
func (m Model) Mode() session.Mode {
	return m.pipe.Mode()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case entryMsg:
		m.handleEntry(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleEntry(msg entryMsg) {
	m.waiting = false
	m.pending = ""
	switch {
	case msg.err == nil:
		m.notice = ""
	case errors.Is(msg.err, pipeline.ErrBusy):
		m.notice = busyNotice
	case errors.Is(msg.err, pipeline.ErrEmptyInput):
		m.notice = ""
	default:
		m.notice = msg.err.Error()
	}
	m.refreshViewport()
	m.viewport.GotoBottom()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+t":
		m.cycleMode()
		return m, nil
	case "tab", "shift+tab":
		m.toggleFocus()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "alt+1", "alt+2", "alt+3", "alt+4":
		idx := int(key[len(key)-1] - '1')
		if idx < len(m.catalog.QuickCommands) {
			return m.submit(m.catalog.QuickCommands[idx])
		}
		return m, nil
	}

	if m.focus == focusTools {
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.tools)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.tools) {
				return m.submit(catalog.ExampleFor(m.tools[m.cursor]))
			}
		}
		return m, nil
	}

	switch key {
	case "enter":
		val := m.input.Value()
		next, cmd := m.submit(val)
		if nm, ok := next.(Model); ok && nm.waiting && nm.pending == strings.TrimSpace(val) {
			nm.input.SetValue("")
			return nm, cmd
		}
		return next, cmd
	case "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.waiting {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a translation cycle for text unless one is already running.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == "" {
		return m, nil
	}
	if m.waiting || m.pipe.Busy() {
		m.notice = busyNotice
		return m, nil
	}
	m.waiting = true
	m.pending = text
	m.notice = ""
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(submitCmd(m.pipe, text), m.spinner.Tick)
}

func submitCmd(p *pipeline.Pipeline, text string) tea.Cmd {
	return func() tea.Msg {
		e, err := p.Submit(context.Background(), text)
		return entryMsg{entry: e, err: err}
	}
}

func (m *Model) cycleMode() {
	modes := session.Modes()
	cur := m.pipe.Mode()
	for i, md := range modes {
		if md == cur {
			m.pipe.SetMode(modes[(i+1)%len(modes)])
			break
		}
	}
	m.applyTheme()
	m.refreshViewport()
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusTools
		m.input.Blur()
		return
	}
	m.focus = focusInput
	m.input.Focus()
}

func (m *Model) applyTheme() {
	t := themeFor(m.pipe.Mode())
	m.spinner.Style = lipgloss.NewStyle().Foreground(t.accent)
	m.input.PromptStyle = t.key()
}

func (m *Model) handleResize() {
	w := m.width - sidebarWidth - 6
	if w < 40 {
		w = 40
	}
	h := m.height - 9 // header, input, quick commands, notice, status bar
	if h < 5 {
		h = 5
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = m.width - 8
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(renderTranscript(m.pipe.Entries(), m.pending, themeFor(m.pipe.Mode()), m.viewport.Width))
}

func (m Model) View() string {
	t := themeFor(m.pipe.Mode())
	var b strings.Builder

	mode := m.pipe.Mode()
	b.WriteString(fmt.Sprintf(" %s  %s  %s\n",
		t.key().Render("♥ Mini Heart X"),
		t.badge().Render(mode.Label()),
		styleDim.Render(mode.Description()+" · "+m.status)))

	transcript := t.panel(m.focus == focusInput).Width(m.viewport.Width + 2).Render(m.viewport.View())
	sidebar := t.panel(m.focus == focusTools).Width(sidebarWidth).Height(m.viewport.Height).Render(m.renderTools(t))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, transcript, sidebar))
	b.WriteString("\n")

	if m.waiting {
		b.WriteString(fmt.Sprintf("  %s %s", m.spinner.View(), styleDim.Render("Translating: "+m.pending)))
	} else {
		b.WriteString(fmt.Sprintf("  %s", m.input.View()))
	}
	b.WriteString("\n")

	var quick []string
	for i, q := range m.catalog.QuickCommands {
		if i >= 4 {
			break
		}
		quick = append(quick, t.key().Render(fmt.Sprintf("alt+%d", i+1))+" "+styleDim.Render(q))
	}
	b.WriteString("  " + strings.Join(quick, "   "))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(styleHint.Render("  " + m.notice))
	}
	b.WriteString("\n")
	b.WriteString(styleStatusBar.Render("Enter: send   Tab: tools   Ctrl+T: mode   PgUp/PgDn: scroll   Esc: quit"))
	return b.String()
}

func (m Model) renderTools(t theme) string {
	var lines []string
	lines = append(lines, t.titleStyle().Render("Cyber Arsenal"))
	i := 0
	for _, cat := range m.catalog.Categories {
		lines = append(lines, "", styleBold.Render(cat.Name))
		for _, tool := range cat.Tools {
			line := "  " + tool.Name
			if m.focus == focusTools && i == m.cursor {
				line = t.key().Render("› " + tool.Name)
			}
			lines = append(lines, line)
			i++
		}
	}
	if m.focus == focusTools && m.cursor < len(m.tools) {
		lines = append(lines, "", styleHint.Render(m.tools[m.cursor].Description))
	}
	return strings.Join(lines, "\n")
}
