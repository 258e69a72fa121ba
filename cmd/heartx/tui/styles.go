package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/miniheartx/heartx/pkg/session"
)

var (
	colorSuccess = lipgloss.Color("#50C878")
	colorError   = lipgloss.Color("#FF6961")
	colorMuted   = lipgloss.Color("#808080")
	colorBorder  = lipgloss.Color("#3A3A5C")
)

// theme is the per-mode accent set, mirroring the team mode switch.
type theme struct {
	accent lipgloss.Color
	title  lipgloss.Color
}

var themes = map[session.Mode]theme{
	session.ModeAttack:  {accent: lipgloss.Color("#FF4444"), title: lipgloss.Color("#FF8A8A")},
	session.ModeDefense: {accent: lipgloss.Color("#3B82F6"), title: lipgloss.Color("#93C5FD")},
	session.ModeOps:     {accent: lipgloss.Color("#A855F7"), title: lipgloss.Color("#D8B4FE")},
	session.ModeMatrix:  {accent: lipgloss.Color("#00FF41"), title: lipgloss.Color("#7CFF9B")},
}

func themeFor(m session.Mode) theme {
	if t, ok := themes[m]; ok {
		return t
	}
	return themes[session.DefaultMode]
}

var (
	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	styleOK   = lipgloss.NewStyle().Foreground(colorSuccess)
	styleErr  = lipgloss.NewStyle().Foreground(colorError)
	styleDim  = lipgloss.NewStyle().Foreground(colorMuted)
	styleHint = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	styleBold = lipgloss.NewStyle().Bold(true)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)
)

func (t theme) panel(focused bool) lipgloss.Style {
	if focused {
		return stylePanel.BorderForeground(t.accent)
	}
	return stylePanel
}

func (t theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.title).Padding(0, 1)
}

func (t theme) key() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.accent).Bold(true)
}

func (t theme) badge() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#000000")).
		Background(t.accent).
		Padding(0, 1)
}

// outputStyle colours an entry's output by classification.
func (t theme) outputStyle(c session.Classification) lipgloss.Style {
	switch c {
	case session.Success:
		return styleOK
	case session.Error:
		return styleErr
	default:
		return lipgloss.NewStyle().Foreground(t.title)
	}
}
