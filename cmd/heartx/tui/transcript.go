package tui

import (
	"strings"

	"github.com/miniheartx/heartx/pkg/session"
)

const welcome = "Describe what you want to do in plain English. Pick a tool with Tab, or use a quick command."

// renderTranscript draws every entry as prompt line, command line and
// indented output. pending is the input currently being translated.
func renderTranscript(entries []session.Entry, pending string, t theme, width int) string {
	if len(entries) == 0 && pending == "" {
		return strings.Join(wrapText(welcome, width), "\n")
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styleDim.Render("["+e.Timestamp+"] $ ") + e.Input + "\n")
		b.WriteString(t.key().Render("> "+e.Command) + "\n")
		out := t.outputStyle(e.Type)
		for _, line := range e.Output {
			for _, w := range wrapText(line, width-2) {
				b.WriteString("  " + out.Render(w) + "\n")
			}
		}
	}
	if pending != "" {
		if len(entries) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styleDim.Render("$ ") + pending + "\n")
		b.WriteString(styleHint.Render("  translating...") + "\n")
	}
	return b.String()
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len(current)+1+len(w) > width {
			lines = append(lines, current)
			current = w
		} else {
			current += " " + w
		}
	}
	lines = append(lines, current)
	return lines
}
