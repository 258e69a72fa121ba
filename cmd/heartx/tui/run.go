package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/miniheartx/heartx/pkg/catalog"
	"github.com/miniheartx/heartx/pkg/pipeline"
)

// Run blocks until the operator quits. It returns the mode the session
// ended in so the caller can remember it.
func Run(p *pipeline.Pipeline, cat *catalog.Catalog, status string) (Model, error) {
	prog := tea.NewProgram(
		NewModel(p, cat, status),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	final, err := prog.Run()
	if err != nil {
		return Model{}, err
	}
	m, _ := final.(Model)
	return m, nil
}
