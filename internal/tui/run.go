package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gongahkia/mike/internal/ai"
)

func Run(difficulty ai.Difficulty) error {
	model, err := NewModel(difficulty)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
