package view

import (
	tea "github.com/charmbracelet/bubbletea"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// Step forwards msg to v and keeps the result typed as a View.
func Step(v View, msg tea.Msg) (View, tea.Cmd) {
	next, cmd := v.Update(msg)
	return next.(View), cmd
}
