package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/session"
)

type CategoriesModel struct {
	CommonModel
	session *session.Session

	kind  category.Type
	table table.Model
	names []string

	form    *huh.Form
	newName *string

	status string
}

func NewCategoriesModel(s *session.Session) CategoriesModel {
	m := CategoriesModel{
		session: s,
		kind:    category.TypeExpense,
		table: newTable([]table.Column{
			{Title: "Name", Width: 30},
			{Title: "Kind", Width: 10},
		}),
	}
	m.refresh()

	return m
}

func (m CategoriesModel) Title() string { return "Categories" }

func (m CategoriesModel) ShortHelp() string {
	if m.form != nil {
		return "Enter: add | Esc: cancel"
	}

	return "Esc: back | tab: expense/income | a: add | x: remove custom"
}

func (m CategoriesModel) Init() tea.Cmd {
	return nil
}

func (m CategoriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(categoryChangedMsg); ok {
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = msg.done
		}

		m.refresh()

		return m, nil
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "tab":
			if m.kind == category.TypeExpense {
				m.kind = category.TypeIncome
			} else {
				m.kind = category.TypeExpense
			}

			m.status = ""
			m.refresh()

			return m, nil
		case "a":
			m.newName = new("")
			m.form = huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title(fmt.Sprintf("New %s category", m.kind)).
						Value(m.newName).
						Validate(notBlank("name")),
				),
			).WithWidth(45).WithShowHelp(false)
			m.table.Blur()

			return m, m.form.Init()
		case "x":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.names) {
				return m, nil
			}

			name := m.names[idx]
			if isDefault(m.kind, name) {
				m.status = "Default categories cannot be removed"
				return m, nil
			}

			return m, m.removeCmd(m.kind, name)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m CategoriesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)

	f, ok := form.(*huh.Form)
	if !ok || f.State == huh.StateNormal {
		return m, cmd
	}

	name := *m.newName
	completed := f.State == huh.StateCompleted

	m.form = nil
	m.newName = nil
	m.table.Focus()

	if !completed {
		return m, nil
	}

	return m, m.addCmd(m.kind, name)
}

func isDefault(t category.Type, name string) bool {
	defs, err := category.Defaults(t)
	return err == nil && category.Contains(defs, name)
}

func (m *CategoriesModel) refresh() {
	m.names = m.session.Categories().Of(m.kind)

	rows := make([]table.Row, 0, len(m.names))
	for _, name := range m.names {
		kind := "custom"
		if isDefault(m.kind, name) {
			kind = "default"
		}

		rows = append(rows, table.Row{name, kind})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m CategoriesModel) View() string {
	header := fmt.Sprintf("Categories | [tab] %s", activeStyle(string(m.kind)))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)

	if m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel("Add Category", m.form.View()))
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content + "\n\n" + m.ShortHelp())
}

type categoryChangedMsg struct {
	done string
	err  error
}

func (m CategoriesModel) addCmd(t category.Type, name string) tea.Cmd {
	s := m.session

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		added, err := s.AddCategory(ctx, t, name)

		return categoryChangedMsg{done: fmt.Sprintf("Added %q", added), err: err}
	}
}

func (m CategoriesModel) removeCmd(t category.Type, name string) tea.Cmd {
	s := m.session

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := s.RemoveCategory(ctx, t, name)

		return categoryChangedMsg{done: fmt.Sprintf("Removed %q", name), err: err}
	}
}
