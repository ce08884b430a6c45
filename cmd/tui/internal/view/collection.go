package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
)

// Editor edits one record through a form and yields the resulting patch.
type Editor[P any] interface {
	Form() *huh.Form
	Patch() (P, error)
}

// CollectionSchema describes how a record type is shown and edited.
type CollectionSchema[T pagecache.Record, P any] struct {
	Title   string
	Noun    string
	Columns []table.Column
	Row     func(T) table.Row
	Date    func(T) calendar.Date
	Matches func(T, string) bool
	Edit    func(T) Editor[P]

	// New returns the draft a create form starts from and Apply writes the
	// form's patch onto it. Creating is disabled when New is nil.
	New   func(today calendar.Date) T
	Apply func(*T, P)
}

type collectionMode int

const (
	modeBrowse collectionMode = iota
	modeSearch
	modeEdit
	modeConfirmDelete
)

// CollectionModel browses a paginated collection. Everything it shows comes
// from the collection's cache; search and the timeframe filter only narrow
// what is already loaded.
type CollectionModel[T pagecache.Record, P any] struct {
	CommonModel
	schema CollectionSchema[T, P]
	coll   *pagecache.Collection[T, P]
	today  func() calendar.Date

	mode      collectionMode
	table     table.Model
	search    textinput.Model
	timeframe Timeframe
	visible   []T

	editor    Editor[P]
	draft     *T
	confirm   *huh.Form
	confirmed *bool
	target    string

	status string
}

func NewCollectionModel[T pagecache.Record, P any](
	schema CollectionSchema[T, P],
	coll *pagecache.Collection[T, P],
	today func() calendar.Date,
) CollectionModel[T, P] {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search " + schema.Noun
	search.Width = 40

	m := CollectionModel[T, P]{
		schema: schema,
		coll:   coll,
		today:  today,
		table:  newTable(schema.Columns),
		search: search,
	}
	m.refresh()

	return m
}

func (m CollectionModel[T, P]) Title() string { return m.schema.Title }

func (m CollectionModel[T, P]) ShortHelp() string {
	switch m.mode {
	case modeSearch:
		return "Type to filter | Enter: keep | Esc: clear"
	case modeEdit, modeConfirmDelete:
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | m: load more | r: reload | n: new | e: edit | x: delete | /: search | t: timeframe"
}

func (m CollectionModel[T, P]) Init() tea.Cmd {
	return nil
}

func (m CollectionModel[T, P]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pageMsg:
		if msg.noun != m.schema.Noun {
			return m, nil
		}

		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("Error loading %s: %v", m.schema.Noun, msg.err)
		case !msg.applied:
			m.status = "A load is already in progress"
		default:
			m.status = ""
		}

		m.refresh()

		return m, nil

	case mutationMsg:
		if msg.noun != m.schema.Noun {
			return m, nil
		}

		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
		} else {
			m.status = msg.done
		}

		m.refresh()

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 12)

		return m, nil
	}

	switch m.mode {
	case modeSearch:
		return m.updateSearch(msg)
	case modeEdit:
		return m.updateEdit(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}

	return m.updateBrowse(msg)
}

func (m CollectionModel[T, P]) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "m":
			if !m.coll.HasMore() {
				m.status = "Everything is loaded"
				return m, nil
			}

			return m, m.loadMoreCmd()
		case "r":
			return m, m.resetCmd()
		case "/":
			m.mode = modeSearch
			m.table.Blur()
			cmd := m.search.Focus()

			return m, cmd
		case "t":
			m.timeframe = m.timeframe.Next()
			m.refresh()

			return m, nil
		case "n":
			if m.schema.New == nil {
				return m, nil
			}

			draft := m.schema.New(m.today())
			m.draft = &draft
			m.editor = m.schema.Edit(draft)
			m.mode = modeEdit
			m.table.Blur()

			return m, m.editor.Form().Init()
		case "e":
			rec, ok := m.selected()
			if !ok {
				return m, nil
			}

			m.editor = m.schema.Edit(rec)
			m.target = rec.Key()
			m.mode = modeEdit
			m.table.Blur()

			return m, m.editor.Form().Init()
		case "x":
			rec, ok := m.selected()
			if !ok {
				return m, nil
			}

			m.target = rec.Key()
			m.confirmed = new(false)
			m.confirm = huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title("Delete this record?").
						Affirmative("Delete").
						Negative("Keep").
						Value(m.confirmed),
				),
			).WithWidth(45).WithShowHelp(false)
			m.mode = modeConfirmDelete
			m.table.Blur()

			return m, m.confirm.Init()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m CollectionModel[T, P]) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.search.SetValue("")
			fallthrough
		case tea.KeyEnter:
			m.mode = modeBrowse
			m.search.Blur()
			m.table.Focus()
			m.refresh()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refresh()

	return m, cmd
}

func (m CollectionModel[T, P]) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.browse(), nil
	}

	form, cmd := m.editor.Form().Update(msg)

	f, ok := form.(*huh.Form)
	if ok && f.State == huh.StateAborted {
		return m.browse(), nil
	}

	if ok && f.State == huh.StateCompleted {
		patch, err := m.editor.Patch()
		key, draft := m.target, m.draft
		m = m.browse()

		if err != nil {
			m.status = fmt.Sprintf("Invalid input: %v", err)
			return m, nil
		}

		if draft != nil {
			rec := *draft
			m.schema.Apply(&rec, patch)

			return m, m.insertCmd(rec)
		}

		return m, m.updateCmd(key, patch)
	}

	return m, cmd
}

func (m CollectionModel[T, P]) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.browse(), nil
	}

	form, cmd := m.confirm.Update(msg)

	f, ok := form.(*huh.Form)
	if ok && f.State == huh.StateAborted {
		return m.browse(), nil
	}

	if ok && f.State == huh.StateCompleted {
		key, confirmed := m.target, *m.confirmed
		m = m.browse()

		if !confirmed {
			return m, nil
		}

		return m, m.removeCmd(key)
	}

	return m, cmd
}

func (m CollectionModel[T, P]) browse() CollectionModel[T, P] {
	m.mode = modeBrowse
	m.editor = nil
	m.draft = nil
	m.confirm = nil
	m.confirmed = nil
	m.target = ""
	m.table.Focus()

	return m
}

func (m CollectionModel[T, P]) selected() (T, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		var zero T
		return zero, false
	}

	return m.visible[idx], true
}

func (m *CollectionModel[T, P]) refresh() {
	today := m.today()
	term := m.search.Value()

	m.visible = nil

	for _, rec := range m.coll.Items() {
		if m.timeframe.Contains(m.schema.Date(rec), today) && m.schema.Matches(rec, term) {
			m.visible = append(m.visible, rec)
		}
	}

	rows := make([]table.Row, 0, len(m.visible))
	for _, rec := range m.visible {
		rows = append(rows, m.schema.Row(rec))
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m CollectionModel[T, P]) View() string {
	state := m.coll.Snapshot()

	paging := "all loaded"
	switch {
	case state.IsLoading:
		paging = "loading..."
	case state.HasMore:
		paging = "more available [m]"
	}

	header := fmt.Sprintf(
		"%s | %d of %d loaded shown (%s) | [t] %s",
		m.schema.Title,
		len(m.visible),
		len(state.Items),
		paging,
		activeStyle(m.timeframe.String()),
	)

	lines := []string{lipgloss.NewStyle().PaddingBottom(1).Render(header)}
	if m.mode == modeSearch || m.search.Value() != "" {
		lines = append(lines, m.search.View())
	}

	lines = append(lines, lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View()))

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)

	switch {
	case m.mode == modeEdit && m.draft != nil:
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel("New", m.editor.Form().View()))
	case m.mode == modeEdit && m.editor != nil:
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel("Edit", m.editor.Form().View()))
	case m.mode == modeConfirmDelete && m.confirm != nil:
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel("Delete", m.confirm.View()))
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content + "\n\n" + m.ShortHelp())
}

// Messages

type pageMsg struct {
	noun    string
	applied bool
	err     error
}

type mutationMsg struct {
	noun string
	done string
	err  error
}

func (m CollectionModel[T, P]) loadMoreCmd() tea.Cmd {
	coll, noun := m.coll, m.schema.Noun

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		applied, err := coll.LoadMore(ctx)

		return pageMsg{noun: noun, applied: applied, err: err}
	}
}

func (m CollectionModel[T, P]) resetCmd() tea.Cmd {
	coll, noun := m.coll, m.schema.Noun

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := coll.Reset(ctx)

		return pageMsg{noun: noun, applied: true, err: err}
	}
}

func (m CollectionModel[T, P]) insertCmd(rec T) tea.Cmd {
	coll, noun := m.coll, m.schema.Noun

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := coll.Insert(ctx, rec)

		return mutationMsg{noun: noun, done: "Created", err: err}
	}
}

func (m CollectionModel[T, P]) updateCmd(key string, patch P) tea.Cmd {
	coll, noun := m.coll, m.schema.Noun

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := coll.Update(ctx, key, patch)

		return mutationMsg{noun: noun, done: "Saved", err: err}
	}
}

func (m CollectionModel[T, P]) removeCmd(key string) tea.Cmd {
	coll, noun := m.coll, m.schema.Noun

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := coll.Remove(ctx, key)

		return mutationMsg{noun: noun, done: "Deleted", err: err}
	}
}
