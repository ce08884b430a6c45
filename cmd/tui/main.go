package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/invoicely/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/config"
	"github.com/MrJamesThe3rd/invoicely/internal/database"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	incomeStore "github.com/MrJamesThe3rd/invoicely/internal/income/store"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/invoicely/internal/invoice/store"
	"github.com/MrJamesThe3rd/invoicely/internal/recurring"
	"github.com/MrJamesThe3rd/invoicely/internal/session"
	settingsStore "github.com/MrJamesThe3rd/invoicely/internal/settings/store"
)

type model struct {
	session   *session.Session
	processor *recurring.Processor

	current view.View
	notice  string
}

func recurringNotice(n int, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("Recurring invoices could not be processed: %v", err)
	case n == 1:
		return "Generated 1 recurring invoice"
	case n > 1:
		return fmt.Sprintf("Generated %d recurring invoices", n)
	}

	return ""
}

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("failed to load recurring timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	invoices := invoiceStore.New(db)
	processor := recurring.NewProcessor(invoices, recurring.WithLocation(loc))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s, err := session.Open(ctx, session.Deps{
		Invoices:   invoice.NewService(invoices),
		Income:     income.NewService(incomeStore.New(db)),
		Categories: category.NewRegistry(settingsStore.New(db)),
		Recurring:  processor,
		PageSize:   cfg.PageSize,
	}, cfg.TUI.UserID)
	if err != nil {
		slog.Error("failed to open session", "error", err)
		os.Exit(1)
	}

	return model{
		session:   s,
		processor: processor,
		notice:    recurringNotice(s.Generated, s.RecurringErr),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

type recurringRunMsg struct {
	generated int
	err       error
}

func (m model) runRecurringCmd() tea.Cmd {
	s := m.session

	return func() tea.Msg {
		ctx, cancel := view.DbCtx()
		defer cancel()

		n, err := s.RunRecurring(ctx)

		return recurringRunMsg{generated: n, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.current == nil {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.current = view.NewInvoicesModel(m.session, m.processor.Today)
				return m, m.current.Init()
			case "2":
				m.current = view.NewIncomeModel(m.session, m.processor.Today)
				return m, m.current.Init()
			case "3":
				m.current = view.NewCategoriesModel(m.session)
				return m, m.current.Init()
			case "4":
				m.notice = "Processing recurring invoices..."
				return m, m.runRecurringCmd()
			}

			return m, nil
		}
	case recurringRunMsg:
		m.notice = recurringNotice(msg.generated, msg.err)
		if m.notice == "" {
			m.notice = "No recurring invoices due"
		}

		return m, nil
	case view.BackMsg:
		m.current = nil
		return m, nil
	}

	if m.current == nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.current, cmd = view.Step(m.current, msg)

	return m, cmd
}

func (m model) View() string {
	if m.current != nil {
		return m.current.View()
	}

	menu := "Invoicely TUI\n\n" +
		"1. Invoices\n" +
		"2. Income\n" +
		"3. Categories\n" +
		"4. Process Recurring Invoices\n\n" +
		"q. Quit"

	if m.notice != "" {
		menu = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(m.notice) + "\n\n" + menu
	}

	return lipgloss.NewStyle().Padding(2).Render(menu)
}

func main() {
	logFile, err := tea.LogToFile("invoicely-tui.log", "tui")
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
