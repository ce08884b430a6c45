package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	"github.com/MrJamesThe3rd/invoicely/internal/session"
)

type IncomeModel = CollectionModel[income.Income, income.Patch]

func NewIncomeModel(s *session.Session, today func() calendar.Date) IncomeModel {
	return NewCollectionModel(CollectionSchema[income.Income, income.Patch]{
		Title: "Income",
		Noun:  "income",
		Columns: []table.Column{
			{Title: "Date", Width: 12},
			{Title: "Source", Width: 28},
			{Title: "Category", Width: 18},
			{Title: "Amount", Width: 12},
			{Title: "Description", Width: 36},
		},
		Row: func(in income.Income) table.Row {
			return table.Row{
				FormatDate(in.Date),
				in.Source,
				in.Category,
				FormatAmount(in.Amount),
				in.Description,
			}
		},
		Date:    func(in income.Income) calendar.Date { return in.Date },
		Matches: income.Income.Matches,
		Edit: func(in income.Income) Editor[income.Patch] {
			return newIncomeEditor(in, s.Categories().Income)
		},
		New: func(today calendar.Date) income.Income {
			return income.Income{Date: today, Category: firstOf(s.Categories().Income)}
		},
		Apply: func(in *income.Income, p income.Patch) { p.Apply(in) },
	}, s.Income, today)
}

type incomeEditor struct {
	form *huh.Form

	source      string
	dateText    string
	amount      string
	description string
	category    string
}

func newIncomeEditor(in income.Income, categories []string) *incomeEditor {
	e := &incomeEditor{
		source:      in.Source,
		dateText:    in.Date.String(),
		amount:      in.Amount.String(),
		description: in.Description,
		category:    in.Category,
	}

	e.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Source").Value(&e.source).Validate(notBlank("source")),
			huh.NewInput().Title("Date").Placeholder("YYYY-MM-DD").Value(&e.dateText).Validate(validDate),
			huh.NewInput().Title("Amount").Value(&e.amount).Validate(validAmount),
			huh.NewInput().Title("Description").Value(&e.description),
			huh.NewSelect[string]().
				Title("Category").
				Options(huh.NewOptions(withCurrent(categories, in.Category)...)...).
				Value(&e.category),
		),
	).WithWidth(45).WithShowHelp(false)

	return e
}

func (e *incomeEditor) Form() *huh.Form { return e.form }

func (e *incomeEditor) Patch() (income.Patch, error) {
	date, err := calendar.Parse(strings.TrimSpace(e.dateText))
	if err != nil {
		return income.Patch{}, err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(e.amount))
	if err != nil {
		return income.Patch{}, err
	}

	return income.Patch{
		Source:      new(strings.TrimSpace(e.source)),
		Date:        &date,
		Amount:      &amount,
		Description: new(e.description),
		Category:    new(e.category),
	}, nil
}
