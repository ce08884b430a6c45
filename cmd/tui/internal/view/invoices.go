package view

import (
	"errors"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/session"
)

type InvoicesModel = CollectionModel[invoice.Invoice, invoice.Patch]

func NewInvoicesModel(s *session.Session, today func() calendar.Date) InvoicesModel {
	return NewCollectionModel(CollectionSchema[invoice.Invoice, invoice.Patch]{
		Title: "Invoices",
		Noun:  "invoices",
		Columns: []table.Column{
			{Title: "Date", Width: 12},
			{Title: "Provider", Width: 28},
			{Title: "Category", Width: 18},
			{Title: "Total", Width: 12},
			{Title: "Recurring", Width: 10},
			{Title: "File", Width: 28},
		},
		Row: func(inv invoice.Invoice) table.Row {
			return table.Row{
				FormatDate(inv.Date),
				inv.Provider,
				inv.Category,
				FormatAmount(inv.Total),
				string(inv.RecurringFrequency),
				inv.FileName,
			}
		},
		Date:    func(inv invoice.Invoice) calendar.Date { return inv.Date },
		Matches: invoice.Invoice.Matches,
		Edit: func(inv invoice.Invoice) Editor[invoice.Patch] {
			return newInvoiceEditor(inv, s.Categories().Expense)
		},
		New: func(today calendar.Date) invoice.Invoice {
			return invoice.Invoice{
				Date:     today,
				Category: firstOf(s.Categories().Expense),
				FileName: invoice.FileNameManual,
			}
		},
		Apply: func(inv *invoice.Invoice, p invoice.Patch) { p.Apply(inv) },
	}, s.Invoices, today)
}

type invoiceEditor struct {
	form *huh.Form

	provider  string
	dateText  string
	total     string
	category  string
	recurring bool
	frequency string
	hasStart  bool
}

func firstOf(options []string) string {
	if len(options) == 0 {
		return ""
	}

	return options[0]
}

func withCurrent(options []string, current string) []string {
	if current == "" || slices.Contains(options, current) {
		return options
	}

	return append(slices.Clone(options), current)
}

func newInvoiceEditor(inv invoice.Invoice, categories []string) *invoiceEditor {
	e := &invoiceEditor{
		provider:  inv.Provider,
		dateText:  inv.Date.String(),
		total:     inv.Total.String(),
		category:  inv.Category,
		recurring: inv.IsRecurring,
		frequency: string(inv.RecurringFrequency),
		hasStart:  inv.RecurringStartDate != nil,
	}

	e.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Provider").Value(&e.provider).Validate(notBlank("provider")),
			huh.NewInput().Title("Date").Placeholder("YYYY-MM-DD").Value(&e.dateText).Validate(validDate),
			huh.NewInput().Title("Total").Value(&e.total).Validate(validAmount),
			huh.NewSelect[string]().
				Title("Category").
				Options(huh.NewOptions(withCurrent(categories, inv.Category)...)...).
				Value(&e.category),
			huh.NewConfirm().Title("Recurring?").Value(&e.recurring),
			huh.NewSelect[string]().
				Title("Frequency").
				Options(
					huh.NewOption("None", ""),
					huh.NewOption("Monthly", string(invoice.FrequencyMonthly)),
					huh.NewOption("Yearly", string(invoice.FrequencyYearly)),
				).
				Value(&e.frequency),
		),
	).WithWidth(45).WithShowHelp(false)

	return e
}

func (e *invoiceEditor) Form() *huh.Form { return e.form }

// Patch turns the form values into a patch. Turning recurrence on for an
// invoice without a start date starts it at the invoice date.
func (e *invoiceEditor) Patch() (invoice.Patch, error) {
	date, err := calendar.Parse(strings.TrimSpace(e.dateText))
	if err != nil {
		return invoice.Patch{}, err
	}

	total, err := decimal.NewFromString(strings.TrimSpace(e.total))
	if err != nil {
		return invoice.Patch{}, err
	}

	freq := invoice.Frequency(e.frequency)
	if e.recurring && freq == "" {
		return invoice.Patch{}, errors.New("recurring invoices need a frequency")
	}

	if !e.recurring {
		freq = ""
	}

	p := invoice.Patch{
		Provider:           new(strings.TrimSpace(e.provider)),
		Date:               &date,
		Total:              &total,
		Category:           new(e.category),
		IsRecurring:        new(e.recurring),
		RecurringFrequency: &freq,
	}

	if e.recurring && !e.hasStart {
		p.RecurringStartDate = &date
	}

	return p, nil
}
