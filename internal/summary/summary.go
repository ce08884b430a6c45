// Package summary aggregates a user's invoices and income for the dashboard
// and the assistant.
package summary

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/income"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
)

// UncategorizedName labels records with an empty category.
const UncategorizedName = "Other"

type CategoryTotal struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// Month is the cash flow of one calendar month, keyed "YYYY-MM".
type Month struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type Summary struct {
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	NetBalance        decimal.Decimal `json:"netBalance"`
	InvoiceCount      int             `json:"invoiceCount"`
	IncomeEntryCount  int             `json:"incomeEntryCount"`
	ExpensesBreakdown []CategoryTotal `json:"expensesBreakdown"`
	IncomeBreakdown   []CategoryTotal `json:"incomeBreakdown"`
	CashFlow          []Month         `json:"cashFlow"`
}

// Compute aggregates invoice totals as expenses and income amounts as income.
// Breakdowns are sorted by total descending, then name; cash flow is ascending by month.
func Compute(invoices []*invoice.Invoice, records []*income.Income) Summary {
	s := Summary{
		InvoiceCount:     len(invoices),
		IncomeEntryCount: len(records),
	}

	expenses := map[string]decimal.Decimal{}
	earnings := map[string]decimal.Decimal{}
	months := map[string]*Month{}

	month := func(key string) *Month {
		m, ok := months[key]
		if !ok {
			m = &Month{Month: key}
			months[key] = m
		}

		return m
	}

	for _, inv := range invoices {
		s.TotalExpenses = s.TotalExpenses.Add(inv.Total)
		name := categoryName(inv.Category)
		expenses[name] = expenses[name].Add(inv.Total)

		m := month(monthKey(inv.Date.Year, int(inv.Date.Month)))
		m.Expenses = m.Expenses.Add(inv.Total)
	}

	for _, in := range records {
		s.TotalIncome = s.TotalIncome.Add(in.Amount)
		name := categoryName(in.Category)
		earnings[name] = earnings[name].Add(in.Amount)

		m := month(monthKey(in.Date.Year, int(in.Date.Month)))
		m.Income = m.Income.Add(in.Amount)
	}

	s.NetBalance = s.TotalIncome.Sub(s.TotalExpenses)
	s.ExpensesBreakdown = breakdown(expenses)
	s.IncomeBreakdown = breakdown(earnings)

	s.CashFlow = make([]Month, 0, len(months))
	for _, m := range months {
		s.CashFlow = append(s.CashFlow, *m)
	}

	slices.SortFunc(s.CashFlow, func(a, b Month) int { return cmp.Compare(a.Month, b.Month) })

	return s
}

func categoryName(c string) string {
	if c == "" {
		return UncategorizedName
	}

	return c
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func breakdown(totals map[string]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for name, total := range totals {
		out = append(out, CategoryTotal{Name: name, Total: total})
	}

	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})

	return out
}

type InvoiceLister interface {
	List(ctx context.Context, userID string) ([]*invoice.Invoice, error)
}

type IncomeLister interface {
	List(ctx context.Context, userID string) ([]*income.Income, error)
}

type Service struct {
	invoices InvoiceLister
	income   IncomeLister
}

func NewService(invoices InvoiceLister, income IncomeLister) *Service {
	return &Service{invoices: invoices, income: income}
}

// ForUser loads both full collections and summarizes them.
func (s *Service) ForUser(ctx context.Context, userID string) (Summary, error) {
	invoices, err := s.invoices.List(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing invoices: %w", err)
	}

	records, err := s.income.List(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing income: %w", err)
	}

	return Compute(invoices, records), nil
}
