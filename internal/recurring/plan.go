package recurring

import (
	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
)

// Occurrence is one due period of a recurring invoice.
type Occurrence struct {
	Source *invoice.Invoice
	Date   calendar.Date
}

// Anchor is the date the next occurrence is computed from: the last processed
// date, else the start date, else the invoice date.
func Anchor(inv *invoice.Invoice) calendar.Date {
	switch {
	case inv.LastProcessedDate != nil && !inv.LastProcessedDate.IsZero():
		return *inv.LastProcessedDate
	case inv.RecurringStartDate != nil && !inv.RecurringStartDate.IsZero():
		return *inv.RecurringStartDate
	}

	return inv.Date
}

// Next advances the anchor of inv by one period. Days past the end of the
// target month clamp to its last day. An unknown frequency does not advance,
// so ok is false and the returned date is the anchor itself.
func Next(inv *invoice.Invoice) (next calendar.Date, ok bool) {
	anchor := Anchor(inv)

	switch inv.RecurringFrequency {
	case invoice.FrequencyMonthly:
		return anchor.AddMonths(1), true
	case invoice.FrequencyYearly:
		return anchor.AddYears(1), true
	}

	return anchor, false
}

// Plan returns at most one due occurrence per invoice, in input order.
// Invoices that are not recurring, have no start date or an unknown frequency
// are skipped.
func Plan(invoices []*invoice.Invoice, today calendar.Date) []Occurrence {
	var due []Occurrence

	for _, inv := range invoices {
		if !processable(inv) {
			continue
		}

		next, ok := Next(inv)
		if !ok || next.After(today) {
			continue
		}

		due = append(due, Occurrence{Source: inv, Date: next})
	}

	return due
}

func processable(inv *invoice.Invoice) bool {
	return inv.IsRecurring && inv.RecurringStartDate != nil && !inv.RecurringStartDate.IsZero()
}
