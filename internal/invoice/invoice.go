package invoice

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
)

var ErrNotFound = errors.New("invoice not found")

// Frequency is the repetition period of a recurring invoice.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyYearly:
		return true
	}

	return false
}

// Provenance markers stored in FileName for invoices that have no uploaded file.
const (
	FileNameManual    = "Manual Entry"
	FileNameRecurring = "Auto-generated (Recurring)"
)

// Item is a single invoice line.
type Item struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice is an expense record.
type Invoice struct {
	ID       uuid.UUID
	Provider string
	Date     calendar.Date
	Amount   decimal.Decimal // Subtotal before tax
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Items    []Item
	Category string
	FileName string

	IsRecurring        bool
	RecurringFrequency Frequency
	RecurringStartDate *calendar.Date
	LastProcessedDate  *calendar.Date // Set only by the recurring processor

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Key identifies the invoice inside a paginated cache.
func (inv Invoice) Key() string {
	return inv.ID.String()
}

// Successor returns the non-recurring copy of inv dated on date. The copy has
// no id and no recurring metadata.
func (inv Invoice) Successor(date calendar.Date) Invoice {
	next := inv
	next.ID = uuid.Nil
	next.Date = date
	next.FileName = FileNameRecurring
	next.IsRecurring = false
	next.RecurringFrequency = ""
	next.RecurringStartDate = nil
	next.LastProcessedDate = nil
	next.Items = append([]Item(nil), inv.Items...)
	next.CreatedAt = time.Time{}
	next.UpdatedAt = nil

	return next
}

// Matches reports whether term appears in the provider, the file name or any
// item description, ignoring case.
func (inv Invoice) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	if strings.Contains(strings.ToLower(inv.Provider), term) ||
		strings.Contains(strings.ToLower(inv.FileName), term) {
		return true
	}

	for _, item := range inv.Items {
		if strings.Contains(strings.ToLower(item.Description), term) {
			return true
		}
	}

	return false
}

// normalize recomputes derived amounts: each item total is quantity times unit
// price, and a missing total becomes amount plus tax.
func (inv *Invoice) normalize() {
	for i := range inv.Items {
		inv.Items[i].Total = inv.Items[i].Quantity.Mul(inv.Items[i].UnitPrice)
	}

	if inv.Total.IsZero() {
		inv.Total = inv.Amount.Add(inv.Tax)
	}
}

// Patch carries a partial update. Nil fields are left untouched. A zero
// RecurringStartDate clears the start date.
type Patch struct {
	Provider           *string          `json:"provider,omitempty"`
	Date               *calendar.Date   `json:"date,omitempty"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	Tax                *decimal.Decimal `json:"tax,omitempty"`
	Total              *decimal.Decimal `json:"total,omitempty"`
	Items              *[]Item          `json:"items,omitempty"`
	Category           *string          `json:"category,omitempty"`
	FileName           *string          `json:"fileName,omitempty"`
	IsRecurring        *bool            `json:"isRecurring,omitempty"`
	RecurringFrequency *Frequency       `json:"recurringFrequency,omitempty"`
	RecurringStartDate *calendar.Date   `json:"recurringStartDate,omitempty"`
}

// Apply writes the set fields of p onto inv.
func (p Patch) Apply(inv *Invoice) {
	if p.Provider != nil {
		inv.Provider = *p.Provider
	}

	if p.Date != nil {
		inv.Date = *p.Date
	}

	if p.Amount != nil {
		inv.Amount = *p.Amount
	}

	if p.Tax != nil {
		inv.Tax = *p.Tax
	}

	if p.Total != nil {
		inv.Total = *p.Total
	}

	if p.Items != nil {
		inv.Items = append([]Item(nil), (*p.Items)...)
	}

	if p.Category != nil {
		inv.Category = *p.Category
	}

	if p.FileName != nil {
		inv.FileName = *p.FileName
	}

	if p.IsRecurring != nil {
		inv.IsRecurring = *p.IsRecurring
	}

	if p.RecurringFrequency != nil {
		inv.RecurringFrequency = *p.RecurringFrequency
	}

	if p.RecurringStartDate != nil {
		if p.RecurringStartDate.IsZero() {
			inv.RecurringStartDate = nil
		} else {
			inv.RecurringStartDate = new(*p.RecurringStartDate)
		}
	}
}

// Parsed is the structured result of analysing an uploaded invoice file.
type Parsed struct {
	Provider string          `json:"provider"`
	Date     calendar.Date   `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Items    []Item          `json:"items"`
	Category string          `json:"category"`
}

// CreateParams turns an analysis result into create parameters for the given file.
func (p Parsed) CreateParams(fileName string) CreateParams {
	return CreateParams{
		Provider: p.Provider,
		Date:     p.Date,
		Amount:   p.Amount,
		Tax:      p.Tax,
		Total:    p.Total,
		Items:    p.Items,
		Category: p.Category,
		FileName: fileName,
	}
}
