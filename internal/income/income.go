package income

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
)

var ErrNotFound = errors.New("income not found")

// Income is a revenue record.
type Income struct {
	ID          uuid.UUID
	Source      string
	Date        calendar.Date
	Amount      decimal.Decimal
	Description string
	Category    string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Key identifies the record inside a paginated cache.
func (in Income) Key() string {
	return in.ID.String()
}

// Matches reports whether term appears in the source or the description,
// ignoring case.
func (in Income) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	return strings.Contains(strings.ToLower(in.Source), term) ||
		strings.Contains(strings.ToLower(in.Description), term)
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Source      *string          `json:"source,omitempty"`
	Date        *calendar.Date   `json:"date,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
}

func (p Patch) Apply(in *Income) {
	if p.Source != nil {
		in.Source = *p.Source
	}

	if p.Date != nil {
		in.Date = *p.Date
	}

	if p.Amount != nil {
		in.Amount = *p.Amount
	}

	if p.Description != nil {
		in.Description = *p.Description
	}

	if p.Category != nil {
		in.Category = *p.Category
	}
}
