package view

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
)

const dbTimeout = 5 * time.Second

// FormatAmount renders an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func FormatDate(d calendar.Date) string {
	if d.IsZero() {
		return "-"
	}

	return d.String()
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " cannot be empty")
		}

		return nil
	}
}

func validDate(s string) error {
	_, err := calendar.Parse(strings.TrimSpace(s))
	return err
}

func validAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("not a number")
	}

	if d.IsNegative() {
		return errors.New("cannot be negative")
	}

	return nil
}
