// Package category manages the effective category sets: fixed defaults plus
// the custom entries a user keeps in settings.
package category

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/text/cases"
)

var (
	ErrDuplicate   = errors.New("duplicate category")
	ErrEmptyName   = errors.New("category name is empty")
	ErrUnknownType = errors.New("unknown category type")
)

// Type is the kind of record a category applies to.
type Type string

const (
	TypeExpense Type = "expense"
	TypeIncome  Type = "income"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeExpense, TypeIncome:
		return t, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

var defaults = map[Type][]string{
	TypeExpense: {
		"Software", "Utilities", "Office Supplies", "Marketing", "Travel", "Meals",
		"Services", "Rent", "Payroll", "Inventory", "Other",
	},
	TypeIncome: {
		"Salary", "Sales", "Freelance", "Investment", "Rental", "Other",
	},
}

// Defaults returns a copy of the fixed categories for t.
func Defaults(t Type) ([]string, error) {
	d, ok := defaults[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	return slices.Clone(d), nil
}

// Equal reports whether a and b name the same category under Unicode case folding.
func Equal(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

// Contains reports whether set holds a category equal to name.
func Contains(set []string, name string) bool {
	return slices.ContainsFunc(set, func(c string) bool { return Equal(c, name) })
}

// merge returns custom followed by defaults, skipping entries equal to one
// already present.
func merge(custom, defs []string) []string {
	out := make([]string, 0, len(custom)+len(defs))
	for _, c := range slices.Concat(custom, defs) {
		if !Contains(out, c) {
			out = append(out, c)
		}
	}

	return out
}
