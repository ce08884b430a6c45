package category

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MrJamesThe3rd/invoicely/internal/settings"
)

// Sets holds both effective category lists of a user.
type Sets struct {
	Expense []string
	Income  []string
}

// Of returns the list for t.
func (s Sets) Of(t Type) []string {
	if t == TypeIncome {
		return s.Income
	}

	return s.Expense
}

// Registry reads and writes custom categories through the settings document.
// It keeps no state between calls; concurrent writers race at document level
// and the last write wins.
type Registry struct {
	repo settings.Repository
}

func NewRegistry(repo settings.Repository) *Registry {
	return &Registry{repo: repo}
}

func custom(s settings.Settings, t Type) []string {
	if t == TypeIncome {
		return s.CustomIncomeCategories
	}

	return s.CustomExpenseCategories
}

func update(t Type, list []string) settings.Update {
	if t == TypeIncome {
		return settings.Update{CustomIncomeCategories: &list}
	}

	return settings.Update{CustomExpenseCategories: &list}
}

// Load returns both effective sets from a single settings read.
func (r *Registry) Load(ctx context.Context, userID string) (Sets, error) {
	s, err := r.repo.GetSettings(ctx, userID)
	if err != nil {
		return Sets{}, fmt.Errorf("loading settings: %w", err)
	}

	return Sets{
		Expense: merge(s.CustomExpenseCategories, defaults[TypeExpense]),
		Income:  merge(s.CustomIncomeCategories, defaults[TypeIncome]),
	}, nil
}

// Custom returns the user-defined categories for t in insertion order.
func (r *Registry) Custom(ctx context.Context, userID string, t Type) ([]string, error) {
	if _, err := Defaults(t); err != nil {
		return nil, err
	}

	s, err := r.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	return slices.Clone(custom(s, t)), nil
}

// Effective returns the custom categories for t followed by the defaults.
func (r *Registry) Effective(ctx context.Context, userID string, t Type) ([]string, error) {
	defs, err := Defaults(t)
	if err != nil {
		return nil, err
	}

	s, err := r.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	return merge(custom(s, t), defs), nil
}

// Add appends name to the custom list of t and persists the whole list. It
// returns the stored (trimmed) name.
func (r *Registry) Add(ctx context.Context, userID string, t Type, name string) (string, error) {
	defs, err := Defaults(t)
	if err != nil {
		return "", err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}

	s, err := r.repo.GetSettings(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading settings: %w", err)
	}

	list := custom(s, t)
	if Contains(list, name) || Contains(defs, name) {
		return "", fmt.Errorf("%w: %q", ErrDuplicate, name)
	}

	next := append(slices.Clone(list), name)
	if err := r.repo.PutSettings(ctx, userID, update(t, next)); err != nil {
		return "", fmt.Errorf("saving categories: %w", err)
	}

	return name, nil
}

// Remove drops name from the custom list of t by exact match. Defaults cannot
// be removed. A name that is not present is ignored and nothing is written.
func (r *Registry) Remove(ctx context.Context, userID string, t Type, name string) error {
	if _, err := Defaults(t); err != nil {
		return err
	}

	s, err := r.repo.GetSettings(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	list := custom(s, t)
	if !slices.Contains(list, name) {
		return nil
	}

	next := slices.DeleteFunc(slices.Clone(list), func(c string) bool { return c == name })
	if err := r.repo.PutSettings(ctx, userID, update(t, next)); err != nil {
		return fmt.Errorf("saving categories: %w", err)
	}

	return nil
}
