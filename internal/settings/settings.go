// Package settings holds the per-user settings document.
package settings

import (
	"context"
	"slices"
)

// Settings is the general settings document of one user.
type Settings struct {
	CustomExpenseCategories []string `json:"customExpenseCategories"`
	CustomIncomeCategories  []string `json:"customIncomeCategories"`
}

// Update is a partial write. Nil fields are left untouched.
type Update struct {
	CustomExpenseCategories *[]string
	CustomIncomeCategories  *[]string
}

// Apply merges u into s.
func (s *Settings) Apply(u Update) {
	if u.CustomExpenseCategories != nil {
		s.CustomExpenseCategories = slices.Clone(*u.CustomExpenseCategories)
	}

	if u.CustomIncomeCategories != nil {
		s.CustomIncomeCategories = slices.Clone(*u.CustomIncomeCategories)
	}
}

//go:generate mockgen -source=settings.go -destination=repository_mock.go -package=settings
type Repository interface {
	// GetSettings returns the stored document, or a zero one if none exists.
	GetSettings(ctx context.Context, userID string) (Settings, error)
	// PutSettings merges u into the stored document, creating it if needed.
	PutSettings(ctx context.Context, userID string, u Update) error
}
