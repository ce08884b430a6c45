package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/invoicely/internal/settings"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetSettings(ctx context.Context, userID string) (settings.Settings, error) {
	query := `
		SELECT custom_expense_categories, custom_income_categories
		FROM settings
		WHERE user_id = $1
	`

	var expense, incomeCats []byte

	err := s.db.QueryRowContext(ctx, query, userID).Scan(&expense, &incomeCats)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.Settings{}, nil
		}

		return settings.Settings{}, fmt.Errorf("getting settings: %w", err)
	}

	var out settings.Settings

	if err := json.Unmarshal(expense, &out.CustomExpenseCategories); err != nil {
		return settings.Settings{}, fmt.Errorf("decoding expense categories: %w", err)
	}

	if err := json.Unmarshal(incomeCats, &out.CustomIncomeCategories); err != nil {
		return settings.Settings{}, fmt.Errorf("decoding income categories: %w", err)
	}

	return out, nil
}

// PutSettings upserts the document. Columns whose update field is nil keep
// their stored value.
func (s *Store) PutSettings(ctx context.Context, userID string, u settings.Update) error {
	query := `
		INSERT INTO settings (user_id, custom_expense_categories, custom_income_categories, updated_at)
		VALUES ($1, COALESCE($2::jsonb, '[]'::jsonb), COALESCE($3::jsonb, '[]'::jsonb), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			custom_expense_categories = COALESCE($2::jsonb, settings.custom_expense_categories),
			custom_income_categories = COALESCE($3::jsonb, settings.custom_income_categories),
			updated_at = NOW()
	`

	expense, err := jsonList(u.CustomExpenseCategories)
	if err != nil {
		return err
	}

	incomeCats, err := jsonList(u.CustomIncomeCategories)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, userID, expense, incomeCats); err != nil {
		return fmt.Errorf("putting settings: %w", err)
	}

	return nil
}

func jsonList(list *[]string) (sql.NullString, error) {
	if list == nil {
		return sql.NullString{}, nil
	}

	values := *list
	if values == nil {
		values = []string{}
	}

	b, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding categories: %w", err)
	}

	return sql.NullString{String: string(b), Valid: true}, nil
}
