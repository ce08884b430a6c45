package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/invoicely/internal/database"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectIncomeColumns = `
	id, source, date, amount, description, category, created_at, updated_at, seq
`

func scanIncome(s scanner) (*income.Income, int64, error) {
	var in income.Income

	var seq int64

	if err := s.Scan(
		&in.ID, &in.Source, &in.Date, &in.Amount, &in.Description, &in.Category,
		&in.CreatedAt, &in.UpdatedAt, &seq,
	); err != nil {
		return nil, 0, err
	}

	return &in, seq, nil
}

func (s *Store) CreateIncome(ctx context.Context, userID string, in *income.Income) error {
	query := `
		INSERT INTO income (user_id, source, date, amount, description, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		userID,
		in.Source,
		in.Date,
		in.Amount,
		in.Description,
		in.Category,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating income: %w", err)
	}

	return nil
}

func (s *Store) GetIncome(ctx context.Context, userID string, id uuid.UUID) (*income.Income, error) {
	query := `SELECT ` + selectIncomeColumns + `
		FROM income
		WHERE user_id = $1 AND id = $2`

	in, _, err := scanIncome(s.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, income.ErrNotFound
		}

		return nil, fmt.Errorf("getting income: %w", err)
	}

	return in, nil
}

func (s *Store) UpdateIncome(ctx context.Context, userID string, in *income.Income) error {
	query := `
		UPDATE income
		SET source = $1, date = $2, amount = $3, description = $4, category = $5, updated_at = NOW()
		WHERE user_id = $6 AND id = $7
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		in.Source,
		in.Date,
		in.Amount,
		in.Description,
		in.Category,
		userID,
		in.ID,
	).Scan(&in.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return income.ErrNotFound
		}

		return fmt.Errorf("updating income: %w", err)
	}

	return nil
}

func (s *Store) DeleteIncome(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM income WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting income: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting income: %w", err)
	}

	if n == 0 {
		return income.ErrNotFound
	}

	return nil
}

func (s *Store) PageIncome(ctx context.Context, userID, cursor string, limit int) (pagecache.Page[income.Income], error) {
	after, err := database.DecodeCursor(cursor)
	if err != nil {
		return pagecache.Page[income.Income]{}, err
	}

	query := `SELECT ` + selectIncomeColumns + `
		FROM income
		WHERE user_id = $1`
	args := []any{userID}

	if after != nil {
		query += ` AND (date, seq) < ($2::date, $3)`

		args = append(args, after.Date, after.Seq)
	}

	query += fmt.Sprintf(" ORDER BY date DESC, seq DESC LIMIT $%d", len(args)+1)

	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return pagecache.Page[income.Income]{}, fmt.Errorf("paging income: %w", err)
	}
	defer rows.Close()

	var page pagecache.Page[income.Income]

	var last database.Cursor

	for rows.Next() {
		in, seq, err := scanIncome(rows)
		if err != nil {
			return pagecache.Page[income.Income]{}, fmt.Errorf("scanning income: %w", err)
		}

		if len(page.Items) == limit {
			page.More = true
			break
		}

		page.Items = append(page.Items, *in)
		last = database.Cursor{Date: in.Date, Seq: seq}
	}

	if err := rows.Err(); err != nil {
		return pagecache.Page[income.Income]{}, fmt.Errorf("iterating income rows: %w", err)
	}

	if len(page.Items) > 0 {
		page.Cursor = last.Encode()
	}

	return page, nil
}

func (s *Store) ListIncome(ctx context.Context, userID string) ([]*income.Income, error) {
	query := `SELECT ` + selectIncomeColumns + `
		FROM income
		WHERE user_id = $1
		ORDER BY date DESC, seq DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing income: %w", err)
	}
	defer rows.Close()

	var records []*income.Income

	for rows.Next() {
		in, _, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning income: %w", err)
		}

		records = append(records, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating income rows: %w", err)
	}

	return records, nil
}
