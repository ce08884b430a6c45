package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/database"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
	"github.com/MrJamesThe3rd/invoicely/internal/recurring"
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

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// items stores invoice lines as a jsonb array.
type items []invoice.Item

func (it items) Value() (driver.Value, error) {
	if it == nil {
		return "[]", nil
	}

	b, err := json.Marshal([]invoice.Item(it))
	if err != nil {
		return nil, fmt.Errorf("encoding items: %w", err)
	}

	return string(b), nil
}

func (it *items) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*it = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scanning items: unsupported type %T", src)
	}

	return json.Unmarshal(raw, (*[]invoice.Item)(it))
}

const selectInvoiceColumns = `
	id, provider, date, amount, tax, total, items, category, file_name,
	is_recurring, recurring_frequency, recurring_start_date, last_processed_date,
	created_at, updated_at, seq
`

// scanInvoice reads a row in selectInvoiceColumns order and also returns its seq.
func scanInvoice(s scanner) (*invoice.Invoice, int64, error) {
	var inv invoice.Invoice

	var lines items

	var frequency sql.NullString

	var start, last calendar.Date

	var seq int64

	if err := s.Scan(
		&inv.ID, &inv.Provider, &inv.Date, &inv.Amount, &inv.Tax, &inv.Total, &lines, &inv.Category, &inv.FileName,
		&inv.IsRecurring, &frequency, &start, &last,
		&inv.CreatedAt, &inv.UpdatedAt, &seq,
	); err != nil {
		return nil, 0, err
	}

	inv.Items = lines
	inv.RecurringFrequency = invoice.Frequency(frequency.String)

	if !start.IsZero() {
		inv.RecurringStartDate = &start
	}

	if !last.IsZero() {
		inv.LastProcessedDate = &last
	}

	return &inv, seq, nil
}

func nullFrequency(f invoice.Frequency) sql.NullString {
	return sql.NullString{String: string(f), Valid: f != ""}
}

const insertInvoice = `
	INSERT INTO invoices (
		user_id, provider, date, amount, tax, total, items, category, file_name,
		is_recurring, recurring_frequency, recurring_start_date, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	RETURNING id, created_at
`

func createInvoice(ctx context.Context, q queryer, userID string, inv *invoice.Invoice) error {
	err := q.QueryRowContext(ctx, insertInvoice,
		userID,
		inv.Provider,
		inv.Date,
		inv.Amount,
		inv.Tax,
		inv.Total,
		items(inv.Items),
		inv.Category,
		inv.FileName,
		inv.IsRecurring,
		nullFrequency(inv.RecurringFrequency),
		inv.RecurringStartDate,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, userID string, inv *invoice.Invoice) error {
	return createInvoice(ctx, s.db, userID, inv)
}

func (s *Store) GetInvoice(ctx context.Context, userID string, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE user_id = $1 AND id = $2`

	inv, _, err := scanInvoice(s.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

// UpdateInvoice writes every user-editable field. The recurring watermark is
// owned by the processor and is left alone.
func (s *Store) UpdateInvoice(ctx context.Context, userID string, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices
		SET provider = $1, date = $2, amount = $3, tax = $4, total = $5, items = $6,
			category = $7, file_name = $8, is_recurring = $9, recurring_frequency = $10,
			recurring_start_date = $11, updated_at = NOW()
		WHERE user_id = $12 AND id = $13
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		inv.Provider,
		inv.Date,
		inv.Amount,
		inv.Tax,
		inv.Total,
		items(inv.Items),
		inv.Category,
		inv.FileName,
		inv.IsRecurring,
		nullFrequency(inv.RecurringFrequency),
		inv.RecurringStartDate,
		userID,
		inv.ID,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invoice.ErrNotFound
		}

		return fmt.Errorf("updating invoice: %w", err)
	}

	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	if n == 0 {
		return invoice.ErrNotFound
	}

	return nil
}

// PageInvoices reads one row past limit to learn whether another page exists.
func (s *Store) PageInvoices(ctx context.Context, userID, cursor string, limit int) (pagecache.Page[invoice.Invoice], error) {
	after, err := database.DecodeCursor(cursor)
	if err != nil {
		return pagecache.Page[invoice.Invoice]{}, err
	}

	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
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
		return pagecache.Page[invoice.Invoice]{}, fmt.Errorf("paging invoices: %w", err)
	}
	defer rows.Close()

	var page pagecache.Page[invoice.Invoice]

	var last database.Cursor

	for rows.Next() {
		inv, seq, err := scanInvoice(rows)
		if err != nil {
			return pagecache.Page[invoice.Invoice]{}, fmt.Errorf("scanning invoice: %w", err)
		}

		if len(page.Items) == limit {
			page.More = true
			break
		}

		page.Items = append(page.Items, *inv)
		last = database.Cursor{Date: inv.Date, Seq: seq}
	}

	if err := rows.Err(); err != nil {
		return pagecache.Page[invoice.Invoice]{}, fmt.Errorf("iterating invoice rows: %w", err)
	}

	if len(page.Items) > 0 {
		page.Cursor = last.Encode()
	}

	return page, nil
}

func (s *Store) ListInvoices(ctx context.Context, userID string) ([]*invoice.Invoice, error) {
	return s.list(ctx, userID, false)
}

// ListRecurring returns every invoice flagged recurring, malformed ones included.
func (s *Store) ListRecurring(ctx context.Context, userID string) ([]*invoice.Invoice, error) {
	return s.list(ctx, userID, true)
}

func (s *Store) list(ctx context.Context, userID string, recurringOnly bool) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE user_id = $1`

	if recurringOnly {
		query += ` AND is_recurring`
	}

	query += ` ORDER BY date DESC, seq DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, _, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}

	return invoices, nil
}

func recurringLockKey(userID string) int64 {
	h := fnv.New64a()
	h.Write([]byte("recurring"))
	h.Write([]byte{0})
	h.Write([]byte(userID))

	return int64(h.Sum64())
}

type batch struct {
	tx     *sql.Tx
	userID string
}

// BeginBatch opens a transaction holding the user's recurring lock until it ends.
func (s *Store) BeginBatch(ctx context.Context, userID string) (recurring.Batch, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning recurring tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", recurringLockKey(userID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring recurring lock: %w", err)
	}

	return &batch{tx: dbTx, userID: userID}, nil
}

func (b *batch) Commit() error   { return b.tx.Commit() }
func (b *batch) Rollback() error { return b.tx.Rollback() }

func (b *batch) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	return createInvoice(ctx, b.tx, b.userID, inv)
}

func (b *batch) SetLastProcessed(ctx context.Context, id uuid.UUID, prev *calendar.Date, next calendar.Date) error {
	query := `
		UPDATE invoices
		SET last_processed_date = $1, updated_at = NOW()
		WHERE user_id = $2 AND id = $3 AND last_processed_date IS NOT DISTINCT FROM $4::date
	`

	res, err := b.tx.ExecContext(ctx, query, next, b.userID, id, prev)
	if err != nil {
		return fmt.Errorf("advancing recurring invoice: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advancing recurring invoice: %w", err)
	}

	if n == 0 {
		return recurring.ErrConflict
	}

	return nil
}
