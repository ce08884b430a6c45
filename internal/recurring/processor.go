// Package recurring generates the due successors of recurring invoices.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
)

// ErrConflict is returned when a source invoice was advanced by someone else
// between listing and committing.
var ErrConflict = errors.New("recurring invoice advanced concurrently")

//go:generate mockgen -source=processor.go -destination=repository_mock.go -package=recurring
type Repository interface {
	// ListRecurring returns every invoice of the user flagged recurring.
	ListRecurring(ctx context.Context, userID string) ([]*invoice.Invoice, error)
	BeginBatch(ctx context.Context, userID string) (Batch, error)
}

// Batch stages writes that become visible together on Commit.
type Batch interface {
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	// SetLastProcessed moves the watermark of a source invoice from prev to
	// next. It fails with ErrConflict when the stored value is no longer prev.
	SetLastProcessed(ctx context.Context, id uuid.UUID, prev *calendar.Date, next calendar.Date) error
	Commit() error
	Rollback() error
}

type Processor struct {
	repo   Repository
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

type Option func(*Processor)

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithLocation sets the time zone that decides which calendar day is today.
func WithLocation(loc *time.Location) Option {
	return func(p *Processor) { p.loc = loc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

func NewProcessor(repo Repository, opts ...Option) *Processor {
	p := &Processor{
		repo:   repo,
		now:    time.Now,
		loc:    time.UTC,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Today is the current calendar day in the processor's location.
func (p *Processor) Today() calendar.Date {
	return calendar.Today(p.now(), p.loc)
}

// Run generates one successor for every due recurring invoice of the user and
// advances their watermarks, all in one batch. It returns how many successors
// were created. On any failure nothing is written and the count is 0.
func (p *Processor) Run(ctx context.Context, userID string) (int, error) {
	invoices, err := p.repo.ListRecurring(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list recurring: %w", err)
	}

	for _, inv := range invoices {
		if processable(inv) && !inv.RecurringFrequency.IsValid() {
			p.logger.Warn("recurring invoice has unknown frequency",
				"invoice_id", inv.ID, "frequency", inv.RecurringFrequency, "user_id", userID)
		}
	}

	due := Plan(invoices, p.Today())
	if len(due) == 0 {
		return 0, nil
	}

	batch, err := p.repo.BeginBatch(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer batch.Rollback()

	for _, occ := range due {
		successor := occ.Source.Successor(occ.Date)
		if err := batch.CreateInvoice(ctx, &successor); err != nil {
			return 0, fmt.Errorf("create successor of %s: %w", occ.Source.ID, err)
		}

		if err := batch.SetLastProcessed(ctx, occ.Source.ID, occ.Source.LastProcessedDate, occ.Date); err != nil {
			return 0, fmt.Errorf("advance %s: %w", occ.Source.ID, err)
		}
	}

	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	p.logger.Info("generated recurring invoices", "count", len(due), "user_id", userID)

	return len(due), nil
}
