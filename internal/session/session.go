// Package session wires the per-user core for a presentation layer: category
// sets, the recurring run at start and the two paginated collections.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
	"github.com/MrJamesThe3rd/invoicely/internal/recurring"
)

type Deps struct {
	Invoices   *invoice.Service
	Income     *income.Service
	Categories *category.Registry
	Recurring  *recurring.Processor
	PageSize   int
	Logger     *slog.Logger
}

type (
	InvoiceCollection = pagecache.Collection[invoice.Invoice, invoice.Patch]
	IncomeCollection  = pagecache.Collection[income.Income, income.Patch]
)

type Session struct {
	UserID   string
	Invoices *InvoiceCollection
	Income   *IncomeCollection

	// Generated is how many recurring successors the start-up run created.
	Generated int
	// RecurringErr is the start-up run failure, if any. It does not prevent
	// the session from opening; the next run retries.
	RecurringErr error

	registry  *category.Registry
	processor *recurring.Processor
	logger    *slog.Logger

	mu         sync.RWMutex
	categories category.Sets
}

// Open loads the category sets, runs the recurring processor once and fills
// the first page of both collections.
func Open(ctx context.Context, deps Deps, userID string) (*Session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		UserID:    userID,
		Invoices:  pagecache.NewCollection[invoice.Invoice, invoice.Patch](deps.Invoices.Feed(userID), deps.PageSize),
		Income:    pagecache.NewCollection[income.Income, income.Patch](deps.Income.Feed(userID), deps.PageSize),
		registry:  deps.Categories,
		processor: deps.Recurring,
		logger:    logger,
	}

	if err := s.ReloadCategories(ctx); err != nil {
		return nil, err
	}

	s.Generated, s.RecurringErr = s.processor.Run(ctx, userID)
	if s.RecurringErr != nil {
		logger.Warn("recurring run failed", "error", s.RecurringErr, "user_id", userID)
	}

	if err := s.Invoices.Reset(ctx); err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}

	if err := s.Income.Reset(ctx); err != nil {
		return nil, fmt.Errorf("loading income: %w", err)
	}

	return s, nil
}

// RunRecurring runs the processor again. When it generated anything the
// invoice collection is reloaded from the first page.
func (s *Session) RunRecurring(ctx context.Context) (int, error) {
	n, err := s.processor.Run(ctx, s.UserID)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		if err := s.Invoices.Reset(ctx); err != nil {
			return n, fmt.Errorf("reloading invoices: %w", err)
		}
	}

	return n, nil
}

func (s *Session) Categories() category.Sets {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.categories
}

func (s *Session) ReloadCategories(ctx context.Context) error {
	sets, err := s.registry.Load(ctx, s.UserID)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}

	s.mu.Lock()
	s.categories = sets
	s.mu.Unlock()

	return nil
}

func (s *Session) AddCategory(ctx context.Context, t category.Type, name string) (string, error) {
	added, err := s.registry.Add(ctx, s.UserID, t, name)
	if err != nil {
		return "", err
	}

	return added, s.ReloadCategories(ctx)
}

func (s *Session) RemoveCategory(ctx context.Context, t category.Type, name string) error {
	if err := s.registry.Remove(ctx, s.UserID, t, name); err != nil {
		return err
	}

	return s.ReloadCategories(ctx)
}
