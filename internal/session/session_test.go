package session_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
	"github.com/MrJamesThe3rd/invoicely/internal/recurring"
	"github.com/MrJamesThe3rd/invoicely/internal/session"
	"github.com/MrJamesThe3rd/invoicely/internal/settings"
)

const userID = "user-1"

type mocks struct {
	invoices  *invoice.MockRepository
	income    *income.MockRepository
	settings  *settings.MockRepository
	recurring *recurring.MockRepository
	batch     *recurring.MockBatch
	logs      *bytes.Buffer
}

func newDeps(t *testing.T) (session.Deps, mocks) {
	ctrl := gomock.NewController(t)

	m := mocks{
		invoices:  invoice.NewMockRepository(ctrl),
		income:    income.NewMockRepository(ctrl),
		settings:  settings.NewMockRepository(ctrl),
		recurring: recurring.NewMockRepository(ctrl),
		batch:     recurring.NewMockBatch(ctrl),
		logs:      &bytes.Buffer{},
	}

	logger := slog.New(slog.NewTextHandler(m.logs, nil))
	today := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	deps := session.Deps{
		Invoices:   invoice.NewService(m.invoices),
		Income:     income.NewService(m.income),
		Categories: category.NewRegistry(m.settings),
		Recurring: recurring.NewProcessor(m.recurring,
			recurring.WithClock(func() time.Time { return today }),
			recurring.WithLogger(logger),
		),
		PageSize: 20,
		Logger:   logger,
	}

	return deps, m
}

func dueInvoice() *invoice.Invoice {
	start := calendar.New(2024, time.January, 31)

	return &invoice.Invoice{
		ID:                 uuid.New(),
		Provider:           "Landlord",
		Date:               start,
		Total:              decimal.NewFromInt(900),
		Category:           "Rent",
		IsRecurring:        true,
		RecurringFrequency: invoice.FrequencyMonthly,
		RecurringStartDate: &start,
	}
}

func expectCommittedRun(m mocks, src *invoice.Invoice) {
	m.recurring.EXPECT().ListRecurring(gomock.Any(), userID).Return([]*invoice.Invoice{src}, nil)
	m.recurring.EXPECT().BeginBatch(gomock.Any(), userID).Return(m.batch, nil)
	m.batch.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
	m.batch.EXPECT().SetLastProcessed(gomock.Any(), src.ID, gomock.Nil(), calendar.New(2024, time.February, 29)).Return(nil)
	m.batch.EXPECT().Commit().Return(nil)
	m.batch.EXPECT().Rollback().Return(nil)
}

func TestOpen(t *testing.T) {
	deps, m := newDeps(t)

	m.settings.EXPECT().GetSettings(gomock.Any(), userID).Return(settings.Settings{
		CustomExpenseCategories: []string{"Hosting"},
	}, nil)
	expectCommittedRun(m, dueInvoice())
	m.invoices.EXPECT().
		PageInvoices(gomock.Any(), userID, "", 20).
		Return(pagecache.Page[invoice.Invoice]{Items: []invoice.Invoice{{ID: uuid.New()}}, Cursor: "c1"}, nil)
	m.income.EXPECT().
		PageIncome(gomock.Any(), userID, "", 20).
		Return(pagecache.Page[income.Income]{}, nil)

	s, err := session.Open(context.Background(), deps, userID)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Generated)
	assert.NoError(t, s.RecurringErr)
	assert.Len(t, s.Invoices.Items(), 1)
	assert.Empty(t, s.Income.Items())
	assert.Equal(t, "Hosting", s.Categories().Expense[0])
	assert.Equal(t, "Salary", s.Categories().Income[0])
}

func TestOpen_RecurringFailureIsNotFatal(t *testing.T) {
	deps, m := newDeps(t)

	m.settings.EXPECT().GetSettings(gomock.Any(), userID).Return(settings.Settings{}, nil)
	m.recurring.EXPECT().ListRecurring(gomock.Any(), userID).Return(nil, errors.New("db down"))
	m.invoices.EXPECT().PageInvoices(gomock.Any(), userID, "", 20).Return(pagecache.Page[invoice.Invoice]{}, nil)
	m.income.EXPECT().PageIncome(gomock.Any(), userID, "", 20).Return(pagecache.Page[income.Income]{}, nil)

	s, err := session.Open(context.Background(), deps, userID)
	require.NoError(t, err)
	assert.Error(t, s.RecurringErr)
	assert.Zero(t, s.Generated)
	assert.Contains(t, m.logs.String(), "recurring run failed")
}

func TestOpen_CategoryFailureAborts(t *testing.T) {
	deps, m := newDeps(t)

	m.settings.EXPECT().GetSettings(gomock.Any(), userID).Return(settings.Settings{}, errors.New("timeout"))

	_, err := session.Open(context.Background(), deps, userID)
	require.Error(t, err)
}

func TestSession_RunRecurring(t *testing.T) {
	t.Run("ResetsInvoicesWhenGenerated", func(t *testing.T) {
		deps, m := newDeps(t)

		m.settings.EXPECT().GetSettings(gomock.Any(), userID).Return(settings.Settings{}, nil)
		m.recurring.EXPECT().ListRecurring(gomock.Any(), userID).Return(nil, nil)
		m.income.EXPECT().PageIncome(gomock.Any(), userID, "", 20).Return(pagecache.Page[income.Income]{}, nil)

		before := invoice.Invoice{ID: uuid.New(), Provider: "before"}
		after := invoice.Invoice{ID: uuid.New(), Provider: "successor"}

		gomock.InOrder(
			m.invoices.EXPECT().
				PageInvoices(gomock.Any(), userID, "", 20).
				Return(pagecache.Page[invoice.Invoice]{Items: []invoice.Invoice{before}, Cursor: "c"}, nil),
			m.invoices.EXPECT().
				PageInvoices(gomock.Any(), userID, "", 20).
				Return(pagecache.Page[invoice.Invoice]{Items: []invoice.Invoice{after, before}, Cursor: "c"}, nil),
		)

		s, err := session.Open(context.Background(), deps, userID)
		require.NoError(t, err)
		require.Len(t, s.Invoices.Items(), 1)

		expectCommittedRun(m, dueInvoice())

		n, err := s.RunRecurring(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		items := s.Invoices.Items()
		require.Len(t, items, 2)
		assert.Equal(t, "successor", items[0].Provider)
	})

	t.Run("NoResetWhenNothingDue", func(t *testing.T) {
		deps, m := newDeps(t)

		m.settings.EXPECT().GetSettings(gomock.Any(), userID).Return(settings.Settings{}, nil)
		m.recurring.EXPECT().ListRecurring(gomock.Any(), userID).Return(nil, nil).Times(2)
		m.invoices.EXPECT().PageInvoices(gomock.Any(), userID, "", 20).Return(pagecache.Page[invoice.Invoice]{}, nil).Times(1)
		m.income.EXPECT().PageIncome(gomock.Any(), userID, "", 20).Return(pagecache.Page[income.Income]{}, nil)

		s, err := session.Open(context.Background(), deps, userID)
		require.NoError(t, err)

		n, err := s.RunRecurring(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestSession_Categories(t *testing.T) {
	deps, m := newDeps(t)

	m.recurring.EXPECT().ListRecurring(gomock.Any(), userID).Return(nil, nil)
	m.invoices.EXPECT().PageInvoices(gomock.Any(), userID, "", 20).Return(pagecache.Page[invoice.Invoice]{}, nil)
	m.income.EXPECT().PageIncome(gomock.Any(), userID, "", 20).Return(pagecache.Page[income.Income]{}, nil)

	gomock.InOrder(
		m.settings.EXPECT().GetSettings(gomock.Any(), userID).Return(settings.Settings{}, nil).Times(2),
		m.settings.EXPECT().PutSettings(gomock.Any(), userID, settings.Update{
			CustomIncomeCategories: &[]string{"Grants"},
		}).Return(nil),
		m.settings.EXPECT().GetSettings(gomock.Any(), userID).Return(settings.Settings{
			CustomIncomeCategories: []string{"Grants"},
		}, nil),
	)

	s, err := session.Open(context.Background(), deps, userID)
	require.NoError(t, err)

	added, err := s.AddCategory(context.Background(), category.TypeIncome, " Grants ")
	require.NoError(t, err)
	assert.Equal(t, "Grants", added)
	assert.Equal(t, "Grants", s.Categories().Income[0])
}
