package recurring_test

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
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/recurring"
)

const userID = "user-1"

// memRepo keeps invoices in memory and applies batches only on Commit.
type memRepo struct {
	invoices    []*invoice.Invoice
	commitErr   error
	beforeBegin func(r *memRepo)
	batches     int
}

func clone(inv *invoice.Invoice) *invoice.Invoice {
	c := *inv
	c.Items = append([]invoice.Item(nil), inv.Items...)

	if inv.RecurringStartDate != nil {
		c.RecurringStartDate = new(*inv.RecurringStartDate)
	}

	if inv.LastProcessedDate != nil {
		c.LastProcessedDate = new(*inv.LastProcessedDate)
	}

	return &c
}

func (r *memRepo) ListRecurring(_ context.Context, _ string) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice

	for _, inv := range r.invoices {
		if inv.IsRecurring {
			out = append(out, clone(inv))
		}
	}

	return out, nil
}

func (r *memRepo) BeginBatch(_ context.Context, _ string) (recurring.Batch, error) {
	if r.beforeBegin != nil {
		r.beforeBegin(r)
	}

	r.batches++

	return &memBatch{repo: r}, nil
}

func (r *memRepo) find(id uuid.UUID) *invoice.Invoice {
	for _, inv := range r.invoices {
		if inv.ID == id {
			return inv
		}
	}

	return nil
}

type advance struct {
	id   uuid.UUID
	next calendar.Date
}

type memBatch struct {
	repo     *memRepo
	creates  []*invoice.Invoice
	advances []advance
	done     bool
}

func (b *memBatch) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	inv.ID = uuid.New()
	b.creates = append(b.creates, clone(inv))

	return nil
}

func (b *memBatch) SetLastProcessed(_ context.Context, id uuid.UUID, prev *calendar.Date, next calendar.Date) error {
	stored := b.repo.find(id)
	if stored == nil {
		return invoice.ErrNotFound
	}

	cur := stored.LastProcessedDate
	if (cur == nil) != (prev == nil) || (cur != nil && *cur != *prev) {
		return recurring.ErrConflict
	}

	b.advances = append(b.advances, advance{id: id, next: next})

	return nil
}

func (b *memBatch) Commit() error {
	if b.done {
		return errors.New("batch already finished")
	}

	b.done = true

	if b.repo.commitErr != nil {
		return b.repo.commitErr
	}

	b.repo.invoices = append(b.repo.invoices, b.creates...)
	for _, a := range b.advances {
		b.repo.find(a.id).LastProcessedDate = new(a.next)
	}

	return nil
}

func (b *memBatch) Rollback() error {
	b.done = true
	return nil
}

func recurringInvoice(start calendar.Date, freq invoice.Frequency) *invoice.Invoice {
	return &invoice.Invoice{
		ID:                 uuid.New(),
		Provider:           "Landlord",
		Date:               start,
		Amount:             decimal.NewFromInt(900),
		Total:              decimal.NewFromInt(900),
		Category:           "Rent",
		FileName:           invoice.FileNameManual,
		IsRecurring:        true,
		RecurringFrequency: freq,
		RecurringStartDate: new(start),
	}
}

func clockAt(d calendar.Date) recurring.Option {
	return recurring.WithClock(func() time.Time {
		return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
	})
}

func TestPlan(t *testing.T) {
	today := calendar.New(2024, time.March, 1)

	type testCase struct {
		name     string
		invoice  func() *invoice.Invoice
		wantDue  bool
		wantDate calendar.Date
	}

	tests := []testCase{
		{
			name:     "MonthlyDue",
			invoice:  func() *invoice.Invoice { return recurringInvoice(calendar.New(2024, time.January, 15), invoice.FrequencyMonthly) },
			wantDue:  true,
			wantDate: calendar.New(2024, time.February, 15),
		},
		{
			name:     "DueExactlyToday",
			invoice:  func() *invoice.Invoice { return recurringInvoice(calendar.New(2024, time.February, 1), invoice.FrequencyMonthly) },
			wantDue:  true,
			wantDate: today,
		},
		{
			name:    "NotYetDue",
			invoice: func() *invoice.Invoice { return recurringInvoice(calendar.New(2024, time.February, 2), invoice.FrequencyMonthly) },
		},
		{
			name:     "ClampsToEndOfFebruary",
			invoice:  func() *invoice.Invoice { return recurringInvoice(calendar.New(2024, time.January, 31), invoice.FrequencyMonthly) },
			wantDue:  true,
			wantDate: calendar.New(2024, time.February, 29),
		},
		{
			name:     "YearlyDue",
			invoice:  func() *invoice.Invoice { return recurringInvoice(calendar.New(2023, time.February, 28), invoice.FrequencyYearly) },
			wantDue:  true,
			wantDate: calendar.New(2024, time.February, 28),
		},
		{
			name:    "YearlyNotDue",
			invoice: func() *invoice.Invoice { return recurringInvoice(calendar.New(2023, time.June, 1), invoice.FrequencyYearly) },
		},
		{
			name: "AnchorsOnLastProcessed",
			invoice: func() *invoice.Invoice {
				inv := recurringInvoice(calendar.New(2023, time.October, 10), invoice.FrequencyMonthly)
				inv.LastProcessedDate = new(calendar.New(2024, time.January, 10))
				return inv
			},
			wantDue:  true,
			wantDate: calendar.New(2024, time.February, 10),
		},
		{
			name: "MissingStartDate",
			invoice: func() *invoice.Invoice {
				inv := recurringInvoice(calendar.New(2023, time.January, 1), invoice.FrequencyMonthly)
				inv.RecurringStartDate = nil
				return inv
			},
		},
		{
			name: "NotRecurring",
			invoice: func() *invoice.Invoice {
				inv := recurringInvoice(calendar.New(2023, time.January, 1), invoice.FrequencyMonthly)
				inv.IsRecurring = false
				return inv
			},
		},
		{
			name:    "UnknownFrequency",
			invoice: func() *invoice.Invoice { return recurringInvoice(calendar.New(2020, time.January, 1), "weekly") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := recurring.Plan([]*invoice.Invoice{tt.invoice()}, today)

			if !tt.wantDue {
				assert.Empty(t, due)
				return
			}

			require.Len(t, due, 1)
			assert.Equal(t, tt.wantDate, due[0].Date)
		})
	}
}

func TestAnchor(t *testing.T) {
	date := calendar.New(2024, time.January, 5)
	start := calendar.New(2024, time.January, 10)
	last := calendar.New(2024, time.March, 10)

	inv := &invoice.Invoice{Date: date}
	assert.Equal(t, date, recurring.Anchor(inv))

	inv.RecurringStartDate = &start
	assert.Equal(t, start, recurring.Anchor(inv))

	inv.LastProcessedDate = &last
	assert.Equal(t, last, recurring.Anchor(inv))
}

func TestNext_UnknownFrequencyDoesNotAdvance(t *testing.T) {
	inv := recurringInvoice(calendar.New(2024, time.January, 5), "fortnightly")

	next, ok := recurring.Next(inv)
	assert.False(t, ok)
	assert.Equal(t, calendar.New(2024, time.January, 5), next)
}

func TestProcessor_LeapYearScenario(t *testing.T) {
	start := calendar.New(2024, time.January, 31)
	src := recurringInvoice(start, invoice.FrequencyMonthly)
	repo := &memRepo{invoices: []*invoice.Invoice{src}}

	p := recurring.NewProcessor(repo, clockAt(calendar.New(2024, time.March, 1)))

	n, err := p.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, repo.invoices, 2)
	require.NotNil(t, src.LastProcessedDate)
	assert.Equal(t, calendar.New(2024, time.February, 29), *src.LastProcessedDate)

	successor := repo.invoices[1]
	assert.Equal(t, calendar.New(2024, time.February, 29), successor.Date)
	assert.Equal(t, invoice.FileNameRecurring, successor.FileName)
	assert.False(t, successor.IsRecurring)
	assert.Empty(t, successor.RecurringFrequency)
	assert.Nil(t, successor.RecurringStartDate)
	assert.Nil(t, successor.LastProcessedDate)
	assert.NotEqual(t, src.ID, successor.ID)
	assert.Equal(t, src.Provider, successor.Provider)
	assert.True(t, src.Total.Equal(successor.Total))
}

func TestProcessor_Idempotence(t *testing.T) {
	repo := &memRepo{invoices: []*invoice.Invoice{
		recurringInvoice(calendar.New(2024, time.February, 10), invoice.FrequencyMonthly),
		recurringInvoice(calendar.New(2023, time.March, 1), invoice.FrequencyYearly),
	}}
	p := recurring.NewProcessor(repo, clockAt(calendar.New(2024, time.March, 15)))

	first, err := p.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, first)
	assert.Len(t, repo.invoices, 2+first)

	second, err := p.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Len(t, repo.invoices, 2+first)
	assert.Equal(t, 1, repo.batches, "no batch when nothing is due")
}

func TestProcessor_SinglePeriodPerRun(t *testing.T) {
	today := calendar.New(2024, time.June, 15)
	start := today.AddMonths(-3)
	src := recurringInvoice(start, invoice.FrequencyMonthly)
	repo := &memRepo{invoices: []*invoice.Invoice{src}}
	p := recurring.NewProcessor(repo, clockAt(today))

	n, err := p.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, repo.invoices, 2)
	assert.Equal(t, start.AddMonths(1), repo.invoices[1].Date)

	// Each further run catches up one more period.
	for _, want := range []calendar.Date{start.AddMonths(2), start.AddMonths(3)} {
		n, err = p.Run(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, want, *src.LastProcessedDate)
	}

	n, err = p.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, repo.invoices, 4)
}

func TestProcessor_Atomicity(t *testing.T) {
	a := recurringInvoice(calendar.New(2024, time.January, 10), invoice.FrequencyMonthly)
	b := recurringInvoice(calendar.New(2024, time.January, 20), invoice.FrequencyMonthly)
	repo := &memRepo{
		invoices:  []*invoice.Invoice{a, b},
		commitErr: errors.New("write conflict"),
	}
	p := recurring.NewProcessor(repo, clockAt(calendar.New(2024, time.March, 1)))

	n, err := p.Run(context.Background(), userID)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, repo.invoices, 2, "no successors exist")
	assert.Nil(t, a.LastProcessedDate)
	assert.Nil(t, b.LastProcessedDate)

	repo.commitErr = nil

	n, err = p.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "next run retries fully")
}

func TestProcessor_ConcurrentAdvanceConflicts(t *testing.T) {
	src := recurringInvoice(calendar.New(2024, time.January, 10), invoice.FrequencyMonthly)
	repo := &memRepo{
		invoices: []*invoice.Invoice{src},
		beforeBegin: func(r *memRepo) {
			r.invoices[0].LastProcessedDate = new(calendar.New(2024, time.February, 10))
		},
	}
	p := recurring.NewProcessor(repo, clockAt(calendar.New(2024, time.February, 20)))

	n, err := p.Run(context.Background(), userID)
	require.ErrorIs(t, err, recurring.ErrConflict)
	assert.Zero(t, n)
	assert.Len(t, repo.invoices, 1)
}

func TestProcessor_SkipsMalformedWithoutBlockingOthers(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	noStart := recurringInvoice(calendar.New(2023, time.January, 1), invoice.FrequencyMonthly)
	noStart.RecurringStartDate = nil
	badFreq := recurringInvoice(calendar.New(2023, time.January, 1), "weekly")
	good := recurringInvoice(calendar.New(2024, time.January, 1), invoice.FrequencyMonthly)

	repo := &memRepo{invoices: []*invoice.Invoice{noStart, badFreq, good}}
	p := recurring.NewProcessor(repo, clockAt(calendar.New(2024, time.March, 1)), recurring.WithLogger(logger))

	n, err := p.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, noStart.LastProcessedDate)
	assert.Nil(t, badFreq.LastProcessedDate)
	require.NotNil(t, good.LastProcessedDate)
	assert.Equal(t, calendar.New(2024, time.February, 1), *good.LastProcessedDate)

	assert.Contains(t, logs.String(), "unknown frequency")
	assert.Contains(t, logs.String(), badFreq.ID.String())
}

func TestProcessor_UsesLocationForToday(t *testing.T) {
	// 02:00 UTC on March 1st is still February 29th five hours west.
	now := time.Date(2024, time.March, 1, 2, 0, 0, 0, time.UTC)
	west := time.FixedZone("UTC-5", -5*60*60)

	tests := []struct {
		name string
		loc  *time.Location
		want int
	}{
		{name: "UTC", loc: time.UTC, want: 1},
		{name: "West", loc: west, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{invoices: []*invoice.Invoice{
				recurringInvoice(calendar.New(2024, time.February, 1), invoice.FrequencyMonthly),
			}}
			p := recurring.NewProcessor(repo,
				recurring.WithClock(func() time.Time { return now }),
				recurring.WithLocation(tt.loc),
			)

			n, err := p.Run(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestProcessor_BatchFailures(t *testing.T) {
	today := calendar.New(2024, time.March, 1)
	src := recurringInvoice(calendar.New(2024, time.January, 15), invoice.FrequencyMonthly)

	type testCase struct {
		name      string
		setupMock func(repo *recurring.MockRepository, batch *recurring.MockBatch)
	}

	tests := []testCase{
		{
			name: "ListFails",
			setupMock: func(repo *recurring.MockRepository, _ *recurring.MockBatch) {
				repo.EXPECT().ListRecurring(gomock.Any(), userID).Return(nil, errors.New("db down"))
			},
		},
		{
			name: "BeginFails",
			setupMock: func(repo *recurring.MockRepository, _ *recurring.MockBatch) {
				repo.EXPECT().ListRecurring(gomock.Any(), userID).Return([]*invoice.Invoice{src}, nil)
				repo.EXPECT().BeginBatch(gomock.Any(), userID).Return(nil, errors.New("lock timeout"))
			},
		},
		{
			name: "CreateFails",
			setupMock: func(repo *recurring.MockRepository, batch *recurring.MockBatch) {
				repo.EXPECT().ListRecurring(gomock.Any(), userID).Return([]*invoice.Invoice{src}, nil)
				repo.EXPECT().BeginBatch(gomock.Any(), userID).Return(batch, nil)
				batch.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))
				batch.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "AdvanceFails",
			setupMock: func(repo *recurring.MockRepository, batch *recurring.MockBatch) {
				repo.EXPECT().ListRecurring(gomock.Any(), userID).Return([]*invoice.Invoice{src}, nil)
				repo.EXPECT().BeginBatch(gomock.Any(), userID).Return(batch, nil)
				batch.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
				batch.EXPECT().
					SetLastProcessed(gomock.Any(), src.ID, (*calendar.Date)(nil), calendar.New(2024, time.February, 15)).
					Return(recurring.ErrConflict)
				batch.EXPECT().Rollback().Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := recurring.NewMockRepository(ctrl)
			batch := recurring.NewMockBatch(ctrl)
			tt.setupMock(repo, batch)

			p := recurring.NewProcessor(repo, clockAt(today))
			n, err := p.Run(context.Background(), userID)
			assert.Error(t, err)
			assert.Zero(t, n)
		})
	}
}
