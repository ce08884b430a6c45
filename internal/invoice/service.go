package invoice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
	"github.com/MrJamesThe3rd/invoicely/internal/validate"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, userID string, inv *Invoice) error
	GetInvoice(ctx context.Context, userID string, id uuid.UUID) (*Invoice, error)
	UpdateInvoice(ctx context.Context, userID string, inv *Invoice) error
	DeleteInvoice(ctx context.Context, userID string, id uuid.UUID) error

	// PageInvoices returns up to limit invoices ordered by date descending,
	// starting after cursor. An empty cursor starts from the newest invoice.
	PageInvoices(ctx context.Context, userID, cursor string, limit int) (pagecache.Page[Invoice], error)
	ListInvoices(ctx context.Context, userID string) ([]*Invoice, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Provider string          `json:"provider" validate:"notblank"`
	Date     calendar.Date   `json:"date"`
	Amount   decimal.Decimal `json:"amount" validate:"gte=0"`
	Tax      decimal.Decimal `json:"tax" validate:"gte=0"`
	Total    decimal.Decimal `json:"total" validate:"gte=0"`
	Items    []Item          `json:"items" validate:"dive"`
	Category string          `json:"category" validate:"notblank"`
	FileName string          `json:"fileName"`

	IsRecurring        bool           `json:"isRecurring"`
	RecurringFrequency Frequency      `json:"recurringFrequency" validate:"omitempty,oneof=monthly yearly"`
	RecurringStartDate *calendar.Date `json:"recurringStartDate"`
}

func (params CreateParams) check() error {
	if err := validate.Struct(params); err != nil {
		return err
	}

	if params.Date.IsZero() {
		return fmt.Errorf("%w: date is required", validate.ErrInvalid)
	}

	if params.IsRecurring && params.RecurringFrequency == "" {
		return fmt.Errorf("%w: recurringFrequency is required for recurring invoices", validate.ErrInvalid)
	}

	return nil
}

func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Invoice, error) {
	if err := params.check(); err != nil {
		return nil, err
	}

	inv := &Invoice{
		Provider:           params.Provider,
		Date:               params.Date,
		Amount:             params.Amount,
		Tax:                params.Tax,
		Total:              params.Total,
		Items:              append([]Item(nil), params.Items...),
		Category:           params.Category,
		FileName:           params.FileName,
		IsRecurring:        params.IsRecurring,
		RecurringFrequency: params.RecurringFrequency,
		RecurringStartDate: params.RecurringStartDate,
	}
	if inv.FileName == "" {
		inv.FileName = FileNameManual
	}

	inv.normalize()

	if err := s.repo.CreateInvoice(ctx, userID, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, userID, id)
}

// Update applies patch to the stored invoice and persists the result.
func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, patch Patch) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(inv)
	inv.normalize()

	if err := paramsOf(inv).check(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInvoice(ctx, userID, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteInvoice(ctx, userID, id)
}

func (s *Service) Page(ctx context.Context, userID, cursor string, limit int) (pagecache.Page[Invoice], error) {
	if limit <= 0 {
		limit = pagecache.DefaultPageSize
	}

	return s.repo.PageInvoices(ctx, userID, cursor, limit)
}

func (s *Service) List(ctx context.Context, userID string) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, userID)
}

// Feed binds the service to one user as a source for a paginated cache.
func (s *Service) Feed(userID string) *Feed {
	return &Feed{svc: s, userID: userID}
}

func paramsOf(inv *Invoice) CreateParams {
	return CreateParams{
		Provider:           inv.Provider,
		Date:               inv.Date,
		Amount:             inv.Amount,
		Tax:                inv.Tax,
		Total:              inv.Total,
		Items:              inv.Items,
		Category:           inv.Category,
		FileName:           inv.FileName,
		IsRecurring:        inv.IsRecurring,
		RecurringFrequency: inv.RecurringFrequency,
		RecurringStartDate: inv.RecurringStartDate,
	}
}

// Feed adapts Service to pagecache.Repository for a single user.
type Feed struct {
	svc    *Service
	userID string
}

func (f *Feed) FetchPage(ctx context.Context, cursor string, limit int) (pagecache.Page[Invoice], error) {
	return f.svc.Page(ctx, f.userID, cursor, limit)
}

func (f *Feed) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	created, err := f.svc.Create(ctx, f.userID, paramsOf(&inv))
	if err != nil {
		return Invoice{}, err
	}

	return *created, nil
}

func (f *Feed) Update(ctx context.Context, key string, patch Patch) (Invoice, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return Invoice{}, fmt.Errorf("parsing invoice id: %w", err)
	}

	updated, err := f.svc.Update(ctx, f.userID, id, patch)
	if err != nil {
		return Invoice{}, err
	}

	return *updated, nil
}

func (f *Feed) Delete(ctx context.Context, key string) error {
	id, err := uuid.Parse(key)
	if err != nil {
		return fmt.Errorf("parsing invoice id: %w", err)
	}

	return f.svc.Delete(ctx, f.userID, id)
}
