package income

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
	"github.com/MrJamesThe3rd/invoicely/internal/validate"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=income
type Repository interface {
	CreateIncome(ctx context.Context, userID string, in *Income) error
	GetIncome(ctx context.Context, userID string, id uuid.UUID) (*Income, error)
	UpdateIncome(ctx context.Context, userID string, in *Income) error
	DeleteIncome(ctx context.Context, userID string, id uuid.UUID) error

	// PageIncome returns up to limit records ordered by date descending,
	// starting after cursor.
	PageIncome(ctx context.Context, userID, cursor string, limit int) (pagecache.Page[Income], error)
	ListIncome(ctx context.Context, userID string) ([]*Income, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Source      string          `json:"source" validate:"notblank"`
	Date        calendar.Date   `json:"date"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"notblank"`
}

func (params CreateParams) check() error {
	if err := validate.Struct(params); err != nil {
		return err
	}

	if params.Date.IsZero() {
		return fmt.Errorf("%w: date is required", validate.ErrInvalid)
	}

	return nil
}

func paramsOf(in *Income) CreateParams {
	return CreateParams{
		Source:      in.Source,
		Date:        in.Date,
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
	}
}

func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Income, error) {
	if err := params.check(); err != nil {
		return nil, err
	}

	in := &Income{
		Source:      params.Source,
		Date:        params.Date,
		Amount:      params.Amount,
		Description: params.Description,
		Category:    params.Category,
	}
	if err := s.repo.CreateIncome(ctx, userID, in); err != nil {
		return nil, err
	}

	return in, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Income, error) {
	return s.repo.GetIncome(ctx, userID, id)
}

func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, patch Patch) (*Income, error) {
	in, err := s.repo.GetIncome(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(in)

	if err := paramsOf(in).check(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateIncome(ctx, userID, in); err != nil {
		return nil, err
	}

	return in, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.DeleteIncome(ctx, userID, id)
}

func (s *Service) Page(ctx context.Context, userID, cursor string, limit int) (pagecache.Page[Income], error) {
	if limit <= 0 {
		limit = pagecache.DefaultPageSize
	}

	return s.repo.PageIncome(ctx, userID, cursor, limit)
}

func (s *Service) List(ctx context.Context, userID string) ([]*Income, error) {
	return s.repo.ListIncome(ctx, userID)
}

// Feed binds the service to one user as a source for a paginated cache.
func (s *Service) Feed(userID string) *Feed {
	return &Feed{svc: s, userID: userID}
}

// Feed adapts Service to pagecache.Repository for a single user.
type Feed struct {
	svc    *Service
	userID string
}

func (f *Feed) FetchPage(ctx context.Context, cursor string, limit int) (pagecache.Page[Income], error) {
	return f.svc.Page(ctx, f.userID, cursor, limit)
}

func (f *Feed) Create(ctx context.Context, in Income) (Income, error) {
	created, err := f.svc.Create(ctx, f.userID, paramsOf(&in))
	if err != nil {
		return Income{}, err
	}

	return *created, nil
}

func (f *Feed) Update(ctx context.Context, key string, patch Patch) (Income, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return Income{}, fmt.Errorf("parsing income id: %w", err)
	}

	updated, err := f.svc.Update(ctx, f.userID, id, patch)
	if err != nil {
		return Income{}, err
	}

	return *updated, nil
}

func (f *Feed) Delete(ctx context.Context, key string) error {
	id, err := uuid.Parse(key)
	if err != nil {
		return fmt.Errorf("parsing income id: %w", err)
	}

	return f.svc.Delete(ctx, f.userID, id)
}
