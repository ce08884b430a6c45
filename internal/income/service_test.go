package income_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	"github.com/MrJamesThe3rd/invoicely/internal/pagecache"
	"github.com/MrJamesThe3rd/invoicely/internal/validate"
)

const userID = "user-1"

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    income.CreateParams
		setupMock func(m *income.MockRepository)
		wantErr   bool
		wantValid bool
	}

	valid := income.CreateParams{
		Source:   "Client A",
		Date:     calendar.New(2024, time.April, 2),
		Amount:   decimal.RequireFromString("1500.00"),
		Category: "Freelance",
	}

	tests := []testCase{
		{
			name:   "Success",
			params: valid,
			setupMock: func(m *income.MockRepository) {
				m.EXPECT().
					CreateIncome(gomock.Any(), userID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, in *income.Income) error {
						in.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name: "EmptyDescriptionAllowed",
			params: income.CreateParams{
				Source: "Employer", Date: calendar.New(2024, time.April, 1), Amount: decimal.NewFromInt(3000), Category: "Salary",
			},
			setupMock: func(m *income.MockRepository) {
				m.EXPECT().CreateIncome(gomock.Any(), userID, gomock.Any()).Return(nil)
			},
		},
		{
			name:      "BlankSource",
			params:    income.CreateParams{Source: " ", Date: valid.Date, Amount: valid.Amount, Category: "Sales"},
			wantErr:   true,
			wantValid: true,
		},
		{
			name:      "NegativeAmount",
			params:    income.CreateParams{Source: "A", Date: valid.Date, Amount: decimal.NewFromInt(-5), Category: "Sales"},
			wantErr:   true,
			wantValid: true,
		},
		{
			name:      "MissingCategory",
			params:    income.CreateParams{Source: "A", Date: valid.Date, Amount: valid.Amount},
			wantErr:   true,
			wantValid: true,
		},
		{
			name:   "RepoError",
			params: valid,
			setupMock: func(m *income.MockRepository) {
				m.EXPECT().CreateIncome(gomock.Any(), userID, gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := income.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := income.NewService(repo)
			got, err := svc.Create(context.Background(), userID, tt.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantValid, errors.Is(err, validate.ErrInvalid))
				assert.Nil(t, got)

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	repo := income.NewMockRepository(ctrl)
	repo.EXPECT().GetIncome(gomock.Any(), userID, id).Return(&income.Income{
		ID: id, Source: "Client A", Date: calendar.New(2024, time.April, 2), Amount: decimal.NewFromInt(10), Category: "Sales",
	}, nil)
	repo.EXPECT().UpdateIncome(gomock.Any(), userID, gomock.Any()).Return(nil)

	svc := income.NewService(repo)
	got, err := svc.Update(context.Background(), userID, id, income.Patch{Description: new("April retainer")})
	require.NoError(t, err)
	assert.Equal(t, "April retainer", got.Description)
	assert.Equal(t, "Client A", got.Source)
}

func TestService_PageDefaultsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := income.NewMockRepository(ctrl)
	repo.EXPECT().
		PageIncome(gomock.Any(), userID, "", pagecache.DefaultPageSize).
		Return(pagecache.Page[income.Income]{}, nil)

	svc := income.NewService(repo)
	_, err := svc.Page(context.Background(), userID, "", 0)
	require.NoError(t, err)
}

func TestFeed_UpdateFailureLeavesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := income.Income{ID: uuid.New(), Source: "Client A", Date: calendar.New(2024, time.April, 2), Category: "Sales"}

	repo := income.NewMockRepository(ctrl)
	repo.EXPECT().
		PageIncome(gomock.Any(), userID, "", 20).
		Return(pagecache.Page[income.Income]{Items: []income.Income{rec}, Cursor: "c"}, nil)
	repo.EXPECT().GetIncome(gomock.Any(), userID, rec.ID).Return(new(rec), nil)
	repo.EXPECT().UpdateIncome(gomock.Any(), userID, gomock.Any()).Return(errors.New("timeout"))

	coll := pagecache.NewCollection[income.Income, income.Patch](income.NewService(repo).Feed(userID), 20)
	require.NoError(t, coll.Reset(context.Background()))

	_, err := coll.Update(context.Background(), rec.Key(), income.Patch{Source: new("Client B")})
	require.Error(t, err)

	items := coll.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Client A", items[0].Source)
}

func TestIncome_Matches(t *testing.T) {
	in := income.Income{Source: "Client A", Description: "Website redesign"}

	assert.True(t, in.Matches("client"))
	assert.True(t, in.Matches("REDESIGN"))
	assert.True(t, in.Matches(""))
	assert.False(t, in.Matches("salary"))
}
