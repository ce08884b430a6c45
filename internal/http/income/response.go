package income

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
)

type incomeResponse struct {
	ID          uuid.UUID       `json:"id"`
	Source      string          `json:"source"`
	Date        calendar.Date   `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

func toResponse(in *income.Income) incomeResponse {
	return incomeResponse{
		ID:          in.ID,
		Source:      in.Source,
		Date:        in.Date,
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		CreatedAt:   in.CreatedAt,
		UpdatedAt:   in.UpdatedAt,
	}
}

func toResponseList(records []income.Income) []incomeResponse {
	resp := make([]incomeResponse, len(records))
	for i := range records {
		resp[i] = toResponse(&records[i])
	}

	return resp
}
