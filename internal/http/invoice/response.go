package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
)

type invoiceResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Provider           string            `json:"provider"`
	Date               calendar.Date     `json:"date"`
	Amount             decimal.Decimal   `json:"amount"`
	Tax                decimal.Decimal   `json:"tax"`
	Total              decimal.Decimal   `json:"total"`
	Items              []invoice.Item    `json:"items"`
	Category           string            `json:"category"`
	FileName           string            `json:"fileName"`
	IsRecurring        bool              `json:"isRecurring"`
	RecurringFrequency invoice.Frequency `json:"recurringFrequency,omitempty"`
	RecurringStartDate *calendar.Date    `json:"recurringStartDate,omitempty"`
	LastProcessedDate  *calendar.Date    `json:"lastProcessedDate,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          *time.Time        `json:"updatedAt,omitempty"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	items := inv.Items
	if items == nil {
		items = []invoice.Item{}
	}

	return invoiceResponse{
		ID:                 inv.ID,
		Provider:           inv.Provider,
		Date:               inv.Date,
		Amount:             inv.Amount,
		Tax:                inv.Tax,
		Total:              inv.Total,
		Items:              items,
		Category:           inv.Category,
		FileName:           inv.FileName,
		IsRecurring:        inv.IsRecurring,
		RecurringFrequency: inv.RecurringFrequency,
		RecurringStartDate: inv.RecurringStartDate,
		LastProcessedDate:  inv.LastProcessedDate,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}
}

func toResponseList(invoices []invoice.Invoice) []invoiceResponse {
	resp := make([]invoiceResponse, len(invoices))
	for i := range invoices {
		resp[i] = toResponse(&invoices[i])
	}

	return resp
}
