// Package assistant talks to an OpenAI-compatible chat completion API to
// read invoice files and to answer questions about a financial summary.
package assistant

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/summary"
)

const (
	DefaultModel    = "gpt-4o-mini"
	UnknownProvider = "Unknown Provider"

	recordInvoiceTool = "record_invoice"
)

var ErrNoAnalysis = errors.New("model returned no invoice analysis")

// Message is one turn of a conversation. Role is "user" or "assistant";
// "model" is accepted as an alias of "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Client struct {
	client *openai.Client
	model  string
	now    func() time.Time
	loc    *time.Location
}

type Option func(*Client)

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

func New(cfg Config, opts ...Option) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	c := &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		now:    time.Now,
		loc:    time.UTC,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) today() calendar.Date {
	return calendar.Today(c.now(), c.loc)
}

func invoiceTool(categories []string) openai.Tool {
	money := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.Number, Description: desc}
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        recordInvoiceTool,
			Description: "Record the data extracted from an invoice.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"provider": {Type: jsonschema.String, Description: "Name of the company or vendor issuing the invoice."},
					"date":     {Type: jsonschema.String, Description: "Issue date in YYYY-MM-DD format."},
					"amount":   money("Subtotal before tax."),
					"tax":      money("Total tax amount."),
					"total":    money("Final total amount due."),
					"items": {
						Type:        jsonschema.Array,
						Description: "Line items of the invoice, empty when none are discernible.",
						Items: &jsonschema.Definition{
							Type: jsonschema.Object,
							Properties: map[string]jsonschema.Definition{
								"description": {Type: jsonschema.String},
								"quantity":    {Type: jsonschema.Number},
								"unitPrice":   money("Price per single unit."),
								"total":       money("Quantity times unit price."),
							},
							Required: []string{"description", "quantity", "unitPrice", "total"},
						},
					},
					"category": {
						Type:        jsonschema.String,
						Enum:        categories,
						Description: "Exactly one of the allowed categories.",
					},
				},
				Required: []string{"provider", "date", "total", "category", "items"},
			},
		},
	}
}

const analyzePrompt = `Extract the invoice in the attached file.
Standardize the date to YYYY-MM-DD.
If the subtotal or tax is not stated, derive it from the total and the line items when possible, otherwise use 0.
The category must be exactly one of the allowed options.`

type analysis struct {
	Provider string          `json:"provider"`
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Items    []invoice.Item  `json:"items"`
	Category string          `json:"category"`
}

// AnalyzeInvoice asks the model to extract an invoice from file. Missing fields
// fall back to defaults: an unknown provider, today's date, zero amounts, no
// items and the fallback category.
func (c *Client) AnalyzeInvoice(ctx context.Context, file []byte, mimeType string, categories []string) (*invoice.Parsed, error) {
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(file)

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: analyzePrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
					},
				},
			},
		},
		Tools: []openai.Tool{invoiceTool(categories)},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: recordInvoiceTool},
		},
		Temperature: 0.1,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyzing invoice: %w", err)
	}

	args, err := toolArguments(resp)
	if err != nil {
		return nil, err
	}

	var a analysis
	if err := json.Unmarshal([]byte(args), &a); err != nil {
		return nil, fmt.Errorf("decoding invoice analysis: %w", err)
	}

	return c.parsed(a, categories), nil
}

func toolArguments(resp openai.ChatCompletionResponse) (string, error) {
	for _, choice := range resp.Choices {
		for _, call := range choice.Message.ToolCalls {
			if call.Function.Name == recordInvoiceTool {
				return call.Function.Arguments, nil
			}
		}
	}

	return "", ErrNoAnalysis
}

func (c *Client) parsed(a analysis, categories []string) *invoice.Parsed {
	p := &invoice.Parsed{
		Provider: strings.TrimSpace(a.Provider),
		Amount:   a.Amount,
		Tax:      a.Tax,
		Total:    a.Total,
		Items:    a.Items,
		Category: a.Category,
	}

	if p.Provider == "" {
		p.Provider = UnknownProvider
	}

	date, err := calendar.Parse(strings.TrimSpace(a.Date))
	if err != nil || date.IsZero() {
		date = c.today()
	}

	p.Date = date

	if p.Items == nil {
		p.Items = []invoice.Item{}
	}

	if len(categories) > 0 {
		p.Category = canonicalCategory(categories, p.Category)
	}

	if p.Category == "" {
		p.Category = fallbackCategory(categories)
	}

	return p
}

// canonicalCategory returns the entry of categories equal to name ignoring
// case, or "" when there is none.
func canonicalCategory(categories []string, name string) string {
	for _, c := range categories {
		if category.Equal(c, name) {
			return c
		}
	}

	return ""
}

// fallbackCategory is "Other" when allowed, else the last allowed category.
func fallbackCategory(categories []string) string {
	if len(categories) == 0 || category.Contains(categories, summary.UncategorizedName) {
		return summary.UncategorizedName
	}

	return categories[len(categories)-1]
}

const chatInstruction = `You are a helpful personal finance assistant.
Invoices are expenses and income entries are earnings.
Answer conversationally using the summary below and never show the raw JSON.`

// Chat answers the last user message of history using s as context.
func (c *Client) Chat(ctx context.Context, history []Message, s summary.Summary) (string, error) {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}

	system := fmt.Sprintf("%s\nCurrent Date: %s\nFinancial Summary: %s", chatInstruction, c.today(), raw)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})

	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" || m.Role == "model" {
			role = openai.ChatMessageRoleAssistant
		}

		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chatting: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chatting: model returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
