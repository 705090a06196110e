package entity

import (
	"github.com/skaul-dev/billextract/constants"
)

// LineItem is one billed charge: name, quantity, unit rate, and total amount.
// Amount is the reference value for the multiplicative invariant
// amount ≈ rate × quantity.
type LineItem struct {
	Name     string  `json:"item_name"`
	Amount   float64 `json:"item_amount"`
	Rate     float64 `json:"item_rate"`
	Quantity float64 `json:"item_quantity"`
}

// Page is one document page's extraction result. PageNo is kept as a string
// because external extractors return it loosely typed; ordering parses it as
// an integer and sorts unparseable values to position 0.
type Page struct {
	PageNo   string             `json:"page_no"`
	PageType constants.PageType `json:"page_type"`
	Items    []LineItem         `json:"bill_items"`
}

// Document aggregates all pages. TotalItemCount is derived from the per-page
// item counts, never trusted from upstream.
type Document struct {
	Pages          []Page `json:"pagewise_line_items"`
	TotalItemCount int    `json:"total_item_count"`
}

// TokenUsage tracks external extraction token consumption across pages.
type TokenUsage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage record.
func (u *TokenUsage) Add(other TokenUsage) {
	u.TotalTokens += other.TotalTokens
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
