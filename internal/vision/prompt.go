package vision

import (
	"encoding/json"
	"strings"
)

// BuildPagePrompt composes the extraction instructions for one page image.
// The response constraint is the JSON schema from BuildPageJSONSchema,
// embedded verbatim so the model has no room to improvise field names.
func BuildPagePrompt(pageNo int) string {
	parts := []string{
		"You are an expert data extractor for all types of invoices and bills (medical, retail, repair, handwritten).",
		"Extract every line item that has a price. Merge side-by-side receipts into a single list for this page.",
		"If a quantity is written as 'AxB' (e.g. '3x10'), extract only the first number as item_quantity.",
		"Do NOT extract rows labeled Total, Subtotal, Brought Forward, or Carried Over.",
		"Use your best judgment on handwriting; return 0.0 only when a number is completely illegible.",
		"Classify the page: default 'Bill Detail'; 'Pharmacy' only when you see drug names; 'Final Bill' only for a summary page with no individual items.",
		"Return ONLY JSON matching this schema:",
		mustJSON(BuildPageJSONSchema()),
	}
	return strings.Join(parts, "\n")
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
