package vision

import (
	"github.com/skaul-dev/billextract/constants"
)

// BuildPageJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass this to the model as a structured output constraint
// and also use it locally to validate the sanitized payload.
func BuildPageJSONSchema() map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"item_name":     map[string]any{"type": "string", "minLength": 1},
			"item_amount":   map[string]any{"type": "number", "minimum": 0.0},
			"item_rate":     map[string]any{"type": "number", "minimum": 0.0},
			"item_quantity": map[string]any{"type": "number", "minimum": 0.0},
		},
		"required": []string{"item_name", "item_amount", "item_rate", "item_quantity"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page_no":    map[string]any{"type": "string"},
			"page_type":  map[string]any{"type": "string", "enum": constants.PageTypesAsStrings()},
			"bill_items": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"page_no", "page_type", "bill_items"},
	}
}
