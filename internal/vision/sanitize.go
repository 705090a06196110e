package vision

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/skaul-dev/billextract/constants"
	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/parser"
)

// NormalizePagePayload turns a loosely-typed page payload from the external
// extractor into the strict shape the schema expects:
//   - money/quantity fields arriving as strings ("$1,200.00", "N/A") are
//     coerced to numbers
//   - the page_type label is canonicalized (unknown labels fall back to the
//     default category)
//   - page_no is overwritten with the number we assigned to the request
//   - unknown keys are removed
//
// A payload that is not a JSON object at all is structurally invalid and
// reported as common.ErrInvalidInput.
func NormalizePagePayload(raw []byte, pageNo int, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize page payload: %w: %w", common.ErrInvalidInput, err)
	}

	var adjusted []string

	m["page_no"] = strconv.Itoa(pageNo)

	label, _ := m["page_type"].(string)
	canon, known := constants.CanonicalPageType(label)
	if !known && strings.TrimSpace(label) != "" {
		adjusted = append(adjusted, "page_type("+label+")")
	}
	m["page_type"] = string(canon)

	rawItems, ok := m["bill_items"].([]any)
	if !ok {
		if _, present := m["bill_items"]; present {
			return nil, adjusted, fmt.Errorf("sanitize page payload: bill_items is not an array: %w", common.ErrInvalidInput)
		}
		rawItems = nil
		adjusted = append(adjusted, "bill_items(missing)")
	}

	items := make([]any, 0, len(rawItems))
	for i, ri := range rawItems {
		im, ok := ri.(map[string]any)
		if !ok {
			adjusted = append(adjusted, fmt.Sprintf("bill_items[%d](type)", i))
			continue
		}
		items = append(items, sanitizeItem(im, i, &adjusted))
	}
	m["bill_items"] = items

	for k := range m {
		switch k {
		case "page_no", "page_type", "bill_items":
		default:
			delete(m, k)
			adjusted = append(adjusted, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, adjusted, fmt.Errorf("sanitize page payload: encode: %w", err)
	}
	if len(adjusted) > 0 {
		logger.Warn("vision.sanitize.adjusted", "page_no", pageNo, "adjusted", adjusted)
	}
	return out, adjusted, nil
}

func sanitizeItem(im map[string]any, idx int, adjusted *[]string) map[string]any {
	name := strings.TrimSpace(anyToString(im["item_name"]))
	if name == "" {
		name = "Unknown"
		*adjusted = append(*adjusted, fmt.Sprintf("bill_items[%d].item_name(empty)", idx))
	}

	out := map[string]any{
		"item_name":     name,
		"item_amount":   parser.SanitizeNumber(im["item_amount"]),
		"item_rate":     parser.SanitizeNumber(im["item_rate"]),
		"item_quantity": parser.SanitizeNumber(im["item_quantity"]),
	}

	for k := range im {
		switch k {
		case "item_name", "item_amount", "item_rate", "item_quantity":
		default:
			*adjusted = append(*adjusted, fmt.Sprintf("bill_items[%d].%s(unknown)", idx, k))
		}
	}
	return out
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
