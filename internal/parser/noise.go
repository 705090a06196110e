package parser

import (
	"strings"
	"unicode"
)

// DefaultNoiseKeywords flags header, metadata, and total/subtotal lines.
// Bill layouts vary by hospital, so callers can supply their own list or
// extend this one; substring matching keeps the list short at the cost of
// occasional false positives on item names.
var DefaultNoiseKeywords = []string{
	"invoice", "bill no", "bill number", "date:", "time:", "uhid", "ip no",
	"ward", "bed", "age", "sex", "doctor", "consultant",
	"total", "sub total", "subtotal", "grand total", "category total",
	"net amount", "amount in words", "bill summary", "tax", "discount",
}

// minLineLength rejects fragments too short to carry a name and a number.
const minLineLength = 5

// NoiseFilter decides whether a raw OCR line is metadata/header/total noise
// rather than a candidate line item.
type NoiseFilter struct {
	keywords []string
}

// NewNoiseFilter builds a filter; a nil or empty keyword list selects
// DefaultNoiseKeywords.
func NewNoiseFilter(keywords []string) *NoiseFilter {
	if len(keywords) == 0 {
		keywords = DefaultNoiseKeywords
	}
	return &NoiseFilter{keywords: keywords}
}

// Extend adds keywords on top of the current set.
func (f *NoiseFilter) Extend(keywords ...string) {
	f.keywords = append(f.keywords, keywords...)
}

// IsNoise reports whether the line should be discarded. Discard rules, in
// order: blank line; any configured keyword in the lowercase form; no digit
// characters; trimmed length below minLineLength.
func (f *NoiseFilter) IsNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}

	lower := strings.ToLower(line)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	if !strings.ContainsFunc(trimmed, unicode.IsDigit) {
		return true
	}

	return len(trimmed) < minLineLength
}
