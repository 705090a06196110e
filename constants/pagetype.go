package constants

import (
	"strings"
)

// PageType is the coarse classification of a bill page.
type PageType string

const (
	BillDetail PageType = "Bill Detail"
	FinalBill  PageType = "Final Bill"
	Pharmacy   PageType = "Pharmacy"
)

var allPageTypes = []PageType{
	BillDetail,
	FinalBill,
	Pharmacy,
}

func PageTypesAsStrings() []string {
	result := make([]string, len(allPageTypes))
	for i, pt := range allPageTypes {
		result[i] = string(pt)
	}
	return result
}

// CanonicalPageType maps an arbitrary label to a page type. The match is a
// case-insensitive substring check; "pharmacy" wins over "final"/"summary",
// and everything unrecognized falls back to BillDetail. The second return
// reports whether the label was recognized.
func CanonicalPageType(input string) (PageType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return BillDetail, false
	}

	switch {
	case strings.Contains(normalized, "pharmacy"):
		return Pharmacy, true
	case strings.Contains(normalized, "final"), strings.Contains(normalized, "summary"):
		return FinalBill, true
	}

	for _, pt := range allPageTypes {
		if normalized == strings.ToLower(string(pt)) {
			return pt, true
		}
	}
	return BillDetail, false
}

// ClassifyPageText labels a page from its raw OCR lines using the same
// substring rules as CanonicalPageType.
func ClassifyPageText(lines []string) PageType {
	joined := strings.ToLower(strings.Join(lines, "\n"))
	pt, _ := CanonicalPageType(joined)
	return pt
}
