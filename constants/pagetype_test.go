package constants

import "testing"

func TestCanonicalPageType(t *testing.T) {
	cases := []struct {
		input string
		want  PageType
		known bool
	}{
		{"Bill Detail", BillDetail, true},
		{"Final Bill", FinalBill, true},
		{"Pharmacy", Pharmacy, true},
		{"PHARMACY ITEMS", Pharmacy, true},
		{"Grand Summary", FinalBill, true},
		{"final bill page", FinalBill, true},
		{"Room Charges", BillDetail, false},
		{"Invoice Page", BillDetail, false},
		{"", BillDetail, false},
		{"   ", BillDetail, false},
	}
	for _, c := range cases {
		got, known := CanonicalPageType(c.input)
		if got != c.want {
			t.Errorf("CanonicalPageType(%q) = %q, want %q", c.input, got, c.want)
		}
		if known != c.known {
			t.Errorf("CanonicalPageType(%q) known = %v, want %v", c.input, known, c.known)
		}
	}
}

func TestCanonicalPageTypePharmacyPrecedence(t *testing.T) {
	// A summary page that mentions pharmacy still classifies as Pharmacy.
	got, _ := CanonicalPageType("Pharmacy Summary")
	if got != Pharmacy {
		t.Errorf("expected Pharmacy to take precedence, got %q", got)
	}
}

func TestClassifyPageText(t *testing.T) {
	lines := []string{"ABC Hospital", "PHARMACY ITEMS", "Paracetamol 2 15.50 31.00"}
	if got := ClassifyPageText(lines); got != Pharmacy {
		t.Errorf("ClassifyPageText = %q, want %q", got, Pharmacy)
	}
	if got := ClassifyPageText([]string{"Room Charges 3 500 1500"}); got != BillDetail {
		t.Errorf("ClassifyPageText = %q, want %q", got, BillDetail)
	}
	if got := ClassifyPageText(nil); got != BillDetail {
		t.Errorf("ClassifyPageText(nil) = %q, want %q", got, BillDetail)
	}
}
