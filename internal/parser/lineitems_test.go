package parser

import (
	"testing"

	"github.com/skaul-dev/billextract/constants"
)

func TestParseLineThreeNumberMultiplicativeMatch(t *testing.T) {
	p := New(Options{})
	item, ok := p.ParseLine("Paracetamol 2 15.50 31.00")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Name != "Paracetamol" {
		t.Errorf("name = %q, want Paracetamol", item.Name)
	}
	if item.Quantity != 2.0 || item.Rate != 15.50 || item.Amount != 31.00 {
		t.Errorf("got qty=%v rate=%v amount=%v, want 2/15.50/31.00", item.Quantity, item.Rate, item.Amount)
	}
}

func TestParseLineSingleNumber(t *testing.T) {
	p := New(Options{})
	item, ok := p.ParseLine("Consultation Fee 500")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Quantity != 1.0 || item.Rate != 500.0 || item.Amount != 500.0 {
		t.Errorf("got qty=%v rate=%v amount=%v, want 1/500/500", item.Quantity, item.Rate, item.Amount)
	}
	if item.Name != "Consultation Fee" {
		t.Errorf("name = %q, want Consultation Fee", item.Name)
	}
}

func TestParseLineSerialPrefixStripped(t *testing.T) {
	p := New(Options{})
	item, ok := p.ParseLine("12. Syringe 3 20 60")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Name != "Syringe" {
		t.Errorf("name = %q, want Syringe", item.Name)
	}
	if item.Quantity != 3.0 || item.Rate != 20.0 || item.Amount != 60.0 {
		t.Errorf("got qty=%v rate=%v amount=%v, want 3/20/60", item.Quantity, item.Rate, item.Amount)
	}
}

func TestParseLineDateNotMisreadAsValue(t *testing.T) {
	p := New(Options{})
	item, ok := p.ParseLine("Dressing Change 12/04/2023 350")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Quantity != 1.0 || item.Rate != 350.0 || item.Amount != 350.0 {
		t.Errorf("date components leaked into values: qty=%v rate=%v amount=%v", item.Quantity, item.Rate, item.Amount)
	}
	if item.Name != "Dressing Change" {
		t.Errorf("name = %q, want Dressing Change", item.Name)
	}
}

func TestParseLineYearExcluded(t *testing.T) {
	p := New(Options{})
	// The bare 2023 is dropped as a year; only 150 survives.
	item, ok := p.ParseLine("Registration 2023 150")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Amount != 150.0 || item.Quantity != 1.0 {
		t.Errorf("got qty=%v amount=%v, want 1/150", item.Quantity, item.Amount)
	}
}

func TestParseLineYearWithSeparatorKept(t *testing.T) {
	p := New(Options{})
	// 1,950 carries a thousands separator, so it is money, not a year.
	item, ok := p.ParseLine("Room Rent 1,950")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Amount != 1950.0 {
		t.Errorf("amount = %v, want 1950", item.Amount)
	}
}

func TestParseLineTwoNumberSmallIntegerQuantity(t *testing.T) {
	p := New(Options{})
	item, ok := p.ParseLine("Gauze Pads 4 100")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Quantity != 4.0 || item.Rate != 25.0 || item.Amount != 100.0 {
		t.Errorf("got qty=%v rate=%v amount=%v, want 4/25/100", item.Quantity, item.Rate, item.Amount)
	}
}

func TestParseLineTwoNumberRateEqualsAmount(t *testing.T) {
	p := New(Options{})
	item, ok := p.ParseLine("X-Ray Chest 450.00 450.00")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Quantity != 1.0 || item.Rate != 450.0 || item.Amount != 450.0 {
		t.Errorf("got qty=%v rate=%v amount=%v, want 1/450/450", item.Quantity, item.Rate, item.Amount)
	}
}

func TestParseLineSecondaryCandidateDiscardedAsNoise(t *testing.T) {
	p := New(Options{})
	// 873.5 is neither a small integer nor equal to the amount: serial noise.
	item, ok := p.ParseLine("Lab Panel 873.5 600")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Quantity != 1.0 || item.Rate != 600.0 || item.Amount != 600.0 {
		t.Errorf("got qty=%v rate=%v amount=%v, want 1/600/600", item.Quantity, item.Rate, item.Amount)
	}
}

func TestParseLineThreeNumberFallbackSmallInteger(t *testing.T) {
	p := New(Options{})
	// 5 × 90 = 450 misses 500 beyond tolerance; 5 still reads as quantity.
	item, ok := p.ParseLine("Injection Admin 5 90 500")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if item.Quantity != 5.0 || item.Amount != 500.0 {
		t.Errorf("got qty=%v amount=%v, want 5/500", item.Quantity, item.Amount)
	}
	if item.Rate != 100.0 {
		t.Errorf("rate = %v, want amount/quantity = 100", item.Rate)
	}
}

func TestParseLineRejections(t *testing.T) {
	p := New(Options{})
	rejected := []string{
		"Grand Total 4532.00",    // noise keyword
		"No numbers here at all", // no digits
		"a 12",                   // too short
		"XY 4 100",               // cleaned name shorter than 3 chars
		"Visit on 12/04/2023",    // only a date, no value tokens
	}
	for _, line := range rejected {
		if item, ok := p.ParseLine(line); ok {
			t.Errorf("expected reject for %q, got %+v", line, item)
		}
	}
}

func TestParseLineAcceptedInvariants(t *testing.T) {
	p := New(Options{})
	lines := []string{
		"Paracetamol 2 15.50 31.00",
		"Consultation Fee 500",
		"12. Syringe 3 20 60",
		"Gauze Pads 4 100",
		"Room Rent 1,950",
		"Lab Panel 873.5 600",
	}
	for _, line := range lines {
		item, ok := p.ParseLine(line)
		if !ok {
			continue
		}
		if item.Amount <= 0 {
			t.Errorf("%q: amount %v must be > 0", line, item.Amount)
		}
		if item.Quantity <= 0 || item.Quantity > 1000 {
			t.Errorf("%q: quantity %v out of (0,1000]", line, item.Quantity)
		}
	}
}

func TestParsePage(t *testing.T) {
	p := New(Options{})
	page := p.ParsePage(2, []string{
		"PHARMACY ITEMS",
		"Paracetamol 2 15.50 31.00",
		"Grand Total 31.00",
	})
	if page.PageNo != "2" {
		t.Errorf("PageNo = %q, want 2", page.PageNo)
	}
	if page.PageType != constants.Pharmacy {
		t.Errorf("PageType = %q, want Pharmacy", page.PageType)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(page.Items))
	}
}

func TestParseLinesEmptyPageIsValid(t *testing.T) {
	p := New(Options{})
	items := p.ParseLines([]string{"Grand Total 100", "Patient Name"})
	if len(items) != 0 {
		t.Errorf("expected zero items, got %d", len(items))
	}
}
