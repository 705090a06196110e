package vision

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/skaul-dev/billextract/internal/common"
)

func TestNormalizePagePayloadCoercesStrings(t *testing.T) {
	raw := []byte(`{
		"page_no": "ignored",
		"page_type": "Bill Detail",
		"bill_items": [
			{"item_name": "  Room Rent ", "item_amount": "$1,200.00", "item_rate": "1200", "item_quantity": 1}
		]
	}`)

	out, _, err := NormalizePagePayload(raw, 3, nil)
	if err != nil {
		t.Fatalf("NormalizePagePayload: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if m["page_no"] != "3" {
		t.Errorf("page_no = %v, want \"3\"", m["page_no"])
	}
	items := m["bill_items"].([]any)
	item := items[0].(map[string]any)
	if item["item_name"] != "Room Rent" {
		t.Errorf("item_name = %v, want trimmed \"Room Rent\"", item["item_name"])
	}
	if item["item_amount"].(float64) != 1200.0 {
		t.Errorf("item_amount = %v, want 1200", item["item_amount"])
	}
	if item["item_rate"].(float64) != 1200.0 {
		t.Errorf("item_rate = %v, want 1200", item["item_rate"])
	}
}

func TestNormalizePagePayloadPlaceholders(t *testing.T) {
	raw := []byte(`{
		"page_type": "Pharmacy",
		"bill_items": [
			{"item_name": "Syringe", "item_amount": "N/A", "item_rate": null, "item_quantity": "none"}
		]
	}`)

	out, _, err := NormalizePagePayload(raw, 1, nil)
	if err != nil {
		t.Fatalf("NormalizePagePayload: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatal(err)
	}
	item := m["bill_items"].([]any)[0].(map[string]any)
	for _, k := range []string{"item_amount", "item_rate", "item_quantity"} {
		if got := item[k].(float64); got != 0 {
			t.Errorf("%s = %v, want 0 for placeholder", k, got)
		}
	}
}

func TestNormalizePagePayloadUnknownPageType(t *testing.T) {
	raw := []byte(`{"page_type": "Invoice Page", "bill_items": []}`)
	out, adjusted, err := NormalizePagePayload(raw, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatal(err)
	}
	if m["page_type"] != "Bill Detail" {
		t.Errorf("page_type = %v, want fallback \"Bill Detail\"", m["page_type"])
	}
	if len(adjusted) == 0 {
		t.Error("expected an adjustment note for the unknown label")
	}
}

func TestNormalizePagePayloadNotAnObject(t *testing.T) {
	_, _, err := NormalizePagePayload([]byte(`[1, 2, 3]`), 1, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestNormalizePagePayloadBadBillItems(t *testing.T) {
	_, _, err := NormalizePagePayload([]byte(`{"page_type":"Pharmacy","bill_items":"oops"}`), 1, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput for non-array bill_items", err)
	}
}

func TestNormalizePagePayloadDropsUnknownKeys(t *testing.T) {
	raw := []byte(`{"page_type":"Pharmacy","bill_items":[],"confidence":0.9}`)
	out, _, err := NormalizePagePayload(raw, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["confidence"]; ok {
		t.Error("unknown key should have been removed")
	}
}

func TestSanitizedPayloadPassesSchema(t *testing.T) {
	raw := []byte(`{
		"page_type": "FINAL BILL",
		"bill_items": [
			{"item_name": "Consultation", "item_amount": "500", "item_rate": "N/A", "item_quantity": null}
		],
		"extra": true
	}`)
	out, _, err := NormalizePagePayload(raw, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateJSONAgainstSchema(BuildPageJSONSchema(), out); err != nil {
		t.Errorf("sanitized payload should validate: %v", err)
	}
}

func TestSchemaRejectsNegativeAmount(t *testing.T) {
	bad := []byte(`{"page_no":"1","page_type":"Pharmacy","bill_items":[{"item_name":"x","item_amount":-1,"item_rate":0,"item_quantity":1}]}`)
	if err := ValidateJSONAgainstSchema(BuildPageJSONSchema(), bad); err == nil {
		t.Error("negative amount should fail schema validation")
	}
}
