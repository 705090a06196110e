// Package bill post-processes structured line items: the reconciliation
// repair pass and the page/document aggregation.
package bill

import (
	"math"

	"github.com/skaul-dev/billextract/internal/entity"
)

// RepairItem fills at most one missing numeric field using the invariant
// amount = rate × quantity. The branches guard on distinct zero fields and
// are evaluated in fixed order; items with two or more unknowns are
// under-determined and left unchanged. The pass is idempotent.
func RepairItem(item entity.LineItem) entity.LineItem {
	switch {
	case item.Amount == 0 && item.Rate > 0 && item.Quantity > 0:
		item.Amount = round2(item.Rate * item.Quantity)
	case item.Rate == 0 && item.Amount > 0 && item.Quantity > 0:
		item.Rate = round2(item.Amount / item.Quantity)
	case item.Quantity == 0 && item.Amount > 0 && item.Rate > 0:
		if math.Abs(item.Amount-item.Rate) < 0.1 {
			item.Quantity = 1.0
		} else {
			item.Quantity = round2(item.Amount / item.Rate)
		}
	}
	return item
}

// RepairDocument runs the repair pass over every item of every page,
// exactly once, before the document is finalized.
func RepairDocument(doc entity.Document) entity.Document {
	for pi := range doc.Pages {
		items := doc.Pages[pi].Items
		for ii := range items {
			items[ii] = RepairItem(items[ii])
		}
	}
	return doc
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
