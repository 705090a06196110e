package bill

import (
	"sort"
	"strconv"

	"github.com/skaul-dev/billextract/internal/entity"
)

// Aggregate orders pages ascending by integer page number and derives the
// document item count. Pages whose number does not parse as an integer sort
// to position 0 rather than being dropped. The sort is stable and the whole
// operation is idempotent: re-aggregating an aggregated document is a no-op.
func Aggregate(pages []entity.Page) entity.Document {
	ordered := make([]entity.Page, len(pages))
	copy(ordered, pages)

	sort.SliceStable(ordered, func(i, j int) bool {
		return pageSortKey(ordered[i].PageNo) < pageSortKey(ordered[j].PageNo)
	})

	count := 0
	for _, p := range ordered {
		count += len(p.Items)
	}

	return entity.Document{
		Pages:          ordered,
		TotalItemCount: count,
	}
}

func pageSortKey(pageNo string) int {
	n, err := strconv.Atoi(pageNo)
	if err != nil {
		return 0
	}
	return n
}
