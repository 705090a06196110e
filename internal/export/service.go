package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/skaul-dev/billextract/internal/entity"
)

// Service produces XLSX bytes for an extracted bill document.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BillItemsXLSX returns a one-sheet workbook with every line item of the
// document, one row per item, in page order.
func (s *Service) BillItemsXLSX(doc entity.Document) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Line Items"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Page No",
		"Page Type",
		"Item Name",
		"Quantity",
		"Rate",
		"Amount",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	var grandTotal float64
	for _, page := range doc.Pages {
		for _, item := range page.Items {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, page.PageNo)
			write(2, string(page.PageType))
			write(3, item.Name)
			write(4, item.Quantity)
			write(5, item.Rate)
			write(6, item.Amount)
			grandTotal += item.Amount
			row++
		}
	}

	if row > 2 {
		totalCell, _ := excelize.CoordinatesToCellName(3, row)
		_ = f.SetCellValue(sheet, totalCell, "Grand Total")
		amountCell, _ := excelize.CoordinatesToCellName(6, row)
		_ = f.SetCellValue(sheet, amountCell, grandTotal)
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "B", 16)
	_ = f.SetColWidth(sheet, "C", "C", 42)
	_ = f.SetColWidth(sheet, "D", "F", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", row-2,
		"pages", len(doc.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
