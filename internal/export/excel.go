package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/models"
)

// WorkbookWriter renders record collections into a spreadsheet for the
// accountant-facing download.
type WorkbookWriter struct {
	logger *zap.Logger
}

// NewWorkbookWriter creates a workbook writer.
func NewWorkbookWriter(logger *zap.Logger) *WorkbookWriter {
	return &WorkbookWriter{logger: logger}
}

// WriteWorkbook builds an xlsx workbook with one row per record and returns
// its bytes.
func (w *WorkbookWriter) WriteWorkbook(records []*models.ReimbursementRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Records"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		w.logger.Warn("Failed to drop default sheet", zap.Error(err))
	}

	headers := []string{"ID", "Date", "Staff", "Location", "Category", "Amount", "Status", "Reference"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		w.setCell(f, sheet, cell, header)
	}

	for i, r := range records {
		row := i + 2
		values := []interface{}{
			r.ID,
			r.CreatedAt.Format("2006-01-02"),
			r.StaffName,
			r.ClientLocation,
			r.Category,
			r.Amount.StringFixed(2),
			r.Status,
			r.Reference,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			w.setCell(f, sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Workbook exported", zap.Int("records", len(records)))
	return buf.Bytes(), nil
}

func (w *WorkbookWriter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
