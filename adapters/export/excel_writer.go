package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"gapmend/internal/errors"
	"gapmend/ports"
)

// ExcelWriter exports the reconstruction with its credibility band as an
// Excel workbook: one sheet, columns time / median / lower / upper.
type ExcelWriter struct {
	SheetName string
}

// NewExcelWriter creates an Excel writer with the default sheet name.
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{SheetName: "Reconstruction"}
}

// Write writes rows to an xlsx workbook at path.
func (w *ExcelWriter) Write(path string, rows []ports.ReconstructionRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.SheetName
	index, err := f.NewSheet(sheet)
	if err != nil {
		return errors.ExportError("create sheet", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.ExportError("remove default sheet", err)
	}

	header := []interface{}{"time", "median", "lower", "upper"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.ExportError("write header", err)
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := []interface{}{row.Time, row.Value, row.Lower, row.Upper}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.ExportError(fmt.Sprintf("write row %d", i+1), err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.ExportError(fmt.Sprintf("save %s", path), err)
	}
	return nil
}
