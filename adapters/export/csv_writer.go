// Package export writes the reconstructed series out: a plain two-column CSV
// for downstream tooling and an Excel workbook carrying the credibility band.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gapmend/internal/errors"
	"gapmend/ports"
)

// CSVWriter exports the point reconstruction as a (time, value) table with a
// two-column header, sorted ascending by time as the rows arrive.
type CSVWriter struct{}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter() *CSVWriter { return &CSVWriter{} }

// Write writes rows to path.
func (w *CSVWriter) Write(path string, rows []ports.ReconstructionRow) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.ExportError(fmt.Sprintf("create %s", path), err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"time", "value"}); err != nil {
		return errors.ExportError("write header", err)
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatFloat(row.Time, 'f', -1, 64),
			strconv.FormatFloat(row.Value, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.ExportError("write row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.ExportError("flush", err)
	}
	return nil
}
