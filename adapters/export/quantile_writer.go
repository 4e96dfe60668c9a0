package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gapmend/adapters/stats/posterior"
	"gapmend/internal/errors"
)

// QuantileCSVWriter exports the full posterior quantile table: one row per
// grid point, one column per quantile level.
type QuantileCSVWriter struct{}

// NewQuantileCSVWriter creates a quantile table writer.
func NewQuantileCSVWriter() *QuantileCSVWriter { return &QuantileCSVWriter{} }

// Write writes the summary's quantile grid to path. times must have one entry
// per summary grid index.
func (w *QuantileCSVWriter) Write(path string, times []float64, summary *posterior.Summary) error {
	if len(times) != summary.Len() {
		return errors.ExportError(fmt.Sprintf("%d times for %d grid points", len(times), summary.Len()), nil)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.ExportError(fmt.Sprintf("create %s", path), err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := make([]string, 0, len(summary.Levels)+1)
	header = append(header, "time")
	for _, level := range summary.Levels {
		header = append(header, fmt.Sprintf("q%.3f", level))
	}
	if err := cw.Write(header); err != nil {
		return errors.ExportError("write header", err)
	}

	record := make([]string, len(header))
	for i := 0; i < summary.Len(); i++ {
		record[0] = strconv.FormatFloat(times[i], 'f', -1, 64)
		for q, v := range summary.Values[i] {
			record[q+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return errors.ExportError(fmt.Sprintf("write grid point %d", i), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.ExportError("flush", err)
	}
	return nil
}
