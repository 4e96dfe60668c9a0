// Package tabular reads the two measurement tables the reconstruction
// consumes: a fine-resolution series and a sparse reference series, both
// (time, value) CSVs with a header row, pre-cleaned of missing entries and
// sorted ascending by time.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gapmend/domain/core"
	"gapmend/domain/series"
)

// LoadSeries reads a (time, value) CSV file into a Series.
func LoadSeries(path, name string) (*series.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSeries(f, name)
}

// ReadSeries reads a (time, value) table from r. The first row is a header;
// exactly two columns are expected.
func ReadSeries(r io.Reader, name string) (*series.Series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, core.NewDataError(fmt.Sprintf("series %s: missing header: %v", name, err))
	}
	if len(header) != 2 {
		return nil, core.NewDataError(fmt.Sprintf("series %s: expected 2 columns, header has %d", name, len(header)))
	}

	var times, values []float64
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewDataError(fmt.Sprintf("series %s row %d: %v", name, row, err))
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, core.NewDataError(fmt.Sprintf("series %s row %d: bad time %q", name, row, record[0]))
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, core.NewDataError(fmt.Sprintf("series %s row %d: bad value %q", name, row, record[1]))
		}
		if series.IsMissing(v) {
			return nil, core.NewDataError(fmt.Sprintf("series %s row %d: missing value; inputs must be pre-cleaned", name, row))
		}
		times = append(times, t)
		values = append(values, v)
		row++
	}
	return series.NewSeries(times, values, name)
}
