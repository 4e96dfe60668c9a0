package rolling

import (
	"gapmend/domain/core"
	"gapmend/domain/series"
)

// Autocorrelation returns coefficients for lags 0..maxLag, normalized by the
// lag-0 variance. Missing entries are excluded per lag pair (pairwise-complete
// handling), not by deleting whole rows, so a gapped series still yields a
// usable correlation structure. A lag with no complete pairs yields a missing
// coefficient.
func Autocorrelation(values []float64, maxLag int) ([]float64, error) {
	if maxLag < 0 {
		return nil, core.NewConfigError("maxLag", "must be >= 0")
	}
	if len(values) == 0 {
		return nil, core.NewDataError("autocorrelation of empty series")
	}
	if maxLag >= len(values) {
		return nil, core.ErrInsufficientSeries
	}

	var sum float64
	var count int
	for _, v := range values {
		if series.IsMissing(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil, core.ErrDegenerateACFRef
	}
	mean := sum / float64(count)

	cov := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		var s float64
		var n int
		for i := 0; i+k < len(values); i++ {
			a, b := values[i], values[i+k]
			if series.IsMissing(a) || series.IsMissing(b) {
				continue
			}
			s += (a - mean) * (b - mean)
			n++
		}
		if n == 0 {
			cov[k] = series.Missing()
			continue
		}
		cov[k] = s / float64(n)
	}

	if series.IsMissing(cov[0]) || cov[0] == 0 {
		return nil, core.ErrDegenerateACFRef
	}

	acf := make([]float64, maxLag+1)
	for k := range cov {
		if series.IsMissing(cov[k]) {
			acf[k] = series.Missing()
			continue
		}
		acf[k] = cov[k] / cov[0]
	}
	return acf, nil
}
