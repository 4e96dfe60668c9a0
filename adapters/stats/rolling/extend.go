package rolling

import (
	"gapmend/domain/core"
	"gapmend/domain/series"
)

// ExtendLinear realigns a window-shortened vector onto a full grid of length
// n. The shortened vector is placed centered (offset (n-len)/2) and both edges
// are filled by linear extrapolation from the first/last two valid entries.
// Interior missing entries are left missing. The windowed statistics functions
// shorten by window-1, so the caller passes their output straight in.
func ExtendLinear(values []float64, n int) ([]float64, error) {
	if len(values) == 0 {
		return nil, core.NewDataError("extend of empty vector")
	}
	if len(values) > n {
		return nil, core.NewDataError("extend target shorter than input")
	}
	offset := (n - len(values)) / 2
	out := make([]float64, n)
	for i := range out {
		out[i] = series.Missing()
	}
	copy(out[offset:], values)

	firstIdx, secondIdx := -1, -1
	for i, v := range values {
		if series.IsMissing(v) {
			continue
		}
		if firstIdx < 0 {
			firstIdx = i
		} else if secondIdx < 0 {
			secondIdx = i
			break
		}
	}
	if firstIdx < 0 {
		// Nothing valid to extrapolate from; propagate an all-missing result.
		return out, nil
	}

	lastIdx, prevIdx := -1, -1
	for i := len(values) - 1; i >= 0; i-- {
		if series.IsMissing(values[i]) {
			continue
		}
		if lastIdx < 0 {
			lastIdx = i
		} else if prevIdx < 0 {
			prevIdx = i
			break
		}
	}

	leftSlope := 0.0
	if secondIdx >= 0 {
		leftSlope = (values[secondIdx] - values[firstIdx]) / float64(secondIdx-firstIdx)
	}
	for i := 0; i < offset+firstIdx; i++ {
		out[i] = values[firstIdx] + leftSlope*float64(i-(offset+firstIdx))
	}

	rightSlope := 0.0
	if prevIdx >= 0 {
		rightSlope = (values[lastIdx] - values[prevIdx]) / float64(lastIdx-prevIdx)
	}
	for i := offset + lastIdx + 1; i < n; i++ {
		out[i] = values[lastIdx] + rightSlope*float64(i-(offset+lastIdx))
	}
	return out, nil
}
