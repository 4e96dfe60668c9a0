package ports

// ReconstructionRow is one exported grid point: the point reconstruction and
// its credibility band.
type ReconstructionRow struct {
	Time  float64
	Value float64
	Lower float64
	Upper float64
}

// ResultWriter exports a reconstructed series. Implementations write CSV or
// Excel; the two-column (time, value) contract is the minimum every writer
// honors.
type ResultWriter interface {
	Write(path string, rows []ReconstructionRow) error
}
