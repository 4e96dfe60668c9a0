package posterior

import (
	"math"
	"math/rand"
	"testing"

	"gapmend/domain/core"
	"gapmend/domain/series"
)

func chainDraws(chains, n, dim int, offset float64, seed int64) [][][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][][]float64, chains)
	for c := range out {
		out[c] = make([][]float64, n)
		for i := range out[c] {
			draw := make([]float64, dim)
			for p := range draw {
				draw[p] = offset + float64(p) + rng.NormFloat64()
			}
			out[c][i] = draw
		}
	}
	return out
}

func TestDefaultLevels(t *testing.T) {
	levels := DefaultLevels()
	if len(levels) != 37 {
		t.Fatalf("got %d levels, want 37", len(levels))
	}
	if math.Abs(levels[0]-0.05) > 1e-9 || math.Abs(levels[36]-0.95) > 1e-9 {
		t.Errorf("level range [%g, %g], want [0.05, 0.95]", levels[0], levels[36])
	}
	mid := levels[18]
	if math.Abs(mid-0.5) > 1e-9 {
		t.Errorf("middle level %g, want 0.5", mid)
	}
}

func TestSummarize_QuantilesMonotone(t *testing.T) {
	draws := chainDraws(3, 400, 4, 10, 1)
	s, err := Summarize(draws, 0.5, DefaultLevels())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Len() != 4 {
		t.Fatalf("summary dimension %d, want 4", s.Len())
	}
	for p := 0; p < s.Len(); p++ {
		for q := 1; q < len(s.Levels); q++ {
			if s.Values[p][q] < s.Values[p][q-1] {
				t.Fatalf("quantiles not monotone at index %d: q[%d]=%g < q[%d]=%g",
					p, q, s.Values[p][q], q-1, s.Values[p][q-1])
			}
		}
		lo, hi := s.Band(p)
		med := s.Median(p)
		if med < lo || med > hi {
			t.Errorf("median %g outside band [%g, %g] at index %d", med, lo, hi, p)
		}
	}
}

func TestSummarize_BurnInDiscardsEarlyDraws(t *testing.T) {
	// Early draws sit at 100, late draws at 0. A 90% burn-in must leave the
	// summary at the late level.
	const n = 100
	chain := make([][]float64, n)
	for i := range chain {
		v := 0.0
		if i < 90 {
			v = 100
		}
		chain[i] = []float64{v}
	}
	s, err := Summarize([][][]float64{chain}, 0.9, []float64{0.5})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Values[0][0] != 0 {
		t.Errorf("median %g, want 0 after burn-in", s.Values[0][0])
	}
}

func TestSummarize_IgnoresMissingSamples(t *testing.T) {
	chain := [][]float64{
		{1}, {series.Missing()}, {3}, {series.Missing()}, {5},
	}
	s, err := Summarize([][][]float64{chain}, 0, []float64{0.5})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Values[0][0] != 3 {
		t.Errorf("median %g, want 3 over the valid samples", s.Values[0][0])
	}
}

func TestSummarize_ConfigErrors(t *testing.T) {
	draws := chainDraws(2, 10, 1, 0, 2)
	if _, err := Summarize(draws, 1.0, DefaultLevels()); !core.IsConfigError(err) {
		t.Errorf("burn-in 1.0: got %v", err)
	}
	if _, err := Summarize(draws, -0.1, DefaultLevels()); !core.IsConfigError(err) {
		t.Errorf("negative burn-in: got %v", err)
	}
	if _, err := Summarize(draws, 0.5, nil); !core.IsConfigError(err) {
		t.Errorf("empty levels: got %v", err)
	}
	if _, err := Summarize(draws, 0.5, []float64{0.5, 0.25}); !core.IsConfigError(err) {
		t.Errorf("decreasing levels: got %v", err)
	}
	if _, err := Summarize(draws, 0.5, []float64{0, 0.5}); !core.IsConfigError(err) {
		t.Errorf("level at 0: got %v", err)
	}
}

func TestSummarize_NoDrawsSurviveBurnIn(t *testing.T) {
	if _, err := Summarize(nil, 0.5, []float64{0.5}); !core.IsDataError(err) {
		t.Errorf("no draws: got %v", err)
	}
}
