package mcmc

import (
	"math"
	"math/rand"
	"testing"

	"gapmend/domain/core"
)

func gaussianDraws(chains, n int, mean, sd float64, seed int64) [][][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][][]float64, chains)
	for c := range out {
		out[c] = make([][]float64, n)
		for i := range out[c] {
			out[c][i] = []float64{mean + rng.NormFloat64()*sd}
		}
	}
	return out
}

func TestRhat_NearOneForSharedDistribution(t *testing.T) {
	draws := gaussianDraws(4, 500, 10, 1, 1)
	rhat, err := Rhat(draws)
	if err != nil {
		t.Fatalf("Rhat: %v", err)
	}
	if rhat[0] < 0.9 || rhat[0] > RhatThreshold {
		t.Errorf("rhat = %g, want close to 1 for identically distributed chains", rhat[0])
	}
}

func TestRhat_DetectsDivergedChains(t *testing.T) {
	draws := gaussianDraws(2, 500, 0, 1, 2)
	for i := range draws[1] {
		draws[1][i][0] += 50
	}
	rhat, err := Rhat(draws)
	if err != nil {
		t.Fatalf("Rhat: %v", err)
	}
	if rhat[0] <= RhatThreshold {
		t.Errorf("rhat = %g, want above threshold for diverged chains", rhat[0])
	}
	if max, exceeded := MaxRhat(rhat); !exceeded || max != rhat[0] {
		t.Errorf("MaxRhat = (%g, %v)", max, exceeded)
	}
}

func TestRhat_FrozenChains(t *testing.T) {
	same := [][][]float64{
		{{5}, {5}, {5}},
		{{5}, {5}, {5}},
	}
	rhat, err := Rhat(same)
	if err != nil {
		t.Fatalf("Rhat: %v", err)
	}
	if rhat[0] != 1.0 {
		t.Errorf("chains frozen at the same value: rhat = %g, want 1", rhat[0])
	}

	different := [][][]float64{
		{{5}, {5}, {5}},
		{{7}, {7}, {7}},
	}
	rhat, err = Rhat(different)
	if err != nil {
		t.Fatalf("Rhat: %v", err)
	}
	if rhat[0] <= RhatThreshold {
		t.Errorf("chains frozen at different values: rhat = %g, want large", rhat[0])
	}
}

func TestRhat_TruncatesToShortestChain(t *testing.T) {
	draws := gaussianDraws(2, 100, 0, 1, 3)
	draws[1] = draws[1][:60]
	rhat, err := Rhat(draws)
	if err != nil {
		t.Fatalf("Rhat: %v", err)
	}
	if math.IsNaN(rhat[0]) {
		t.Error("unequal chain lengths must not produce NaN")
	}
}

func TestRhat_Errors(t *testing.T) {
	if _, err := Rhat(gaussianDraws(1, 100, 0, 1, 4)); !core.IsConfigError(err) {
		t.Errorf("single chain: got %v", err)
	}
	if _, err := Rhat(gaussianDraws(2, 1, 0, 1, 5)); !core.IsDataError(err) {
		t.Errorf("one draw per chain: got %v", err)
	}
}
