package likelihood

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gapmend/domain/core"
	"gapmend/domain/series"
)

func testRefs(t *testing.T) References {
	t.Helper()
	grid, err := series.NewTimeGrid([]float64{0, 1, 2, 3, 4})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	return References{
		Grid:     grid,
		Sparse:   []series.SparsePoint{{Time: 2, Value: 10}},
		Profile:  series.ReferenceProfile{Mean: []float64{10, 10, 10, 10, 10}, Std: []float64{1, 1, 1, 1, 1}},
		Complete: []int{0, 1, 2, 3, 4},
		ACF:      []float64{1, 0.5},
	}
}

func testParams() Params {
	return Params{DiscreteHalfWidth: 0.5, RollingWindow: 2, ErrSd: 5, ACFSd: 0.05}
}

func TestDiscreteTerm_SingleGridPointBin(t *testing.T) {
	// A half-width of 0.5 around t=2 covers exactly one grid point, so the
	// bin mean is the candidate value there and the term is the log-density
	// of the reference under N(mean, errSd) with a zero residual.
	e, err := NewEngine(testRefs(t), testParams())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	theta := []float64{10, 10, 10, 10, 10}
	got, err := e.discreteTerm(theta)
	if err != nil {
		t.Fatalf("discreteTerm: %v", err)
	}
	want := -math.Log(5 * math.Sqrt(2*math.Pi))
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("discrete term = %v, want %v", got, want)
	}
}

func TestDiscreteTerm_BinMeanNotPointwise(t *testing.T) {
	refs := testRefs(t)
	refs.Sparse = []series.SparsePoint{{Time: 2, Value: 10}}
	params := testParams()
	params.DiscreteHalfWidth = 1 // covers grid points 1, 2, 3
	e, err := NewEngine(refs, params)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	// Bin values average to 10 even though none equals it.
	theta := []float64{0, 7, 10, 13, 0}
	got, err := e.discreteTerm(theta)
	if err != nil {
		t.Fatalf("discreteTerm: %v", err)
	}
	want := -math.Log(5 * math.Sqrt(2*math.Pi))
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("discrete term = %v, want %v (scored on bin mean)", got, want)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e, err := NewEngine(testRefs(t), testParams())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	theta := []float64{9.1, 10.4, 9.8, 10.9, 9.5}
	first, err := e.Evaluate(theta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Evaluate(theta)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if again != first {
			t.Fatalf("evaluation not bit-identical: %v vs %v", again, first)
		}
	}
	if !isFinite(first) {
		t.Errorf("score not finite: %v", first)
	}
}

func TestEvaluate_RewardsMatchingCandidate(t *testing.T) {
	e, err := NewEngine(testRefs(t), testParams())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	near := []float64{9.9, 10.1, 10.0, 9.8, 10.2}
	far := []float64{30.1, 29.8, 30.3, 29.7, 30.2}
	llNear, err := e.Evaluate(near)
	if err != nil {
		t.Fatalf("Evaluate(near): %v", err)
	}
	llFar, err := e.Evaluate(far)
	if err != nil {
		t.Fatalf("Evaluate(far): %v", err)
	}
	if llNear <= llFar {
		t.Errorf("near candidate scored %v, far candidate %v; near must win", llNear, llFar)
	}
}

func TestEvaluate_NumericFailureNamesTerm(t *testing.T) {
	e, err := NewEngine(testRefs(t), testParams())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	// NaN inside the sparse bin poisons the bin mean.
	theta := []float64{10, 10, math.NaN(), 10, 10}
	_, err = e.Evaluate(theta)
	if !core.IsNumericError(err) {
		t.Fatalf("expected numeric error, got %v", err)
	}
	if !strings.Contains(err.Error(), TermDiscrete) {
		t.Errorf("diagnostic must name the failing term: %v", err)
	}
}

func TestEvaluate_DimensionMismatch(t *testing.T) {
	e, err := NewEngine(testRefs(t), testParams())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := e.Evaluate([]float64{1, 2}); !core.IsDataError(err) {
		t.Errorf("short candidate: got %v", err)
	}
}

func TestNewEngine_OrphanSparsePoint(t *testing.T) {
	refs := testRefs(t)
	refs.Sparse = []series.SparsePoint{{Time: 2.4, Value: 10}}
	params := testParams()
	params.DiscreteHalfWidth = 0.05 // window [2.35, 2.45] contains no grid point
	if _, err := NewEngine(refs, params); !errors.Is(err, core.ErrOrphanReference) {
		t.Errorf("expected ErrOrphanReference, got %v", err)
	}
}

func TestNewEngine_EagerValidation(t *testing.T) {
	base := testParams()

	refs := testRefs(t)
	refs.Complete = nil
	if _, err := NewEngine(refs, base); !core.IsDataError(err) {
		t.Errorf("no complete positions: got %v", err)
	}

	refs = testRefs(t)
	refs.Complete = []int{99}
	if _, err := NewEngine(refs, base); !core.IsDataError(err) {
		t.Errorf("complete position outside grid: got %v", err)
	}

	refs = testRefs(t)
	refs.ACF = []float64{series.Missing(), series.Missing()}
	if _, err := NewEngine(refs, base); !errors.Is(err, core.ErrDegenerateACFRef) {
		t.Errorf("all-missing ACF reference: got %v", err)
	}

	params := base
	params.RollingWindow = 0
	if _, err := NewEngine(testRefs(t), params); !core.IsConfigError(err) {
		t.Errorf("zero window: got %v", err)
	}

	params = base
	params.ErrSd = -1
	if _, err := NewEngine(testRefs(t), params); !core.IsConfigError(err) {
		t.Errorf("negative error sd: got %v", err)
	}
}
