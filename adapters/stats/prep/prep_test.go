package prep

import (
	"errors"
	"math"
	"testing"

	"gapmend/domain/core"
	"gapmend/domain/series"
	"gapmend/internal/testkit"
)

func unitGrid(t *testing.T, start, end float64) series.TimeGrid {
	t.Helper()
	grid, err := BuildGrid(start, end, 1)
	if err != nil {
		t.Fatalf("BuildGrid: %v", err)
	}
	return grid
}

func TestBuildGrid(t *testing.T) {
	grid, err := BuildGrid(1900, 1904, 1)
	if err != nil {
		t.Fatalf("BuildGrid: %v", err)
	}
	if grid.Len() != 5 || grid.Start() != 1900 || grid.End() != 1904 {
		t.Errorf("grid [%g..%g] len %d, want [1900..1904] len 5", grid.Start(), grid.End(), grid.Len())
	}

	if _, err := BuildGrid(1900, 1904, 0); !core.IsConfigError(err) {
		t.Errorf("zero step: got %v", err)
	}
	if _, err := BuildGrid(1904, 1900, 1); !core.IsDataError(err) {
		t.Errorf("empty span: got %v", err)
	}
}

func TestAlignToGrid_Interpolation(t *testing.T) {
	s, err := series.NewSeries([]float64{0, 2, 4}, []float64{0, 20, 10}, "obs")
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	grid := unitGrid(t, -1, 5)
	got := AlignToGrid(s, grid)

	if !series.IsMissing(got[0]) || !series.IsMissing(got[6]) {
		t.Error("grid points outside the observation span must be missing")
	}
	want := []float64{0, 10, 20, 15, 10}
	for i, w := range want {
		if math.Abs(got[i+1]-w) > 1e-12 {
			t.Errorf("aligned[%d] = %g, want %g", i+1, got[i+1], w)
		}
	}
}

func TestCompletePositions_GapMask(t *testing.T) {
	// Observations at 0..3 and 9..12: the 6-year hole exceeds a 2-year
	// threshold, so grid points inside it are incomplete.
	times := []float64{0, 1, 2, 3, 9, 10, 11, 12}
	values := make([]float64, len(times))
	s, err := series.NewSeries(times, values, "obs")
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	grid := unitGrid(t, 0, 12)

	complete, err := CompletePositions(s, grid, 2)
	if err != nil {
		t.Fatalf("CompletePositions: %v", err)
	}
	want := []int{0, 1, 2, 3, 9, 10, 11, 12}
	if len(complete) != len(want) {
		t.Fatalf("complete = %v, want %v", complete, want)
	}
	for i := range want {
		if complete[i] != want[i] {
			t.Fatalf("complete = %v, want %v", complete, want)
		}
	}
}

func TestCompletePositions_OutsideSpanNeverComplete(t *testing.T) {
	s, err := series.NewSeries([]float64{5, 6, 7}, []float64{1, 2, 3}, "obs")
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	grid := unitGrid(t, 0, 12)
	complete, err := CompletePositions(s, grid, 2)
	if err != nil {
		t.Fatalf("CompletePositions: %v", err)
	}
	for _, idx := range complete {
		if idx < 5 || idx > 7 {
			t.Errorf("position %d outside the observation span marked complete", idx)
		}
	}
}

func TestCompletePositions_NoCoverage(t *testing.T) {
	s, err := series.NewSeries([]float64{100, 101}, []float64{1, 2}, "obs")
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	grid := unitGrid(t, 0, 10)
	if _, err := CompletePositions(s, grid, 2); !core.IsDataError(err) {
		t.Errorf("no coverage: got %v", err)
	}
}

func TestProfile_CoversWholeGrid(t *testing.T) {
	obs := testkit.AR1Series(80, 1900, 50, 0.8, 2, 7)
	grid := unitGrid(t, 1900, 1979)

	profile, err := Profile(obs, grid, 20)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if err := profile.Validate(grid.Len()); err != nil {
		t.Fatalf("profile invalid: %v", err)
	}
	for i := 0; i < grid.Len(); i++ {
		if series.IsMissing(profile.Mean[i]) {
			t.Fatalf("mean missing at %d", i)
		}
		if series.IsMissing(profile.Std[i]) || profile.Std[i] < 0 {
			t.Fatalf("std invalid at %d: %g", i, profile.Std[i])
		}
	}
}

func TestProfile_TracksLocalLevel(t *testing.T) {
	obs := testkit.Constant(60, 1900, 42)
	grid := unitGrid(t, 1900, 1959)
	profile, err := Profile(obs, grid, 10)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	for i := 0; i < grid.Len(); i++ {
		if math.Abs(profile.Mean[i]-42) > 1e-9 {
			t.Errorf("mean[%d] = %g, want 42 for a constant record", i, profile.Mean[i])
		}
		if math.Abs(profile.Std[i]) > 1e-9 {
			t.Errorf("std[%d] = %g, want 0 for a constant record", i, profile.Std[i])
		}
	}
}

func TestBinSparse(t *testing.T) {
	sp, err := series.NewSeries([]float64{-50, 5.2, 8.7, 200}, []float64{1, 2, 3, 4}, "sparse")
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	grid := unitGrid(t, 0, 12)

	points, err := BinSparse(sp, grid, 1)
	if err != nil {
		t.Fatalf("BinSparse: %v", err)
	}
	// The far-outside points are dropped, the in-span ones kept.
	if len(points) != 2 || points[0].Value != 2 || points[1].Value != 3 {
		t.Fatalf("points = %v, want the two in-span references", points)
	}
}

func TestBinSparse_OrphanInsideSpan(t *testing.T) {
	sp, err := series.NewSeries([]float64{5.5}, []float64{1}, "sparse")
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	grid, err := BuildGrid(0, 100, 10)
	if err != nil {
		t.Fatalf("BuildGrid: %v", err)
	}
	// Window [4.5, 6.5] sits between the grid points 0 and 10.
	if _, err := BinSparse(sp, grid, 1); !errors.Is(err, core.ErrOrphanReference) {
		t.Errorf("expected ErrOrphanReference, got %v", err)
	}
}

func TestBinSparse_NoOverlap(t *testing.T) {
	sp, err := series.NewSeries([]float64{500}, []float64{1}, "sparse")
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	grid := unitGrid(t, 0, 12)
	if _, err := BinSparse(sp, grid, 1); !core.IsDataError(err) {
		t.Errorf("no overlap: got %v", err)
	}
}

func TestACFReference_UsesOnlyObservedPositions(t *testing.T) {
	full := testkit.AR1Series(100, 1900, 50, 0.9, 2, 11)
	gapped := testkit.WithGaps(full, [][2]float64{{1930, 1959}})
	grid := unitGrid(t, 1900, 1999)

	acf, err := ACFReference(gapped, grid, 10, 2)
	if err != nil {
		t.Fatalf("ACFReference: %v", err)
	}
	if len(acf) != 11 {
		t.Fatalf("got %d lags, want 11", len(acf))
	}
	if math.Abs(acf[0]-1) > 1e-12 {
		t.Errorf("acf[0] = %g, want 1", acf[0])
	}
	if series.IsMissing(acf[1]) || acf[1] <= 0 {
		t.Errorf("acf[1] = %g, want positive for an AR(1) record", acf[1])
	}
}

func TestACFReference_ConstantRecordDegenerate(t *testing.T) {
	obs := testkit.Constant(50, 1900, 10)
	grid := unitGrid(t, 1900, 1949)
	if _, err := ACFReference(obs, grid, 5, 2); !errors.Is(err, core.ErrDegenerateACFRef) {
		t.Errorf("expected ErrDegenerateACFRef, got %v", err)
	}
}
