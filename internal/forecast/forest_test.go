package forecast

import (
	"math"
	"testing"
)

func TestForestConstantTarget(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}, {4}, {5}}
	targets := []float64{7, 7, 7, 7, 7}

	f := FitForest(features, targets, 10, 42)
	for _, x := range []float64{0, 2.5, 10} {
		if got := f.Predict([]float64{x}); got != 7 {
			t.Errorf("Predict(%v) = %v, want 7", x, got)
		}
	}
}

func TestForestStepFunction(t *testing.T) {
	var features [][]float64
	var targets []float64
	for x := 0.0; x < 10; x++ {
		features = append(features, []float64{x})
		if x < 5 {
			targets = append(targets, 0)
		} else {
			targets = append(targets, 10)
		}
	}

	f := FitForest(features, targets, 100, 42)
	if got := f.Predict([]float64{1}); math.Abs(got) > 2 {
		t.Errorf("Predict(1) = %v, want near 0", got)
	}
	if got := f.Predict([]float64{8}); math.Abs(got-10) > 2 {
		t.Errorf("Predict(8) = %v, want near 10", got)
	}
}

func TestForestUsesSecondFeature(t *testing.T) {
	// Target depends only on the second feature; the first is noise.
	features := [][]float64{
		{9, 1}, {1, 1}, {5, 1}, {3, 1},
		{2, 2}, {8, 2}, {4, 2}, {6, 2},
	}
	targets := []float64{1, 1, 1, 1, 5, 5, 5, 5}

	f := FitForest(features, targets, 50, 42)
	if got := f.Predict([]float64{7, 1}); math.Abs(got-1) > 1 {
		t.Errorf("Predict(·, 1) = %v, want near 1", got)
	}
	if got := f.Predict([]float64{7, 2}); math.Abs(got-5) > 1 {
		t.Errorf("Predict(·, 2) = %v, want near 5", got)
	}
}

func TestForestDeterministicSeed(t *testing.T) {
	var features [][]float64
	var targets []float64
	for x := 0.0; x < 30; x++ {
		features = append(features, []float64{x, 30 - x})
		targets = append(targets, math.Sin(x)*5+5)
	}

	a := FitForest(features, targets, 25, 42)
	b := FitForest(features, targets, 25, 42)
	for x := 0.0; x < 30; x += 0.5 {
		sample := []float64{x, 30 - x}
		if a.Predict(sample) != b.Predict(sample) {
			t.Fatalf("same seed produced different predictions at x=%v", x)
		}
	}
}

func TestForestSingleSample(t *testing.T) {
	f := FitForest([][]float64{{1, 2, 3}}, []float64{4.5}, 5, 42)
	if got := f.Predict([]float64{9, 9, 9}); got != 4.5 {
		t.Errorf("Predict = %v, want 4.5", got)
	}
}
