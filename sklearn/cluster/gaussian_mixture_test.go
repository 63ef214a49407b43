package cluster

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// gmmBlobs returns two elongated 2-D blobs, 10 points each.
func gmmBlobs() *mat.Dense {
	return mat.NewDense(20, 2, []float64{
		0.0, 0.0,
		0.3, 0.1,
		-0.2, 0.2,
		0.1, -0.3,
		-0.1, -0.1,
		0.2, 0.3,
		-0.3, 0.1,
		0.1, 0.2,
		0.0, -0.2,
		-0.2, -0.3,
		6.0, 6.0,
		6.3, 6.1,
		5.8, 6.2,
		6.1, 5.7,
		5.9, 5.9,
		6.2, 6.3,
		5.7, 6.1,
		6.1, 6.2,
		6.0, 5.8,
		5.8, 5.7,
	})
}

// TestGaussianMixture_FitPredict tests component assignment on separated
// blobs
func TestGaussianMixture_FitPredict(t *testing.T) {
	X := gmmBlobs()

	gm := NewGaussianMixture(
		WithGMNComponents(2),
		WithGMRandomState(42),
	)

	labels, err := gm.FitPredict(X, nil)
	if err != nil {
		t.Fatalf("FitPredict failed: %v", err)
	}

	first := int(labels.At(0, 0))
	for i := 1; i < 10; i++ {
		if int(labels.At(i, 0)) != first {
			t.Errorf("Point %d should be in component %d, got %v", i, first, labels.At(i, 0))
		}
	}
	second := int(labels.At(10, 0))
	if second == first {
		t.Error("The two blobs should map to different components")
	}
	for i := 11; i < 20; i++ {
		if int(labels.At(i, 0)) != second {
			t.Errorf("Point %d should be in component %d, got %v", i, second, labels.At(i, 0))
		}
	}

	weights := gm.Weights()
	if len(weights) != 2 {
		t.Fatalf("Expected 2 weights, got %d", len(weights))
	}
	if math.Abs(weights[0]-0.5) > 0.05 || math.Abs(weights[1]-0.5) > 0.05 {
		t.Errorf("Expected roughly equal weights, got %v", weights)
	}
}

// TestGaussianMixture_ScoreSamples verifies a far-away point gets a much
// lower log-likelihood than in-distribution points
func TestGaussianMixture_ScoreSamples(t *testing.T) {
	X := gmmBlobs()

	gm := NewGaussianMixture(
		WithGMNComponents(2),
		WithGMRandomState(0),
	)
	if err := gm.Fit(X, nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	probe := mat.NewDense(3, 2, []float64{
		0.0, 0.0, // center of blob A
		6.0, 6.0, // center of blob B
		30.0, -30.0, // far outlier
	})
	scores, err := gm.ScoreSamples(probe)
	if err != nil {
		t.Fatalf("ScoreSamples failed: %v", err)
	}
	if scores.Len() != 3 {
		t.Fatalf("Expected 3 scores, got %d", scores.Len())
	}

	if scores.AtVec(2) >= scores.AtVec(0) || scores.AtVec(2) >= scores.AtVec(1) {
		t.Errorf("Outlier should score lower: %v", mat.Formatted(scores.T()))
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(scores.AtVec(i)) || math.IsInf(scores.AtVec(i), 1) {
			t.Errorf("Score %d is not finite: %v", i, scores.AtVec(i))
		}
	}
}

// TestGaussianMixture_PredictProba tests responsibility constraints
func TestGaussianMixture_PredictProba(t *testing.T) {
	X := gmmBlobs()

	gm := NewGaussianMixture(
		WithGMNComponents(2),
		WithGMRandomState(3),
	)
	if err := gm.Fit(X, nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	proba, err := gm.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	rows, cols := proba.Dims()
	if rows != 20 || cols != 2 {
		t.Fatalf("Expected proba shape (20, 2), got (%d, %d)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for k := 0; k < cols; k++ {
			p := proba.At(i, k)
			if p < 0 || p > 1 {
				t.Errorf("Invalid responsibility at (%d, %d): %v", i, k, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("Responsibilities for sample %d don't sum to 1: %v", i, sum)
		}
	}
}

// TestGaussianMixture_Deterministic verifies the same seed reproduces the
// fitted parameters
func TestGaussianMixture_Deterministic(t *testing.T) {
	X := gmmBlobs()

	fit := func() [][]float64 {
		gm := NewGaussianMixture(
			WithGMNComponents(2),
			WithGMRandomState(11),
		)
		if err := gm.Fit(X, nil); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		return gm.Means()
	}

	m1, m2 := fit(), fit()
	for k := range m1 {
		for j := range m1[k] {
			if m1[k][j] != m2[k][j] {
				t.Fatalf("Means differ at [%d][%d]: %v vs %v", k, j, m1[k][j], m2[k][j])
			}
		}
	}
}

// TestGaussianMixture_Score verifies the mean log-likelihood is finite and
// higher for training data than for distant probes
func TestGaussianMixture_Score(t *testing.T) {
	X := gmmBlobs()

	gm := NewGaussianMixture(
		WithGMNComponents(2),
		WithGMRandomState(5),
	)
	if err := gm.Fit(X, nil); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	trainScore, err := gm.Score(X, nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	far := mat.NewDense(2, 2, []float64{100, 100, -100, 100})
	farScore, err := gm.Score(far, nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if !(trainScore > farScore) {
		t.Errorf("Training score %v should exceed far-probe score %v", trainScore, farScore)
	}
}

// TestGaussianMixture_Errors tests validation and unfitted paths
func TestGaussianMixture_Errors(t *testing.T) {
	gm := NewGaussianMixture(WithGMNComponents(2))
	X := mat.NewDense(1, 2, []float64{1, 2})

	if err := gm.Fit(X, nil); err == nil {
		t.Error("Expected error when samples < components")
	}
	if _, err := gm.ScoreSamples(X); err == nil {
		t.Error("Expected error when scoring without fitting")
	}
	if _, err := gm.Predict(X); err == nil {
		t.Error("Expected error when predicting without fitting")
	}
}
