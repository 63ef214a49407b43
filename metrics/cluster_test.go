package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestInertia(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 2,
		10, 0,
		10, 2,
	})
	labels := []int{0, 0, 1, 1}
	centers := [][]float64{{0, 1}, {10, 1}}

	got, err := Inertia(X, labels, centers)
	if err != nil {
		t.Fatalf("Inertia() error = %v", err)
	}
	// Every point is 1 away from its center: 4 * 1² = 4
	if math.Abs(got-4.0) > 1e-10 {
		t.Errorf("Inertia() = %v, want 4.0", got)
	}
}

func TestInertiaValidation(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 1, 1})

	if _, err := Inertia(X, []int{0}, [][]float64{{0, 0}}); err == nil {
		t.Error("expected error for label length mismatch")
	}
	if _, err := Inertia(X, []int{0, 3}, [][]float64{{0, 0}}); err == nil {
		t.Error("expected error for out-of-range label")
	}
}

func TestSilhouetteScoreWellSeparated(t *testing.T) {
	// Two tight, far-apart clusters: silhouette close to 1.
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 0.1,
		0.1, 0,
		100, 100,
		100, 100.1,
		100.1, 100,
	})
	labels := []int{0, 0, 0, 1, 1, 1}

	got, err := SilhouetteScore(X, labels)
	if err != nil {
		t.Fatalf("SilhouetteScore() error = %v", err)
	}
	if got < 0.99 || got > 1.0 {
		t.Errorf("SilhouetteScore() = %v, want near 1", got)
	}
}

func TestSilhouetteScoreBounds(t *testing.T) {
	// Deliberately bad assignment still stays within [-1, 1].
	X := mat.NewDense(4, 1, []float64{0, 0.1, 10, 10.1})
	labels := []int{0, 1, 0, 1}

	got, err := SilhouetteScore(X, labels)
	if err != nil {
		t.Fatalf("SilhouetteScore() error = %v", err)
	}
	if got < -1 || got > 1 {
		t.Errorf("SilhouetteScore() = %v, out of [-1, 1]", got)
	}
	if got >= 0 {
		t.Errorf("SilhouetteScore() = %v, expected negative for crossed clusters", got)
	}
}

func TestSilhouetteScoreIgnoresNoise(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 0.1, 10, 10.1, 500})
	labels := []int{0, 0, 1, 1, -1}

	got, err := SilhouetteScore(X, labels)
	if err != nil {
		t.Fatalf("SilhouetteScore() error = %v", err)
	}
	if got < 0.9 {
		t.Errorf("SilhouetteScore() = %v, noise point should not drag the score", got)
	}
}

func TestSilhouetteScoreSingleCluster(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	if _, err := SilhouetteScore(X, []int{0, 0, 0}); err == nil {
		t.Error("expected error for a single cluster")
	}
}
