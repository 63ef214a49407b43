// Package datasets provides the bundled toy datasets used by the example
// posts. Every loader is a pure function: it builds the dataset from a fixed
// internal seed, so repeated loads return byte-identical data and any
// experiment run on top of them is reproducible.
package datasets

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dataset is an immutable in-memory table of numeric feature columns plus a
// target column. The target is continuous for regression datasets and a
// class index for classification datasets; clustering posts simply ignore it.
type Dataset struct {
	// Name identifies the dataset in logs and reports.
	Name string

	// X is the feature matrix, one row per sample.
	X *mat.Dense

	// Y is the target vector, one entry per row of X.
	Y *mat.VecDense

	// FeatureNames labels the columns of X.
	FeatureNames []string

	// TargetName labels Y.
	TargetName string

	// ClassNames maps class indices to names. Nil for regression datasets.
	ClassNames []string
}

// Dims returns the number of samples and features.
func (d *Dataset) Dims() (samples, features int) {
	return d.X.Dims()
}

// YMatrix returns the target as an n×1 matrix, the shape estimators expect.
func (d *Dataset) YMatrix() *mat.Dense {
	n := d.Y.Len()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, d.Y.AtVec(i))
	}
	return out
}

// shuffleRows applies the same deterministic permutation to X rows and Y
// entries in place.
func shuffleRows(rng *rand.Rand, X *mat.Dense, y *mat.VecDense) {
	n, cols := X.Dims()
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		for c := 0; c < cols; c++ {
			xi, xj := X.At(i, c), X.At(j, c)
			X.Set(i, c, xj)
			X.Set(j, c, xi)
		}
		yi, yj := y.AtVec(i), y.AtVec(j)
		y.SetVec(i, yj)
		y.SetVec(j, yi)
	}
}
