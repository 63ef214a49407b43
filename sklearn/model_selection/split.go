// Package model_selection provides utilities for splitting datasets into
// training and evaluation partitions.
package model_selection

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// TrainTestSplitIndices returns a deterministic, seeded partition of the row
// indices [0, n) into disjoint training and test sets. The same
// (n, testSize, seed) triple always produces the same partition. The test
// partition holds ceil(n * testSize) rows.
func TrainTestSplitIndices(n int, testSize float64, seed int64) (trainIdx, testIdx []int, err error) {
	if n <= 0 {
		return nil, nil, errors.NewValueError("TrainTestSplitIndices", "empty dataset")
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n {
		return nil, nil, errors.NewValidationError("test_size", "leaves no training samples", testSize)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	// Fisher-Yatesシャッフル
	rng := rand.New(rand.NewSource(seed))
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}

	return indices[nTest:], indices[:nTest], nil
}

// TrainTestSplit partitions X and y row-wise into training and test sets
// using a deterministic seeded shuffle. y must be a column vector with the
// same number of rows as X.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64) (XTrain, XTest, yTrain, yTest *mat.Dense, err error) {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows != yRows {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", 1, yCols, 1)
	}

	trainIdx, testIdx, err := TrainTestSplitIndices(rows, testSize, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	gather := func(idx []int) (*mat.Dense, *mat.Dense) {
		Xp := mat.NewDense(len(idx), cols, nil)
		yp := mat.NewDense(len(idx), 1, nil)
		for i, src := range idx {
			for c := 0; c < cols; c++ {
				Xp.Set(i, c, X.At(src, c))
			}
			yp.Set(i, 0, y.At(src, 0))
		}
		return Xp, yp
	}

	XTrain, yTrain = gather(trainIdx)
	XTest, yTest = gather(testIdx)
	return XTrain, XTest, yTrain, yTest, nil
}
