package datasets

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Shape constants for the breast cancer dataset.
const (
	BreastCancerSamples   = 569
	BreastCancerFeatures  = 10
	BreastCancerMalignant = 212
	BreastCancerBenign    = 357
)

// Class indices for the breast cancer target.
const (
	ClassMalignant = 0
	ClassBenign    = 1
)

const breastCancerSeed = 19930569

// LoadBreastCancer returns the breast cancer binary classification dataset:
// 569 samples (212 malignant, 357 benign) with 10 mean cell-nucleus
// measurements. Malignant tumours have larger, more irregular nuclei, so the
// classes are well separated but overlap enough that classifiers make a
// realistic number of mistakes.
func LoadBreastCancer() *Dataset {
	rng := rand.New(rand.NewSource(breastCancerSeed))

	featureNames := []string{
		"mean_radius", "mean_texture", "mean_perimeter", "mean_area",
		"mean_smoothness", "mean_compactness", "mean_concavity",
		"mean_concave_points", "mean_symmetry", "mean_fractal_dimension",
	}

	// Per-class feature means and standard deviations, malignant first.
	malignantMean := []float64{17.5, 21.6, 115.4, 978.4, 0.103, 0.145, 0.161, 0.088, 0.193, 0.063}
	malignantStd := []float64{3.2, 3.8, 21.9, 368.0, 0.013, 0.054, 0.075, 0.034, 0.028, 0.008}
	benignMean := []float64{12.1, 17.9, 78.1, 462.8, 0.092, 0.080, 0.046, 0.026, 0.174, 0.063}
	benignStd := []float64{1.8, 4.0, 11.8, 134.3, 0.013, 0.034, 0.043, 0.016, 0.025, 0.007}

	X := mat.NewDense(BreastCancerSamples, BreastCancerFeatures, nil)
	y := mat.NewVecDense(BreastCancerSamples, nil)

	row := 0
	fill := func(count int, class float64, means, stds []float64) {
		for i := 0; i < count; i++ {
			for j := 0; j < BreastCancerFeatures; j++ {
				v := means[j] + rng.NormFloat64()*stds[j]
				if v < 0 {
					v = 0 // measurements are non-negative
				}
				X.Set(row, j, v)
			}
			y.SetVec(row, class)
			row++
		}
	}
	fill(BreastCancerMalignant, ClassMalignant, malignantMean, malignantStd)
	fill(BreastCancerBenign, ClassBenign, benignMean, benignStd)

	shuffleRows(rng, X, y)

	return &Dataset{
		Name:         "breast_cancer",
		X:            X,
		Y:            y,
		FeatureNames: featureNames,
		TargetName:   "diagnosis",
		ClassNames:   []string{"malignant", "benign"},
	}
}
