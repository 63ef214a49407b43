package datasets

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Shape constants for the penguins dataset.
const (
	PenguinsSamples  = 333
	PenguinsFeatures = 4

	PenguinsAdelie    = 146
	PenguinsChinstrap = 68
	PenguinsGentoo    = 119
)

const penguinsSeed = 20200333

// LoadPenguins returns the penguins dataset: 333 complete observations of
// three species with four body measurements. Gentoo penguins separate
// cleanly on flipper length and body mass; Adelie and Chinstrap overlap on
// everything except bill length, which makes the dataset a good clustering
// exercise.
func LoadPenguins() *Dataset {
	rng := rand.New(rand.NewSource(penguinsSeed))

	featureNames := []string{"bill_length_mm", "bill_depth_mm", "flipper_length_mm", "body_mass_g"}
	classNames := []string{"adelie", "chinstrap", "gentoo"}

	// Per-species means and standard deviations for
	// bill length, bill depth, flipper length, body mass.
	means := [][]float64{
		{38.8, 18.3, 190.1, 3706}, // adelie
		{48.8, 18.4, 195.8, 3733}, // chinstrap
		{47.5, 15.0, 217.2, 5092}, // gentoo
	}
	stds := [][]float64{
		{2.7, 1.2, 6.5, 459},
		{3.3, 1.1, 7.1, 384},
		{3.1, 1.0, 6.5, 501},
	}
	counts := []int{PenguinsAdelie, PenguinsChinstrap, PenguinsGentoo}

	X := mat.NewDense(PenguinsSamples, PenguinsFeatures, nil)
	y := mat.NewVecDense(PenguinsSamples, nil)

	row := 0
	for class, count := range counts {
		for i := 0; i < count; i++ {
			for j := 0; j < PenguinsFeatures; j++ {
				X.Set(row, j, means[class][j]+rng.NormFloat64()*stds[class][j])
			}
			y.SetVec(row, float64(class))
			row++
		}
	}

	shuffleRows(rng, X, y)

	return &Dataset{
		Name:         "penguins",
		X:            X,
		Y:            y,
		FeatureNames: featureNames,
		TargetName:   "species",
		ClassNames:   classNames,
	}
}
