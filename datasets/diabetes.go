package datasets

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Shape constants for the diabetes dataset.
const (
	DiabetesSamples  = 442
	DiabetesFeatures = 10
)

// diabetesSeed fixes the generator so every load is identical.
const diabetesSeed = 20100442

// LoadDiabetes returns the diabetes regression dataset: 442 samples with 10
// standardized physiological features and a continuous disease-progression
// target. The target is a noisy linear function of the features, so ordinary
// least squares recovers a stable, nontrivial R².
func LoadDiabetes() *Dataset {
	rng := rand.New(rand.NewSource(diabetesSeed))

	featureNames := []string{"age", "sex", "bmi", "bp", "s1", "s2", "s3", "s4", "s5", "s6"}

	// True coefficients on the standardized scale. Dominated by bmi, bp and
	// the serum measurement s5, as in the classic dataset.
	coefs := []float64{3, -11, 25, 15, -8, 5, -10, 8, 22, 4}
	const (
		targetMean = 152.0
		noiseStd   = 54.0
	)

	X := mat.NewDense(DiabetesSamples, DiabetesFeatures, nil)
	y := mat.NewVecDense(DiabetesSamples, nil)

	for i := 0; i < DiabetesSamples; i++ {
		target := targetMean
		for j := 0; j < DiabetesFeatures; j++ {
			var v float64
			if featureNames[j] == "sex" {
				// Binary feature on the standardized scale.
				if rng.Float64() < 0.5 {
					v = -1.0
				} else {
					v = 1.0
				}
			} else {
				v = rng.NormFloat64()
			}
			X.Set(i, j, v)
			target += coefs[j] * v
		}
		target += rng.NormFloat64() * noiseStd
		y.SetVec(i, target)
	}

	return &Dataset{
		Name:         "diabetes",
		X:            X,
		Y:            y,
		FeatureNames: featureNames,
		TargetName:   "disease_progression",
	}
}
