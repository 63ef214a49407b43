// Package naive_bayes implements naive Bayes classifiers.
package naive_bayes

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// GaussianNB は各クラス内で特徴量が独立な正規分布に従うと仮定する
// 単純ベイズ分類器。scikit-learn の GaussianNB と互換のAPIを持つ。
type GaussianNB struct {
	state *model.StateManager

	// Hyperparameters
	varSmoothing float64 // 分散に加える微小値(数値安定化)

	// Learned parameters
	classes_    []int
	classPrior_ []float64   // 各クラスの事前確率
	theta_      [][]float64 // クラスごとの特徴量平均 [class][feature]
	sigma_      [][]float64 // クラスごとの特徴量分散 [class][feature]
}

// GaussianNBOption is a functional option for GaussianNB.
type GaussianNBOption func(*GaussianNB)

// WithVarSmoothing sets the fraction of the largest feature variance added
// to all variances for numerical stability.
func WithVarSmoothing(eps float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.varSmoothing = eps
	}
}

// NewGaussianNB creates a new GaussianNB classifier.
func NewGaussianNB(opts ...GaussianNBOption) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit estimates per-class feature means, variances and class priors.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows != yRows {
		return errors.NewDimensionError("GaussianNB.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GaussianNB.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.NewModelError("GaussianNB.Fit", "empty data", errors.ErrEmptyData)
	}

	nb.extractClasses(y)
	nClasses := len(nb.classes_)

	counts := make([]float64, nClasses)
	nb.theta_ = make([][]float64, nClasses)
	nb.sigma_ = make([][]float64, nClasses)
	for c := range nb.theta_ {
		nb.theta_[c] = make([]float64, cols)
		nb.sigma_[c] = make([]float64, cols)
	}

	for i := 0; i < rows; i++ {
		c := nb.classIndex(int(y.At(i, 0)))
		counts[c]++
		for j := 0; j < cols; j++ {
			nb.theta_[c][j] += X.At(i, j)
		}
	}
	for c := 0; c < nClasses; c++ {
		for j := 0; j < cols; j++ {
			nb.theta_[c][j] /= counts[c]
		}
	}
	for i := 0; i < rows; i++ {
		c := nb.classIndex(int(y.At(i, 0)))
		for j := 0; j < cols; j++ {
			d := X.At(i, j) - nb.theta_[c][j]
			nb.sigma_[c][j] += d * d
		}
	}

	// sklearn 同様、最大分散の varSmoothing 倍を全分散に加算する。
	maxVar := 0.0
	for c := 0; c < nClasses; c++ {
		for j := 0; j < cols; j++ {
			nb.sigma_[c][j] /= counts[c]
			if nb.sigma_[c][j] > maxVar {
				maxVar = nb.sigma_[c][j]
			}
		}
	}
	eps := nb.varSmoothing * maxVar
	if eps == 0 {
		eps = nb.varSmoothing
	}
	for c := 0; c < nClasses; c++ {
		for j := 0; j < cols; j++ {
			nb.sigma_[c][j] += eps
		}
	}

	nb.classPrior_ = make([]float64, nClasses)
	for c := 0; c < nClasses; c++ {
		nb.classPrior_[c] = counts[c] / float64(rows)
	}

	nb.state.SetFitted()
	nb.state.SetDimensions(cols, rows)
	return nil
}

// jointLogLikelihood returns log P(class) + log P(x | class) per class.
func (nb *GaussianNB) jointLogLikelihood(x []float64) []float64 {
	nClasses := len(nb.classes_)
	jll := make([]float64, nClasses)
	for c := 0; c < nClasses; c++ {
		ll := errors.SafeLog(nb.classPrior_[c])
		for j, v := range x {
			variance := nb.sigma_[c][j]
			d := v - nb.theta_[c][j]
			ll += -0.5*math.Log(2*math.Pi*variance) - d*d/(2*variance)
		}
		jll[c] = ll
	}
	return jll
}

// PredictProba returns normalized posterior probabilities per class.
// 正規化は対数空間で logsumexp を使って行う。
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequireFitted("GaussianNB", "PredictProba"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := nb.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("GaussianNB.PredictProba", nFeatures, cols, 1)
	}

	nClasses := len(nb.classes_)
	proba := mat.NewDense(rows, nClasses, nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		jll := nb.jointLogLikelihood(x)
		logZ := floats.LogSumExp(jll)
		for c := 0; c < nClasses; c++ {
			proba.Set(i, c, math.Exp(jll[c]-logZ))
		}
	}
	return proba, nil
}

// Predict returns the class with the highest posterior per row.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequireFitted("GaussianNB", "Predict"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := nb.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("GaussianNB.Predict", nFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		jll := nb.jointLogLikelihood(x)
		best := 0
		for c := 1; c < len(jll); c++ {
			if jll[c] > jll[best] {
				best = c
			}
		}
		predictions.Set(i, 0, float64(nb.classes_[best]))
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (nb *GaussianNB) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if int(predictions.At(i, 0)) == int(y.At(i, 0)) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// Classes returns the unique class labels seen during fitting.
func (nb *GaussianNB) Classes() []int {
	classes := make([]int, len(nb.classes_))
	copy(classes, nb.classes_)
	return classes
}

// ClassPrior returns the estimated prior probability of each class.
func (nb *GaussianNB) ClassPrior() []float64 {
	prior := make([]float64, len(nb.classPrior_))
	copy(prior, nb.classPrior_)
	return prior
}

// IsFitted returns whether the model has been fitted.
func (nb *GaussianNB) IsFitted() bool {
	return nb.state.IsFitted()
}

func (nb *GaussianNB) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}
	nb.classes_ = make([]int, 0, len(classMap))
	for class := range classMap {
		nb.classes_ = append(nb.classes_, class)
	}
	sort.Ints(nb.classes_)
}

func (nb *GaussianNB) classIndex(label int) int {
	for i, c := range nb.classes_ {
		if c == label {
			return i
		}
	}
	return 0
}
