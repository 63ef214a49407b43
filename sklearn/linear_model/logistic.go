package linear_model

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// LogisticRegression implements logistic regression for classification,
// compatible with scikit-learn's LogisticRegression. Binary problems are
// fitted directly; multiclass problems use one-vs-rest.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	C            float64 // Inverse L2 regularization strength
	fitIntercept bool
	maxIter      int
	tol          float64
	randomState  int64

	// Learned parameters
	coef_      [][]float64 // One row per binary subproblem
	intercept_ []float64
	classes_   []int

	rng *rand.Rand
}

// LogisticRegressionOption is a functional option for LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// WithLRC sets the inverse L2 regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit an intercept term.
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of gradient descent iterations.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the gradient norm tolerance for the stopping criterion.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed for weight initialization.
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// NewLogisticRegression creates a new LogisticRegression classifier.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
		randomState:  -1,
	}
	for _, opt := range opts {
		opt(lr)
	}

	if lr.randomState >= 0 {
		lr.rng = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return lr
}

// Fit trains the logistic regression model.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	lr.extractClasses(y)
	if len(lr.classes_) < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "y contains a single class")
	}

	// Binary problems need one weight vector; multiclass gets one per class.
	nProblems := len(lr.classes_)
	if nProblems == 2 {
		nProblems = 1
	}
	lr.coef_ = make([][]float64, nProblems)
	lr.intercept_ = make([]float64, nProblems)
	for p := range lr.coef_ {
		lr.coef_[p] = make([]float64, nFeatures)
		for j := range lr.coef_[p] {
			lr.coef_[p][j] = lr.rng.NormFloat64() * 0.01
		}
	}

	for p := range lr.coef_ {
		posLabel := lr.classes_[1]
		if len(lr.coef_) > 1 {
			posLabel = lr.classes_[p]
		}
		lr.fitOne(X, y, p, posLabel)
	}

	lr.state.SetFitted()
	lr.state.SetDimensions(nFeatures, nSamples)
	return nil
}

// fitOne runs gradient descent for the subproblem "class posLabel vs rest",
// updating the p-th weight vector in place.
func (lr *LogisticRegression) fitOne(X, y mat.Matrix, p, posLabel int) {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[p]
	intercept := &lr.intercept_[p]
	lambda := 1.0 / lr.C

	yBin := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		if int(y.At(i, 0)) == posLabel {
			yBin[i] = 1.0
		}
	}

	gradWeights := make([]float64, nFeatures)
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - yBin[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] = gradWeights[j]/float64(nSamples) + lambda*weights[j]/float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		// 学習率は反復とともに減衰させる
		learningRate := 1.0 / (1.0 + 0.1*float64(iter))

		maxGrad := math.Abs(gradIntercept)
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
			if g := math.Abs(gradWeights[j]); g > maxGrad {
				maxGrad = g
			}
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}

		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}
}

// extractClasses identifies the unique class labels, sorted ascending.
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	lr.classes_ = make([]int, 0, len(classMap))
	for class := range classMap {
		lr.classes_ = append(lr.classes_, class)
	}
	sort.Ints(lr.classes_)
}

// PredictProba returns probability estimates, one column per class in the
// order reported by Classes.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := lr.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", nFeatures, cols, 1)
	}

	nClasses := len(lr.classes_)
	proba := mat.NewDense(rows, nClasses, nil)

	for i := 0; i < rows; i++ {
		if nClasses == 2 {
			z := lr.intercept_[0]
			for j := 0; j < cols; j++ {
				z += X.At(i, j) * lr.coef_[0][j]
			}
			p := sigmoid(z)
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
			continue
		}

		// One-vs-rest: normalize the per-class sigmoid outputs.
		total := 0.0
		for p := 0; p < nClasses; p++ {
			z := lr.intercept_[p]
			for j := 0; j < cols; j++ {
				z += X.At(i, j) * lr.coef_[p][j]
			}
			s := sigmoid(z)
			proba.Set(i, p, s)
			total += s
		}
		if total > 0 {
			for p := 0; p < nClasses; p++ {
				proba.Set(i, p, proba.At(i, p)/total)
			}
		}
	}
	return proba, nil
}

// Predict returns the predicted class label for each row of X.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best, bestProb := 0, proba.At(i, 0)
		for p := 1; p < len(lr.classes_); p++ {
			if proba.At(i, p) > bestProb {
				best, bestProb = p, proba.At(i, p)
			}
		}
		predictions.Set(i, 0, float64(lr.classes_[best]))
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
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
func (lr *LogisticRegression) Classes() []int {
	classes := make([]int, len(lr.classes_))
	copy(classes, lr.classes_)
	return classes
}

// Coef returns the learned weight vectors, one per binary subproblem.
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for i := range lr.coef_ {
		out[i] = make([]float64, len(lr.coef_[i]))
		copy(out[i], lr.coef_[i])
	}
	return out
}

// IsFitted returns whether the model has been fitted.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	// 数値的安定性のため負の入力では式を変形する
	e := math.Exp(z)
	return e / (1.0 + e)
}
