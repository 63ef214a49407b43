package cluster

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// GaussianMixture はEMアルゴリズムで学習する全共分散ガウス混合モデル。
// scikit-learnのGaussianMixtureと互換性を持つ。
type GaussianMixture struct {
	state *model.StateManager

	// ハイパーパラメータ
	nComponents int     // 混合成分数
	maxIter     int     // EMの最大イテレーション数
	tol         float64 // 平均対数尤度の収束判定閾値
	regCovar    float64 // 共分散対角に加える正則化項
	randomState int64   // 乱数シード

	// 学習パラメータ
	weights_     []float64       // 混合重み
	means_       [][]float64     // 成分ごとの平均
	covariances_ []*mat.SymDense // 成分ごとの共分散行列
	converged_   bool
	nIter_       int
	lowerBound_  float64 // 最終的な平均対数尤度

	dists []*distmv.Normal
	rng   *rand.Rand
}

// GMOption is a functional option for GaussianMixture.
type GMOption func(*GaussianMixture)

// WithGMNComponents sets the number of mixture components.
func WithGMNComponents(n int) GMOption {
	return func(gm *GaussianMixture) {
		gm.nComponents = n
	}
}

// WithGMMaxIter sets the maximum number of EM iterations.
func WithGMMaxIter(n int) GMOption {
	return func(gm *GaussianMixture) {
		gm.maxIter = n
	}
}

// WithGMTol sets the convergence threshold on the mean log-likelihood gain.
func WithGMTol(tol float64) GMOption {
	return func(gm *GaussianMixture) {
		gm.tol = tol
	}
}

// WithGMRegCovar sets the regularization added to covariance diagonals.
func WithGMRegCovar(reg float64) GMOption {
	return func(gm *GaussianMixture) {
		gm.regCovar = reg
	}
}

// WithGMRandomState は乱数シードを設定
func WithGMRandomState(seed int64) GMOption {
	return func(gm *GaussianMixture) {
		gm.randomState = seed
	}
}

// NewGaussianMixture creates a new GaussianMixture model.
func NewGaussianMixture(opts ...GMOption) *GaussianMixture {
	gm := &GaussianMixture{
		state:       model.NewStateManager(),
		nComponents: 1,
		maxIter:     100,
		tol:         1e-3,
		regCovar:    1e-6,
		randomState: -1,
	}
	for _, opt := range opts {
		opt(gm)
	}

	if gm.randomState >= 0 {
		gm.rng = rand.New(rand.NewSource(gm.randomState))
	} else {
		gm.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return gm
}

// Fit runs expectation-maximization. Responsibilities are initialized from a
// k-means partition of the data, the scikit-learn default.
func (gm *GaussianMixture) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 {
		return errors.NewModelError("GaussianMixture.Fit", "empty data", errors.ErrEmptyData)
	}
	if gm.nComponents <= 0 {
		return errors.NewValidationError("n_components", "must be positive", gm.nComponents)
	}
	if rows < gm.nComponents {
		return errors.Newf("mlcookbook: サンプル数が成分数より少ないです: %d < %d", rows, gm.nComponents)
	}

	resp, err := gm.initResponsibilities(X)
	if err != nil {
		return err
	}
	if err := gm.mStep(X, resp); err != nil {
		return err
	}

	gm.converged_ = false
	prevLowerBound := math.Inf(-1)

	for iter := 0; iter < gm.maxIter; iter++ {
		gm.nIter_ = iter + 1

		// E-step
		logLik := 0.0
		x := make([]float64, cols)
		for i := 0; i < rows; i++ {
			mat.Row(x, i, X)
			logProbs := gm.weightedLogProb(x)
			logZ := floats.LogSumExp(logProbs)
			logLik += logZ
			for k := 0; k < gm.nComponents; k++ {
				resp.Set(i, k, math.Exp(logProbs[k]-logZ))
			}
		}
		lowerBound := logLik / float64(rows)
		if err := errors.CheckScalar("em_step", lowerBound, gm.nIter_); err != nil {
			return err
		}

		// M-step
		if err := gm.mStep(X, resp); err != nil {
			return err
		}

		if math.Abs(lowerBound-prevLowerBound) < gm.tol {
			gm.converged_ = true
			gm.lowerBound_ = lowerBound
			break
		}
		prevLowerBound = lowerBound
		gm.lowerBound_ = lowerBound
	}

	if !gm.converged_ {
		errors.Warn(errors.NewConvergenceWarning("GaussianMixture", gm.maxIter,
			"EM did not converge; consider increasing max_iter or tol"))
	}

	gm.state.SetFitted()
	gm.state.SetDimensions(cols, rows)
	return nil
}

// initResponsibilities builds one-hot responsibilities from a k-means run.
func (gm *GaussianMixture) initResponsibilities(X mat.Matrix) (*mat.Dense, error) {
	rows, _ := X.Dims()

	km := NewKMeans(
		WithKMeansNClusters(gm.nComponents),
		WithKMeansNInit(1),
		WithKMeansRandomState(gm.rng.Int63()),
	)
	if err := km.Fit(X, nil); err != nil {
		return nil, errors.Wrap(err, "initializing responsibilities")
	}

	resp := mat.NewDense(rows, gm.nComponents, nil)
	for i, label := range km.Labels() {
		resp.Set(i, label, 1)
	}
	return resp, nil
}

// mStep re-estimates weights, means and full covariances from the
// responsibilities, then rebuilds the component distributions.
func (gm *GaussianMixture) mStep(X mat.Matrix, resp *mat.Dense) error {
	rows, cols := X.Dims()

	nk := make([]float64, gm.nComponents)
	means := make([][]float64, gm.nComponents)
	for k := range means {
		means[k] = make([]float64, cols)
	}

	for i := 0; i < rows; i++ {
		for k := 0; k < gm.nComponents; k++ {
			r := resp.At(i, k)
			nk[k] += r
			for j := 0; j < cols; j++ {
				means[k][j] += r * X.At(i, j)
			}
		}
	}
	for k := 0; k < gm.nComponents; k++ {
		if nk[k] < 10*math.SmallestNonzeroFloat64 {
			return errors.NewNumericalInstabilityError("em_step", nk, gm.nIter_)
		}
		for j := 0; j < cols; j++ {
			means[k][j] /= nk[k]
		}
	}

	covs := make([]*mat.SymDense, gm.nComponents)
	diff := make([]float64, cols)
	for k := 0; k < gm.nComponents; k++ {
		cov := mat.NewSymDense(cols, nil)
		for i := 0; i < rows; i++ {
			r := resp.At(i, k)
			if r == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				diff[j] = X.At(i, j) - means[k][j]
			}
			for a := 0; a < cols; a++ {
				for b := a; b < cols; b++ {
					cov.SetSym(a, b, cov.At(a, b)+r*diff[a]*diff[b])
				}
			}
		}
		for a := 0; a < cols; a++ {
			for b := a; b < cols; b++ {
				cov.SetSym(a, b, cov.At(a, b)/nk[k])
			}
			cov.SetSym(a, a, cov.At(a, a)+gm.regCovar)
		}
		covs[k] = cov
	}

	weights := make([]float64, gm.nComponents)
	for k := 0; k < gm.nComponents; k++ {
		weights[k] = nk[k] / float64(rows)
	}

	dists := make([]*distmv.Normal, gm.nComponents)
	for k := 0; k < gm.nComponents; k++ {
		d, ok := distmv.NewNormal(means[k], covs[k], nil)
		if !ok {
			// 正定値でない共分散。reg_covar を増やすと回避できる。
			return errors.NewNumericalInstabilityError("em_step", covDiag(covs[k]), gm.nIter_)
		}
		dists[k] = d
	}

	gm.weights_ = weights
	gm.means_ = means
	gm.covariances_ = covs
	gm.dists = dists
	return nil
}

func covDiag(cov *mat.SymDense) []float64 {
	n := cov.SymmetricDim()
	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = cov.At(i, i)
	}
	return diag
}

// weightedLogProb returns log(weight_k) + log N(x | mu_k, Sigma_k) per
// component.
func (gm *GaussianMixture) weightedLogProb(x []float64) []float64 {
	logProbs := make([]float64, gm.nComponents)
	for k := 0; k < gm.nComponents; k++ {
		logProbs[k] = math.Log(gm.weights_[k]) + gm.dists[k].LogProb(x)
	}
	return logProbs
}

// ScoreSamples returns the log-likelihood of each sample under the mixture.
func (gm *GaussianMixture) ScoreSamples(X mat.Matrix) (*mat.VecDense, error) {
	if err := gm.state.RequireFitted("GaussianMixture", "ScoreSamples"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := gm.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("GaussianMixture.ScoreSamples", nFeatures, cols, 1)
	}

	scores := mat.NewVecDense(rows, nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		scores.SetVec(i, floats.LogSumExp(gm.weightedLogProb(x)))
	}
	return scores, nil
}

// Score returns the mean per-sample log-likelihood of X. The y argument is
// ignored and exists for interface compatibility.
func (gm *GaussianMixture) Score(X, y mat.Matrix) (float64, error) {
	scores, err := gm.ScoreSamples(X)
	if err != nil {
		return 0, err
	}
	return mat.Sum(scores) / float64(scores.Len()), nil
}

// PredictProba returns each sample's posterior responsibility per component.
func (gm *GaussianMixture) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := gm.state.RequireFitted("GaussianMixture", "PredictProba"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := gm.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("GaussianMixture.PredictProba", nFeatures, cols, 1)
	}

	proba := mat.NewDense(rows, gm.nComponents, nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		logProbs := gm.weightedLogProb(x)
		logZ := floats.LogSumExp(logProbs)
		for k := 0; k < gm.nComponents; k++ {
			proba.Set(i, k, math.Exp(logProbs[k]-logZ))
		}
	}
	return proba, nil
}

// Predict assigns each sample to its most responsible component.
func (gm *GaussianMixture) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := gm.PredictProba(X)
	if err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best, bestProb := 0, proba.At(i, 0)
		for k := 1; k < gm.nComponents; k++ {
			if proba.At(i, k) > bestProb {
				best, bestProb = k, proba.At(i, k)
			}
		}
		predictions.Set(i, 0, float64(best))
	}
	return predictions, nil
}

// FitPredict は学習と成分割り当てを同時に行う
func (gm *GaussianMixture) FitPredict(X, y mat.Matrix) (mat.Matrix, error) {
	if err := gm.Fit(X, y); err != nil {
		return nil, err
	}
	return gm.Predict(X)
}

// Weights returns the mixture weights.
func (gm *GaussianMixture) Weights() []float64 {
	weights := make([]float64, len(gm.weights_))
	copy(weights, gm.weights_)
	return weights
}

// Means returns the component means.
func (gm *GaussianMixture) Means() [][]float64 {
	means := make([][]float64, len(gm.means_))
	for k := range gm.means_ {
		means[k] = make([]float64, len(gm.means_[k]))
		copy(means[k], gm.means_[k])
	}
	return means
}

// Covariances returns the component covariance matrices.
func (gm *GaussianMixture) Covariances() []*mat.SymDense {
	covs := make([]*mat.SymDense, len(gm.covariances_))
	for k, cov := range gm.covariances_ {
		c := mat.NewSymDense(cov.SymmetricDim(), nil)
		c.CopySym(cov)
		covs[k] = c
	}
	return covs
}

// Converged reports whether EM reached the tolerance within max_iter.
func (gm *GaussianMixture) Converged() bool {
	return gm.converged_
}

// NIterations は実行されたEMイテレーション数を返す
func (gm *GaussianMixture) NIterations() int {
	return gm.nIter_
}

// IsFitted returns whether the model has been fitted.
func (gm *GaussianMixture) IsFitted() bool {
	return gm.state.IsFitted()
}
