// Package cluster implements clustering estimators compatible with
// scikit-learn's cluster module.
package cluster

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// KMeans はLloyd法によるK-meansクラスタリング
// scikit-learnのKMeansと互換性を持つ
type KMeans struct {
	state *model.StateManager

	// ハイパーパラメータ
	nClusters   int     // クラスタ数
	init        string  // 初期化方法: "k-means++", "random"
	maxIter     int     // 最大イテレーション数
	tol         float64 // 収束判定の許容誤差(中心移動量)
	nInit       int     // 異なる初期化での実行回数
	randomState int64   // 乱数シード

	// 学習パラメータ
	clusterCenters_ [][]float64 // クラスタ中心（nClusters x nFeatures）
	labels_         []int       // 各サンプルのクラスタラベル
	inertia_        float64     // クラスタ内平方和誤差
	nIter_          int         // 実行されたイテレーション数

	rng *rand.Rand
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*KMeans)

// WithKMeansNClusters はクラスタ数を設定
func WithKMeansNClusters(n int) KMeansOption {
	return func(km *KMeans) {
		km.nClusters = n
	}
}

// WithKMeansInit は初期化方法を設定
func WithKMeansInit(init string) KMeansOption {
	return func(km *KMeans) {
		km.init = init
	}
}

// WithKMeansMaxIter は最大イテレーション数を設定
func WithKMeansMaxIter(maxIter int) KMeansOption {
	return func(km *KMeans) {
		km.maxIter = maxIter
	}
}

// WithKMeansTol は収束判定の許容誤差を設定
func WithKMeansTol(tol float64) KMeansOption {
	return func(km *KMeans) {
		km.tol = tol
	}
}

// WithKMeansNInit は初期化の試行回数を設定
func WithKMeansNInit(n int) KMeansOption {
	return func(km *KMeans) {
		km.nInit = n
	}
}

// WithKMeansRandomState は乱数シードを設定
func WithKMeansRandomState(seed int64) KMeansOption {
	return func(km *KMeans) {
		km.randomState = seed
	}
}

// NewKMeans は新しいKMeansを作成
func NewKMeans(options ...KMeansOption) *KMeans {
	km := &KMeans{
		state:       model.NewStateManager(),
		nClusters:   8,
		init:        "k-means++",
		maxIter:     300,
		tol:         1e-4,
		nInit:       10,
		randomState: -1,
	}
	for _, opt := range options {
		opt(km)
	}

	if km.randomState >= 0 {
		km.rng = rand.New(rand.NewSource(km.randomState))
	} else {
		km.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return km
}

// Fit はLloyd法でクラスタ中心を学習する。nInit回の初期化を試し、
// 慣性が最小の結果を採用する。
func (km *KMeans) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()

	if rows == 0 {
		return errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if km.nClusters <= 0 {
		return errors.NewValidationError("n_clusters", "must be positive", km.nClusters)
	}
	if rows < km.nClusters {
		return errors.Newf("mlcookbook: サンプル数がクラスタ数より少ないです: %d < %d", rows, km.nClusters)
	}

	bestInertia := math.Inf(1)
	var bestCenters [][]float64
	var bestLabels []int
	var bestNIter int

	for run := 0; run < km.nInit; run++ {
		centers, labels, inertia, nIter := km.fitSingleRun(X)
		if inertia < bestInertia {
			bestInertia = inertia
			bestCenters = centers
			bestLabels = labels
			bestNIter = nIter
		}
	}

	km.clusterCenters_ = bestCenters
	km.labels_ = bestLabels
	km.inertia_ = bestInertia
	km.nIter_ = bestNIter

	km.state.SetFitted()
	km.state.SetDimensions(cols, rows)
	return nil
}

// fitSingleRun は単一の初期化からLloyd法を収束まで実行する
func (km *KMeans) fitSingleRun(X mat.Matrix) ([][]float64, []int, float64, int) {
	rows, cols := X.Dims()

	centers := km.initializeCenters(X)
	labels := make([]int, rows)
	var finalIter int

	for iter := 0; iter < km.maxIter; iter++ {
		finalIter = iter

		// 割り当てステップ
		for i := 0; i < rows; i++ {
			sample := mat.Row(nil, i, X)
			labels[i] = findNearestCluster(sample, centers)
		}

		// 更新ステップ
		newCenters := make([][]float64, km.nClusters)
		counts := make([]int, km.nClusters)
		for c := range newCenters {
			newCenters[c] = make([]float64, cols)
		}
		for i := 0; i < rows; i++ {
			c := labels[i]
			counts[c]++
			for j := 0; j < cols; j++ {
				newCenters[c][j] += X.At(i, j)
			}
		}
		for c := 0; c < km.nClusters; c++ {
			if counts[c] == 0 {
				// 空クラスタは最遠サンプルで再初期化
				newCenters[c] = km.farthestSample(X, centers)
				continue
			}
			for j := 0; j < cols; j++ {
				newCenters[c][j] /= float64(counts[c])
			}
		}

		// 収束判定: 中心の移動量
		shift := 0.0
		for c := 0; c < km.nClusters; c++ {
			d := euclideanDistance(centers[c], newCenters[c])
			shift += d * d
		}
		centers = newCenters

		if shift <= km.tol {
			break
		}
	}

	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		labels[i] = findNearestCluster(sample, centers)
	}
	return centers, labels, computeInertia(X, centers), finalIter
}

// farthestSample は既存中心から最も遠いサンプルを返す
func (km *KMeans) farthestSample(X mat.Matrix, centers [][]float64) []float64 {
	rows, _ := X.Dims()
	bestDist, bestIdx := -1.0, 0
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		c := findNearestCluster(sample, centers)
		if d := euclideanDistance(sample, centers[c]); d > bestDist {
			bestDist, bestIdx = d, i
		}
	}
	return mat.Row(nil, bestIdx, X)
}

// Predict は入力データに対するクラスタ予測を行う
func (km *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := km.state.RequireFitted("KMeans", "Predict"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := km.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("KMeans.Predict", nFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		predictions.Set(i, 0, float64(findNearestCluster(sample, km.clusterCenters_)))
	}
	return predictions, nil
}

// FitPredict は学習と予測を同時に行う
func (km *KMeans) FitPredict(X, y mat.Matrix) (mat.Matrix, error) {
	if err := km.Fit(X, y); err != nil {
		return nil, err
	}

	rows := len(km.labels_)
	predictions := mat.NewDense(rows, 1, nil)
	for i, label := range km.labels_ {
		predictions.Set(i, 0, float64(label))
	}
	return predictions, nil
}

// Transform はデータをクラスタ中心との距離に変換
func (km *KMeans) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := km.state.RequireFitted("KMeans", "Transform"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := km.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("KMeans.Transform", nFeatures, cols, 1)
	}

	distances := mat.NewDense(rows, km.nClusters, nil)
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		for c := 0; c < km.nClusters; c++ {
			distances.Set(i, c, euclideanDistance(sample, km.clusterCenters_[c]))
		}
	}
	return distances, nil
}

// ClusterCenters は学習されたクラスタ中心を返す
func (km *KMeans) ClusterCenters() [][]float64 {
	centers := make([][]float64, len(km.clusterCenters_))
	for i := range km.clusterCenters_ {
		centers[i] = make([]float64, len(km.clusterCenters_[i]))
		copy(centers[i], km.clusterCenters_[i])
	}
	return centers
}

// Labels は学習データのクラスタラベルを返す
func (km *KMeans) Labels() []int {
	if km.labels_ == nil {
		return nil
	}
	labels := make([]int, len(km.labels_))
	copy(labels, km.labels_)
	return labels
}

// Inertia は慣性（クラスタ内平方和誤差）を返す
func (km *KMeans) Inertia() float64 {
	return km.inertia_
}

// NIterations は実行された学習イテレーション数を返す
func (km *KMeans) NIterations() int {
	return km.nIter_
}

// IsFitted returns whether the model has been fitted.
func (km *KMeans) IsFitted() bool {
	return km.state.IsFitted()
}

// initializeCenters はクラスタ中心を初期化
func (km *KMeans) initializeCenters(X mat.Matrix) [][]float64 {
	rows, cols := X.Dims()

	switch km.init {
	case "random":
		centers := make([][]float64, km.nClusters)
		for i := 0; i < km.nClusters; i++ {
			centers[i] = make([]float64, cols)
			idx := km.rng.Intn(rows)
			copy(centers[i], mat.Row(nil, idx, X))
		}
		return centers
	default:
		// デフォルトはk-means++
		return km.initKMeansPlusPlus(X)
	}
}

// initKMeansPlusPlus はk-means++初期化を実行
func (km *KMeans) initKMeansPlusPlus(X mat.Matrix) [][]float64 {
	rows, cols := X.Dims()
	centers := make([][]float64, km.nClusters)

	// 最初のクラスタ中心をランダムに選択
	centers[0] = make([]float64, cols)
	copy(centers[0], mat.Row(nil, km.rng.Intn(rows), X))

	// 残りのクラスタ中心を距離の二乗に比例した確率で選択
	for c := 1; c < km.nClusters; c++ {
		distances := make([]float64, rows)
		totalDistance := 0.0

		for i := 0; i < rows; i++ {
			sample := mat.Row(nil, i, X)
			minDist := math.Inf(1)
			for j := 0; j < c; j++ {
				if dist := euclideanDistance(sample, centers[j]); dist < minDist {
					minDist = dist
				}
			}
			distances[i] = minDist * minDist
			totalDistance += distances[i]
		}

		target := km.rng.Float64() * totalDistance
		cumSum := 0.0
		selectedIdx := 0
		for i := 0; i < rows; i++ {
			cumSum += distances[i]
			if cumSum >= target {
				selectedIdx = i
				break
			}
		}

		centers[c] = make([]float64, cols)
		copy(centers[c], mat.Row(nil, selectedIdx, X))
	}

	return centers
}

// findNearestCluster は最近傍クラスタを検索
func findNearestCluster(sample []float64, centers [][]float64) int {
	minDist := math.Inf(1)
	nearestCluster := 0
	for c, center := range centers {
		if dist := euclideanDistance(sample, center); dist < minDist {
			minDist = dist
			nearestCluster = c
		}
	}
	return nearestCluster
}

// computeInertia は慣性（クラスタ内平方和誤差）を計算
func computeInertia(X mat.Matrix, centers [][]float64) float64 {
	rows, _ := X.Dims()
	inertia := 0.0
	for i := 0; i < rows; i++ {
		sample := mat.Row(nil, i, X)
		dist := euclideanDistance(sample, centers[findNearestCluster(sample, centers)])
		inertia += dist * dist
	}
	return inertia
}

// euclideanDistance はユークリッド距離を計算
func euclideanDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
