package cluster

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// NoiseLabel is the label DBSCAN assigns to points that belong to no
// cluster, matching scikit-learn's convention.
const NoiseLabel = -1

// DBSCAN は密度ベースのクラスタリング。半径 eps 以内に minSamples 個以上の
// 点を持つコア点からクラスタを拡張し、どのクラスタにも届かない点は
// ノイズ(-1)とする。scikit-learnのDBSCANと互換性を持つ。
type DBSCAN struct {
	state *model.StateManager

	// ハイパーパラメータ
	eps        float64 // 近傍とみなす最大距離
	minSamples int     // コア点に必要な近傍点数(自身を含む)

	// 学習パラメータ
	labels_       []int // 各サンプルのクラスタラベル(-1はノイズ)
	coreSamples_  []int // コア点のインデックス
	nClustersFnd_ int   // 発見されたクラスタ数
}

// DBSCANOption is a functional option for DBSCAN.
type DBSCANOption func(*DBSCAN)

// WithDBSCANEps sets the neighborhood radius.
func WithDBSCANEps(eps float64) DBSCANOption {
	return func(db *DBSCAN) {
		db.eps = eps
	}
}

// WithDBSCANMinSamples sets the number of neighbors (including the point
// itself) required for a point to be a core point.
func WithDBSCANMinSamples(n int) DBSCANOption {
	return func(db *DBSCAN) {
		db.minSamples = n
	}
}

// NewDBSCAN creates a new DBSCAN clusterer.
func NewDBSCAN(opts ...DBSCANOption) *DBSCAN {
	db := &DBSCAN{
		state:      model.NewStateManager(),
		eps:        0.5,
		minSamples: 5,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Fit runs the clustering over all samples. Labels are deterministic: the
// scan visits samples in row order, so cluster IDs follow first discovery.
func (db *DBSCAN) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 {
		return errors.NewModelError("DBSCAN.Fit", "empty data", errors.ErrEmptyData)
	}
	if db.eps <= 0 {
		return errors.NewValidationError("eps", "must be positive", db.eps)
	}
	if db.minSamples < 1 {
		return errors.NewValidationError("min_samples", "must be at least 1", db.minSamples)
	}

	samples := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		samples[i] = mat.Row(nil, i, X)
	}

	const unvisited = -2
	labels := make([]int, rows)
	for i := range labels {
		labels[i] = unvisited
	}

	var coreSamples []int
	cluster := 0

	for i := 0; i < rows; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := db.regionQuery(samples, i)
		if len(neighbors) < db.minSamples {
			labels[i] = NoiseLabel
			continue
		}

		// 新しいクラスタをコア点 i から拡張
		labels[i] = cluster
		coreSamples = append(coreSamples, i)

		queue := append([]int(nil), neighbors...)
		for qi := 0; qi < len(queue); qi++ {
			p := queue[qi]
			if labels[p] == NoiseLabel {
				// 境界点: コア点の近傍ノイズはクラスタに取り込む
				labels[p] = cluster
			}
			if labels[p] != unvisited {
				continue
			}
			labels[p] = cluster

			pNeighbors := db.regionQuery(samples, p)
			if len(pNeighbors) >= db.minSamples {
				coreSamples = append(coreSamples, p)
				queue = append(queue, pNeighbors...)
			}
		}
		cluster++
	}

	db.labels_ = labels
	db.coreSamples_ = coreSamples
	db.nClustersFnd_ = cluster

	db.state.SetFitted()
	db.state.SetDimensions(cols, rows)
	return nil
}

// regionQuery returns the indices of all samples within eps of sample i,
// including i itself.
func (db *DBSCAN) regionQuery(samples [][]float64, i int) []int {
	var neighbors []int
	for j := range samples {
		if euclideanDistance(samples[i], samples[j]) <= db.eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// FitPredict は学習を行い、学習データのラベルを返す
func (db *DBSCAN) FitPredict(X, y mat.Matrix) (mat.Matrix, error) {
	if err := db.Fit(X, y); err != nil {
		return nil, err
	}

	predictions := mat.NewDense(len(db.labels_), 1, nil)
	for i, label := range db.labels_ {
		predictions.Set(i, 0, float64(label))
	}
	return predictions, nil
}

// Labels は学習データのクラスタラベルを返す(-1はノイズ)
func (db *DBSCAN) Labels() []int {
	if db.labels_ == nil {
		return nil
	}
	labels := make([]int, len(db.labels_))
	copy(labels, db.labels_)
	return labels
}

// CoreSampleIndices はコア点のインデックスを返す
func (db *DBSCAN) CoreSampleIndices() []int {
	indices := make([]int, len(db.coreSamples_))
	copy(indices, db.coreSamples_)
	return indices
}

// NClusters は発見されたクラスタ数を返す(ノイズは含まない)
func (db *DBSCAN) NClusters() int {
	return db.nClustersFnd_
}

// IsFitted returns whether the model has been fitted.
func (db *DBSCAN) IsFitted() bool {
	return db.state.IsFitted()
}
