package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/parallel"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// Inertia はクラスタ内平方和誤差（各サンプルから割り当てられたクラスタ中心
// までの距離の二乗和）を計算する
func Inertia(X mat.Matrix, labels []int, centers [][]float64) (float64, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return 0, errors.NewValueError("Inertia", "empty matrix")
	}
	if len(labels) != rows {
		return 0, errors.NewDimensionError("Inertia", rows, len(labels), 0)
	}

	inertia := 0.0
	for i := 0; i < rows; i++ {
		c := labels[i]
		if c < 0 || c >= len(centers) {
			return 0, errors.Newf("Inertia: label %d out of range for %d centers", c, len(centers))
		}
		if len(centers[c]) != cols {
			return 0, errors.NewDimensionError("Inertia", cols, len(centers[c]), 1)
		}
		for j := 0; j < cols; j++ {
			diff := X.At(i, j) - centers[c][j]
			inertia += diff * diff
		}
	}
	return inertia, nil
}

// SilhouetteScore computes the mean silhouette coefficient over all samples.
// For each sample, a is the mean distance to the other members of its own
// cluster and b is the smallest mean distance to any other cluster; the
// coefficient is (b-a)/max(a,b), bounded in [-1, 1]. Samples in singleton
// clusters score 0. Noise points labeled -1 are excluded, matching the
// DBSCAN convention.
func SilhouetteScore(X mat.Matrix, labels []int) (float64, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return 0, errors.NewValueError("SilhouetteScore", "empty matrix")
	}
	if len(labels) != rows {
		return 0, errors.NewDimensionError("SilhouetteScore", rows, len(labels), 0)
	}

	clusterSizes := map[int]int{}
	for _, l := range labels {
		if l >= 0 {
			clusterSizes[l]++
		}
	}
	if len(clusterSizes) < 2 {
		return 0, errors.NewValueError("SilhouetteScore", "needs at least 2 clusters")
	}

	coeffs := make([]float64, rows)
	valid := make([]bool, rows)

	// Each sample only writes its own slot, so the parallel split over rows
	// stays deterministic.
	parallel.Parallelize(rows, func(start, end int) {
		sumDist := map[int]float64{}
		for i := start; i < end; i++ {
			li := labels[i]
			if li < 0 || clusterSizes[li] == 0 {
				continue
			}
			if clusterSizes[li] == 1 {
				coeffs[i] = 0
				valid[i] = true
				continue
			}

			for k := range sumDist {
				delete(sumDist, k)
			}
			for j := 0; j < rows; j++ {
				lj := labels[j]
				if j == i || lj < 0 {
					continue
				}
				d := 0.0
				for c := 0; c < cols; c++ {
					diff := X.At(i, c) - X.At(j, c)
					d += diff * diff
				}
				sumDist[lj] += math.Sqrt(d)
			}

			a := sumDist[li] / float64(clusterSizes[li]-1)
			b := math.Inf(1)
			for l, s := range sumDist {
				if l == li {
					continue
				}
				if m := s / float64(clusterSizes[l]); m < b {
					b = m
				}
			}

			denom := math.Max(a, b)
			if denom > 0 {
				coeffs[i] = (b - a) / denom
			}
			valid[i] = true
		}
	})

	sum, count := 0.0, 0
	for i := range coeffs {
		if valid[i] {
			sum += coeffs[i]
			count++
		}
	}
	if count == 0 {
		return 0, errors.NewValueError("SilhouetteScore", "no clustered samples")
	}
	return sum / float64(count), nil
}
