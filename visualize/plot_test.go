package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/metrics"
)

// assertPNG checks that the renderer produced a non-empty PNG file.
func assertPNG(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	header := make([]byte, 8)
	_, err = f.Read(header)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, header)
}

func TestScatterClusters(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0.1, 0.1,
		0.2, 0,
		5, 5,
		5.1, 5.1,
		5.2, 5,
	})
	labels := []int{0, 0, 0, 1, 1, 1}
	centers := [][]float64{{0.1, 0.03}, {5.1, 5.03}}

	path := filepath.Join(t.TempDir(), "clusters.png")
	err := ScatterClusters(X, labels, centers, 0, 1, "x", "y", "two blobs", path)
	require.NoError(t, err)
	assertPNG(t, path)
}

func TestScatterClustersWithNoise(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0.1, 0.1,
		0.2, 0,
		50, 50,
	})
	labels := []int{0, 0, 0, -1}

	path := filepath.Join(t.TempDir(), "noise.png")
	err := ScatterClusters(X, labels, nil, 0, 1, "x", "y", "noise point", path)
	require.NoError(t, err)
	assertPNG(t, path)
}

func TestScatterClustersValidation(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	err := ScatterClusters(X, []int{0}, nil, 0, 1, "x", "y", "", "out.png")
	assert.Error(t, err, "label count mismatch should fail")

	err = ScatterClusters(X, []int{0, 1}, nil, 0, 5, "x", "y", "", "out.png")
	assert.Error(t, err, "out-of-range feature index should fail")
}

func TestScatterOutliers(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		0, 0,
		0.1, 0.1,
		0.2, 0,
		0.1, 0.2,
		40, 40,
	})
	flags := []bool{false, false, false, false, true}

	path := filepath.Join(t.TempDir(), "outliers.png")
	err := ScatterOutliers(X, flags, 0, 1, "x", "y", "one outlier", path)
	require.NoError(t, err)
	assertPNG(t, path)
}

func TestPlotPRCurve(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	scores := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
	pr, err := metrics.PrecisionRecallCurve(yTrue, scores, 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pr.png")
	require.NoError(t, PlotPRCurve(pr, "logistic regression", path))
	assertPNG(t, path)

	assert.Error(t, PlotPRCurve(nil, "empty", path))
}

func TestPlotPredictedVsTrue(t *testing.T) {
	yTrue := mat.NewVecDense(5, []float64{1, 2, 3, 4, 5})
	yPred := mat.NewVecDense(5, []float64{1.1, 1.9, 3.2, 3.8, 5.1})

	path := filepath.Join(t.TempDir(), "pvt.png")
	require.NoError(t, PlotPredictedVsTrue(yTrue, yPred, "regression fit", path))
	assertPNG(t, path)

	short := mat.NewVecDense(3, []float64{1, 2, 3})
	assert.Error(t, PlotPredictedVsTrue(yTrue, short, "mismatch", path))
}

func TestPlotKSweep(t *testing.T) {
	ks := []int{2, 3, 4, 5}
	inertias := []float64{120.5, 60.2, 48.9, 44.1}

	path := filepath.Join(t.TempDir(), "elbow.png")
	require.NoError(t, PlotKSweep(ks, inertias, "inertia", "elbow method", path))
	assertPNG(t, path)

	assert.Error(t, PlotKSweep(ks, inertias[:2], "inertia", "mismatch", path))
}
