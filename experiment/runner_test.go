package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mlcookbook/datasets"
	"github.com/YuminosukeSato/mlcookbook/pkg/log"
	"github.com/YuminosukeSato/mlcookbook/sklearn/cluster"
	"github.com/YuminosukeSato/mlcookbook/sklearn/linear_model"
	"github.com/YuminosukeSato/mlcookbook/sklearn/naive_bayes"
)

func TestRunRegression(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	runner := NewRunner(
		WithSeed(42),
		WithTestFraction(0.2),
		WithLogger(logger),
	)

	ds := datasets.LoadDiabetes()
	result, err := runner.RunRegression("LinearRegression", linear_model.NewLinearRegression(), ds)
	require.NoError(t, err)

	// 442 samples, 20% held out: ceil(442*0.2) = 89 test rows.
	assert.Equal(t, "diabetes", result.Dataset)
	assert.Equal(t, 353, result.TrainSamples)
	assert.Equal(t, 89, result.TestSamples)

	// The diabetes target is a noisy linear function of the features, so a
	// linear model explains a stable chunk of the variance.
	assert.Greater(t, result.R2, 0.25)
	assert.Greater(t, result.RMSE, 0.0)
	assert.GreaterOrEqual(t, result.RMSE, result.MAE)

	assert.True(t, logger.Contains("dataset split"))
	assert.True(t, logger.Contains("model fitted"))
	assert.True(t, logger.Contains("regression evaluated"))
	assert.True(t, logger.Contains("config.random_seed=42"))
}

func TestRunRegressionReproducible(t *testing.T) {
	ds := datasets.LoadDiabetes()

	run := func() float64 {
		logger, _ := log.NewTestLogger(log.LevelError)
		runner := NewRunner(WithSeed(7), WithLogger(logger))
		result, err := runner.RunRegression("LinearRegression", linear_model.NewLinearRegression(), ds)
		require.NoError(t, err)
		return result.R2
	}

	assert.Equal(t, run(), run())
}

func TestRunClassification(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	runner := NewRunner(
		WithSeed(42),
		WithLogger(logger),
	)

	ds := datasets.LoadBreastCancer()
	result, err := runner.RunClassification("GaussianNB", naive_bayes.NewGaussianNB(), ds, datasets.ClassMalignant)
	require.NoError(t, err)

	assert.Equal(t, "breast_cancer", result.Dataset)
	assert.Equal(t, datasets.ClassMalignant, result.PosLabel)
	assert.Greater(t, result.Accuracy, 0.7)
	assert.GreaterOrEqual(t, result.Precision, 0.0)
	assert.LessOrEqual(t, result.Precision, 1.0)
	assert.GreaterOrEqual(t, result.Recall, 0.0)
	assert.LessOrEqual(t, result.Recall, 1.0)
	require.NotNil(t, result.PR)
	assert.Greater(t, result.AUC, 0.5)

	assert.True(t, logger.Contains("classification evaluated"))
	assert.True(t, logger.Contains("metrics.pr_auc"))
}

func TestRunClustering(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	runner := NewRunner(WithSeed(0), WithLogger(logger))

	ds := datasets.LoadPenguins()
	km := cluster.NewKMeans(
		cluster.WithKMeansNClusters(3),
		cluster.WithKMeansRandomState(0),
	)
	result, err := runner.RunClustering("KMeans", km, ds)
	require.NoError(t, err)

	assert.Equal(t, "penguins", result.Dataset)
	assert.Equal(t, datasets.PenguinsSamples, result.Samples)
	assert.Len(t, result.Labels, datasets.PenguinsSamples)
	assert.Equal(t, 3, result.NClusters)
	assert.True(t, result.HasInertia)
	assert.Greater(t, result.Inertia, 0.0)
	assert.GreaterOrEqual(t, result.Silhouette, -1.0)
	assert.LessOrEqual(t, result.Silhouette, 1.0)

	assert.True(t, logger.Contains("clustering evaluated"))
	assert.True(t, logger.Contains("metrics.inertia"))
}

func TestRunClusteringDBSCANNoInertia(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelError)
	runner := NewRunner(WithLogger(logger))

	ds := datasets.LoadPenguins()
	db := cluster.NewDBSCAN(
		cluster.WithDBSCANEps(100),
		cluster.WithDBSCANMinSamples(5),
	)
	result, err := runner.RunClustering("DBSCAN", db, ds)
	require.NoError(t, err)

	assert.False(t, result.HasInertia)
	// Noise labels must never count as a cluster.
	for _, label := range result.Labels {
		assert.GreaterOrEqual(t, label, -1)
	}
}

func TestRunOutlierDetection(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	runner := NewRunner(WithSeed(42), WithLogger(logger))

	ds := datasets.LoadPenguins()
	gm := cluster.NewGaussianMixture(
		cluster.WithGMNComponents(3),
		cluster.WithGMRandomState(42),
	)
	result, err := runner.RunOutlierDetection("GaussianMixture", gm, ds, 0.05)
	require.NoError(t, err)

	// ceil(333 * 0.05) = 17 flagged samples.
	assert.Equal(t, 17, result.NOutliers)
	assert.Len(t, result.Scores, datasets.PenguinsSamples)
	assert.Len(t, result.Flags, datasets.PenguinsSamples)

	// Every unflagged sample must score at least as high as the threshold.
	for i, flagged := range result.Flags {
		if !flagged {
			assert.GreaterOrEqual(t, result.Scores[i], result.Threshold)
		}
	}

	assert.True(t, logger.Contains("outliers flagged"))
	assert.True(t, logger.Contains("ml.n_outliers=17"))
}
