// Package experiment orchestrates reproducible train/evaluate runs over the
// bundled datasets. A Runner owns the random seed, the held-out fraction and
// a structured logger, so that every post reports results the same way.
package experiment

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/datasets"
	"github.com/YuminosukeSato/mlcookbook/metrics"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
	"github.com/YuminosukeSato/mlcookbook/pkg/log"
	"github.com/YuminosukeSato/mlcookbook/sklearn/model_selection"
)

// Runner executes experiments with a fixed seed and split fraction.
type Runner struct {
	seed         int64
	testFraction float64
	logger       log.Logger
}

// RunnerOption is a functional option for Runner.
type RunnerOption func(*Runner)

// WithSeed sets the random seed used for the train/test split and passed
// context to every log record.
func WithSeed(seed int64) RunnerOption {
	return func(r *Runner) {
		r.seed = seed
	}
}

// WithTestFraction sets the held-out fraction, in (0, 1).
func WithTestFraction(fraction float64) RunnerOption {
	return func(r *Runner) {
		r.testFraction = fraction
	}
}

// WithLogger sets the structured logger for run records.
func WithLogger(logger log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner. Defaults: seed 42, 20% held out, logging to
// the process-wide structured logger.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		seed:         42,
		testFraction: 0.2,
		logger:       log.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Seed returns the runner's random seed.
func (r *Runner) Seed() int64 {
	return r.seed
}

// RegressionResult holds the evaluation of one regression run.
type RegressionResult struct {
	ModelName    string
	Dataset      string
	TrainSamples int
	TestSamples  int
	R2           float64
	MSE          float64
	RMSE         float64
	MAE          float64
	FitDuration  time.Duration
}

// RunRegression splits the dataset, fits the regressor on the training
// partition and reports held-out metrics.
func (r *Runner) RunRegression(name string, reg model.Regressor, ds *datasets.Dataset) (*RegressionResult, error) {
	logger := r.logger.With(
		log.ModelNameKey, name,
		log.DatasetKey, ds.Name,
		log.RandomSeedKey, r.seed,
	)

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(ds.X, ds.YMatrix(), r.testFraction, r.seed)
	if err != nil {
		return nil, errors.Wrap(err, "splitting dataset")
	}
	trainRows, _ := XTrain.Dims()
	testRows, _ := XTest.Dims()
	logger.Info("dataset split",
		log.PhaseKey, log.PhaseSplit,
		log.TestFractionKey, r.testFraction,
		log.TrainSizeKey, trainRows,
		log.TestSizeKey, testRows,
	)

	start := time.Now()
	if err := reg.Fit(XTrain, yTrain); err != nil {
		return nil, errors.Wrapf(err, "fitting %s", name)
	}
	fitDuration := time.Since(start)
	logger.Info("model fitted",
		log.PhaseKey, log.PhaseTraining,
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, fitDuration.Milliseconds(),
	)

	yPred, err := reg.Predict(XTest)
	if err != nil {
		return nil, errors.Wrapf(err, "predicting with %s", name)
	}

	yTrue, err := metrics.ColToVec(yTest)
	if err != nil {
		return nil, err
	}
	yHat, err := metrics.ColToVec(yPred)
	if err != nil {
		return nil, err
	}

	result := &RegressionResult{
		ModelName:    name,
		Dataset:      ds.Name,
		TrainSamples: trainRows,
		TestSamples:  testRows,
		FitDuration:  fitDuration,
	}
	if result.R2, err = metrics.R2Score(yTrue, yHat); err != nil {
		return nil, err
	}
	if result.MSE, err = metrics.MSE(yTrue, yHat); err != nil {
		return nil, err
	}
	if result.RMSE, err = metrics.RMSE(yTrue, yHat); err != nil {
		return nil, err
	}
	if result.MAE, err = metrics.MAE(yTrue, yHat); err != nil {
		return nil, err
	}

	logger.Info("regression evaluated",
		log.PhaseKey, log.PhaseEvaluation,
		log.OperationKey, log.OperationScore,
		log.R2ScoreKey, result.R2,
		"metrics.rmse", result.RMSE,
		"metrics.mae", result.MAE,
	)
	return result, nil
}

// ClassificationResult holds the evaluation of one classification run.
// Precision, Recall, F1 and the PR curve treat PosLabel as positive.
type ClassificationResult struct {
	ModelName    string
	Dataset      string
	PosLabel     int
	TrainSamples int
	TestSamples  int
	Accuracy     float64
	Precision    float64
	Recall       float64
	F1           float64
	PR           *metrics.PRCurve
	AUC          float64
	FitDuration  time.Duration
}

// RunClassification splits the dataset, fits the classifier and reports
// held-out metrics including the precision-recall curve for posLabel.
func (r *Runner) RunClassification(name string, clf model.Classifier, ds *datasets.Dataset, posLabel int) (*ClassificationResult, error) {
	logger := r.logger.With(
		log.ModelNameKey, name,
		log.DatasetKey, ds.Name,
		log.RandomSeedKey, r.seed,
	)

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(ds.X, ds.YMatrix(), r.testFraction, r.seed)
	if err != nil {
		return nil, errors.Wrap(err, "splitting dataset")
	}
	trainRows, _ := XTrain.Dims()
	testRows, _ := XTest.Dims()
	logger.Info("dataset split",
		log.PhaseKey, log.PhaseSplit,
		log.TestFractionKey, r.testFraction,
		log.TrainSizeKey, trainRows,
		log.TestSizeKey, testRows,
	)

	start := time.Now()
	if err := clf.Fit(XTrain, yTrain); err != nil {
		return nil, errors.Wrapf(err, "fitting %s", name)
	}
	fitDuration := time.Since(start)
	logger.Info("model fitted",
		log.PhaseKey, log.PhaseTraining,
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, fitDuration.Milliseconds(),
	)

	yPred, err := clf.Predict(XTest)
	if err != nil {
		return nil, errors.Wrapf(err, "predicting with %s", name)
	}
	yTrue, err := metrics.ColToVec(yTest)
	if err != nil {
		return nil, err
	}
	yHat, err := metrics.ColToVec(yPred)
	if err != nil {
		return nil, err
	}

	result := &ClassificationResult{
		ModelName:    name,
		Dataset:      ds.Name,
		PosLabel:     posLabel,
		TrainSamples: trainRows,
		TestSamples:  testRows,
		FitDuration:  fitDuration,
	}
	if result.Accuracy, err = metrics.Accuracy(yTrue, yHat); err != nil {
		return nil, err
	}
	if result.Precision, err = metrics.Precision(yTrue, yHat, posLabel); err != nil {
		return nil, err
	}
	if result.Recall, err = metrics.Recall(yTrue, yHat, posLabel); err != nil {
		return nil, err
	}
	if result.F1, err = metrics.F1Score(yTrue, yHat, posLabel); err != nil {
		return nil, err
	}

	scores, err := positiveScores(clf, XTest, posLabel)
	if err != nil {
		return nil, err
	}
	if result.PR, err = metrics.PrecisionRecallCurve(yTrue, scores, posLabel); err != nil {
		return nil, err
	}
	result.AUC = result.PR.AUC()

	logger.Info("classification evaluated",
		log.PhaseKey, log.PhaseEvaluation,
		log.OperationKey, log.OperationScore,
		log.AccuracyKey, result.Accuracy,
		"metrics.precision", result.Precision,
		"metrics.recall", result.Recall,
		"metrics.f1", result.F1,
		"metrics.pr_auc", result.AUC,
	)
	return result, nil
}

// positiveScores extracts the predicted probability of posLabel per sample.
func positiveScores(clf model.Classifier, X mat.Matrix, posLabel int) (*mat.VecDense, error) {
	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	col := -1
	for i, class := range clf.Classes() {
		if class == posLabel {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.NewValueError("positiveScores", "positive label not among fitted classes")
	}

	rows, _ := proba.Dims()
	scores := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		scores.SetVec(i, proba.At(i, col))
	}
	return scores, nil
}

// ClusteringResult holds the evaluation of one clustering run over the full
// dataset (clustering runs do not hold out a partition).
type ClusteringResult struct {
	ModelName   string
	Dataset     string
	Samples     int
	Labels      []int
	NClusters   int
	Inertia     float64
	HasInertia  bool
	Silhouette  float64
	FitDuration time.Duration
}

// inertiaReporter is implemented by centroid-based clusterers.
type inertiaReporter interface {
	Inertia() float64
}

// RunClustering fits the clusterer on the whole dataset and reports
// silhouette (and inertia when the model exposes it). Noise labels (-1) are
// excluded from the cluster count.
func (r *Runner) RunClustering(name string, clu model.Clusterer, ds *datasets.Dataset) (*ClusteringResult, error) {
	rows, cols := ds.Dims()
	logger := r.logger.With(
		log.ModelNameKey, name,
		log.DatasetKey, ds.Name,
		log.RandomSeedKey, r.seed,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)

	start := time.Now()
	assignment, err := clu.FitPredict(ds.X, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "clustering with %s", name)
	}
	fitDuration := time.Since(start)

	labels := make([]int, rows)
	clusters := make(map[int]bool)
	for i := 0; i < rows; i++ {
		labels[i] = int(assignment.At(i, 0))
		if labels[i] >= 0 {
			clusters[labels[i]] = true
		}
	}

	result := &ClusteringResult{
		ModelName:   name,
		Dataset:     ds.Name,
		Samples:     rows,
		Labels:      labels,
		NClusters:   len(clusters),
		FitDuration: fitDuration,
	}
	if ir, ok := clu.(inertiaReporter); ok {
		result.Inertia = ir.Inertia()
		result.HasInertia = true
	}
	if len(clusters) >= 2 {
		if result.Silhouette, err = metrics.SilhouetteScore(ds.X, labels); err != nil {
			return nil, err
		}
	}

	fields := []any{
		log.PhaseKey, log.PhaseEvaluation,
		log.DurationMsKey, fitDuration.Milliseconds(),
		"ml.n_clusters", result.NClusters,
		log.SilhouetteKey, result.Silhouette,
	}
	if result.HasInertia {
		fields = append(fields, log.InertiaKey, result.Inertia)
	}
	logger.Info("clustering evaluated", fields...)
	return result, nil
}

// OutlierResult holds a density-based outlier detection run.
type OutlierResult struct {
	ModelName string
	Dataset   string
	Samples   int
	Scores    []float64
	Flags     []bool
	NOutliers int
	Threshold float64 // highest score among flagged samples
}

// sampleScorer is implemented by density models that assign a per-sample
// log-likelihood.
type sampleScorer interface {
	Fit(X, y mat.Matrix) error
	ScoreSamples(X mat.Matrix) (*mat.VecDense, error)
}

// RunOutlierDetection fits the density model on the whole dataset and flags
// the fraction of samples with the lowest log-likelihood.
func (r *Runner) RunOutlierDetection(name string, scorer sampleScorer, ds *datasets.Dataset, fraction float64) (*OutlierResult, error) {
	rows, cols := ds.Dims()
	logger := r.logger.With(
		log.ModelNameKey, name,
		log.DatasetKey, ds.Name,
		log.RandomSeedKey, r.seed,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)

	if err := scorer.Fit(ds.X, nil); err != nil {
		return nil, errors.Wrapf(err, "fitting %s", name)
	}
	scoreVec, err := scorer.ScoreSamples(ds.X)
	if err != nil {
		return nil, errors.Wrapf(err, "scoring with %s", name)
	}

	scores := make([]float64, rows)
	for i := 0; i < rows; i++ {
		scores[i] = scoreVec.AtVec(i)
	}
	flags, err := metrics.FlagOutliers(scores, fraction)
	if err != nil {
		return nil, err
	}

	result := &OutlierResult{
		ModelName: name,
		Dataset:   ds.Name,
		Samples:   rows,
		Scores:    scores,
		Flags:     flags,
	}
	result.Threshold = -1
	for i, flagged := range flags {
		if flagged {
			result.NOutliers++
			if result.NOutliers == 1 || scores[i] > result.Threshold {
				result.Threshold = scores[i]
			}
		}
	}

	logger.Info("outliers flagged",
		log.PhaseKey, log.PhaseEvaluation,
		"config.outlier_fraction", fraction,
		"ml.n_outliers", result.NOutliers,
		"ml.score_threshold", result.Threshold,
	)
	return result, nil
}
