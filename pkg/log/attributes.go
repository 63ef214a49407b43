package log

// Standard attribute keys for experiment logging. Keys follow a hierarchical
// naming convention ("model.name", "data.samples") so that structured log
// output can be filtered per concern.
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "LinearRegression", "KMeans", "GaussianMixture"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// DatasetKey names the dataset an experiment runs on.
	// Examples: "diabetes", "breast_cancer", "penguins"
	DatasetKey = "ml.dataset"

	// PhaseKey indicates the phase of the experiment lifecycle.
	// Examples: "split", "training", "evaluation"
	PhaseKey = "ml.phase"
)

// Data shape attributes.
const (
	// SamplesKey indicates the number of samples (rows) processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) processed.
	FeaturesKey = "data.features"

	// TrainSizeKey and TestSizeKey record the partition sizes of a split.
	TrainSizeKey = "data.train_size"
	TestSizeKey  = "data.test_size"
)

// Metric and performance attributes.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy, in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// InertiaKey records the within-cluster sum of squared distances.
	InertiaKey = "metrics.inertia"

	// SilhouetteKey records the silhouette score, in [-1, 1].
	SilhouetteKey = "metrics.silhouette"
)

// Reproducibility attributes.
const (
	// RandomSeedKey records the random seed of a run.
	RandomSeedKey = "config.random_seed"

	// TestFractionKey records the held-out fraction of a train/test split.
	TestFractionKey = "config.test_fraction"
)

// Standard attribute value constants for common operations.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseSplit      = "split"
	PhaseTraining   = "training"
	PhaseEvaluation = "evaluation"
)
