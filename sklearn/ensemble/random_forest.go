// Package ensemble provides ensemble classifiers built from decision trees.
package ensemble

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
	"github.com/YuminosukeSato/mlcookbook/sklearn/tree"
)

// RandomForestClassifier is a bagging ensemble of decision trees. Each tree
// is trained on a bootstrap sample of the data and considers a random
// subset of features at every split.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means sqrt(nFeatures)
	randomState     int64

	// Learned parameters
	trees    []*tree.DecisionTreeClassifier
	classes_ []int
}

// RandomForestOption is a functional option for RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

// WithNEstimators sets the number of trees in the forest.
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithRFCriterion sets the split criterion of every tree.
func WithRFCriterion(criterion string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.criterion = criterion
	}
}

// WithRFMaxDepth limits the depth of every tree. Zero means unlimited.
func WithRFMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithRFMinSamplesSplit sets the minimum samples required to split a node.
func WithRFMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesSplit = n
	}
}

// WithRFMinSamplesLeaf sets the minimum samples required at a leaf.
func WithRFMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithRFMaxFeatures sets the number of features considered per split.
// Zero selects sqrt(nFeatures), the scikit-learn default for classification.
func WithRFMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = n
	}
}

// WithRFRandomState sets the random seed. Bootstrap samples and per-tree
// feature subsampling are derived from it, so the same seed reproduces the
// same forest. -1 uses a time-based seed.
func WithRFRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// NewRandomForestClassifier creates a new RandomForestClassifier.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit trains the forest. Each tree receives a bootstrap sample of the rows
// and a seed derived from the forest's random state.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows != yRows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if rf.nEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.nEstimators)
	}

	rf.extractClasses(y)

	maxFeatures := rf.maxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(cols)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	baseSeed := rf.randomState
	if baseSeed < 0 {
		baseSeed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(baseSeed))

	rf.trees = make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	for t := 0; t < rf.nEstimators; t++ {
		XBoot, yBoot := bootstrapSample(X, y, rng)

		dt := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(rf.criterion),
			tree.WithMaxDepth(rf.maxDepth),
			tree.WithMinSamplesSplit(rf.minSamplesSplit),
			tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
			tree.WithMaxFeatures(maxFeatures),
			tree.WithDTRandomState(baseSeed+int64(t)+1),
		)
		if err := dt.Fit(XBoot, yBoot); err != nil {
			return errors.Wrapf(err, "fitting tree %d", t)
		}
		rf.trees[t] = dt
	}

	rf.state.SetFitted()
	rf.state.SetDimensions(cols, rows)
	return nil
}

// bootstrapSample draws rows uniformly with replacement.
func bootstrapSample(X, y mat.Matrix, rng *rand.Rand) (*mat.Dense, *mat.Dense) {
	rows, cols := X.Dims()
	XBoot := mat.NewDense(rows, cols, nil)
	yBoot := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		src := rng.Intn(rows)
		for j := 0; j < cols; j++ {
			XBoot.Set(i, j, X.At(src, j))
		}
		yBoot.Set(i, 0, y.At(src, 0))
	}
	return XBoot, yBoot
}

// PredictProba returns class probabilities averaged over the trees'
// probability estimates (soft voting).
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := rf.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", nFeatures, cols, 1)
	}

	nClasses := len(rf.classes_)
	avg := mat.NewDense(rows, nClasses, nil)

	for _, dt := range rf.trees {
		proba, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		// Trees trained on bootstrap samples may have seen fewer classes,
		// so remap their columns onto the forest's class order.
		treeClasses := dt.Classes()
		for i := 0; i < rows; i++ {
			for p, label := range treeClasses {
				avg.Set(i, rf.classIndex(label), avg.At(i, rf.classIndex(label))+proba.At(i, p))
			}
		}
	}

	n := float64(len(rf.trees))
	for i := 0; i < rows; i++ {
		for p := 0; p < nClasses; p++ {
			avg.Set(i, p, avg.At(i, p)/n)
		}
	}
	return avg, nil
}

// Predict returns the class with the highest averaged probability per row.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	nClasses := len(rf.classes_)
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best, bestProb := 0, proba.At(i, 0)
		for p := 1; p < nClasses; p++ {
			if proba.At(i, p) > bestProb {
				best, bestProb = p, proba.At(i, p)
			}
		}
		predictions.Set(i, 0, float64(rf.classes_[best]))
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := rf.Predict(X)
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
func (rf *RandomForestClassifier) Classes() []int {
	classes := make([]int, len(rf.classes_))
	copy(classes, rf.classes_)
	return classes
}

// FeatureImportances returns the per-feature importances averaged over all
// trees in the forest, normalized to sum to 1.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	nFeatures, _ := rf.state.GetDimensions()
	importances := make([]float64, nFeatures)
	if len(rf.trees) == 0 {
		return importances
	}
	for _, dt := range rf.trees {
		for j, imp := range dt.GetFeatureImportances() {
			importances[j] += imp
		}
	}
	total := 0.0
	for _, imp := range importances {
		total += imp
	}
	if total > 0 {
		for j := range importances {
			importances[j] /= total
		}
	}
	return importances
}

// IsFitted returns whether the model has been fitted.
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

func (rf *RandomForestClassifier) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}
	rf.classes_ = make([]int, 0, len(classMap))
	for class := range classMap {
		rf.classes_ = append(rf.classes_, class)
	}
	sort.Ints(rf.classes_)
}

func (rf *RandomForestClassifier) classIndex(label int) int {
	for i, c := range rf.classes_ {
		if c == label {
			return i
		}
	}
	return 0
}
