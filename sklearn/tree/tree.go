// Package tree provides a CART decision tree classifier compatible with
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/core/model"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// DecisionTreeClassifier is a CART classification tree supporting the gini
// and entropy split criteria.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	maxDepth        int    // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // features considered per split; 0 means all
	randomState     int64

	// Learned parameters
	root        *treeNode
	classes_    []int
	nClasses_   int
	importances []float64

	rng *rand.Rand
}

// treeNode is a single node of the fitted tree. Leaves carry class counts;
// internal nodes carry a split on one feature.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	counts    []float64 // per-class sample counts at this node
	isLeaf    bool
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier.
type DecisionTreeOption func(*DecisionTreeClassifier)

// WithCriterion sets the split criterion, "gini" (default) or "entropy".
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree. Zero means unlimited.
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split
// an internal node.
func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf.
func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures limits the number of features considered per split. Used
// by random forests to decorrelate trees. Zero means all features.
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithDTRandomState sets the random seed for feature subsampling.
func WithDTRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier.
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(dt)
	}

	if dt.randomState >= 0 {
		dt.rng = rand.New(rand.NewSource(dt.randomState))
	} else {
		dt.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return dt
}

// Fit grows the tree on the training data.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows != yRows {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}

	dt.extractClasses(y)

	labels := make([]int, rows)
	for i := 0; i < rows; i++ {
		labels[i] = dt.classIndex(int(y.At(i, 0)))
	}

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	dt.importances = make([]float64, cols)
	dt.root = dt.grow(X, labels, indices, 0)
	dt.normalizeImportances()

	dt.state.SetFitted()
	dt.state.SetDimensions(cols, rows)
	return nil
}

// grow recursively builds the subtree over the given sample indices.
func (dt *DecisionTreeClassifier) grow(X mat.Matrix, labels, indices []int, depth int) *treeNode {
	node := &treeNode{counts: dt.countClasses(labels, indices)}

	if dt.isPure(node.counts) ||
		len(indices) < dt.minSamplesSplit ||
		(dt.maxDepth > 0 && depth >= dt.maxDepth) {
		node.isLeaf = true
		return node
	}

	feature, threshold, gain := dt.bestSplit(X, labels, indices, node.counts)
	if gain <= 0 {
		node.isLeaf = true
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range indices {
		if X.At(i, feature) <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < dt.minSamplesLeaf || len(rightIdx) < dt.minSamplesLeaf {
		node.isLeaf = true
		return node
	}

	// Weighted impurity decrease drives the feature importances.
	dt.importances[feature] += float64(len(indices)) * gain

	node.feature = feature
	node.threshold = threshold
	node.left = dt.grow(X, labels, leftIdx, depth+1)
	node.right = dt.grow(X, labels, rightIdx, depth+1)
	return node
}

// bestSplit scans candidate features for the split with the highest
// impurity decrease. Thresholds sit midway between consecutive distinct
// feature values.
func (dt *DecisionTreeClassifier) bestSplit(X mat.Matrix, labels, indices []int, parentCounts []float64) (feature int, threshold, gain float64) {
	_, cols := X.Dims()
	n := float64(len(indices))
	parentImpurity := dt.impurity(parentCounts, n)

	features := dt.candidateFeatures(cols)

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	type valueLabel struct {
		value float64
		label int
	}
	sorted := make([]valueLabel, len(indices))

	for _, f := range features {
		for k, i := range indices {
			sorted[k] = valueLabel{X.At(i, f), labels[i]}
		}
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].value < sorted[b].value })

		leftCounts := make([]float64, dt.nClasses_)
		rightCounts := append([]float64(nil), parentCounts...)

		for k := 0; k < len(sorted)-1; k++ {
			leftCounts[sorted[k].label]++
			rightCounts[sorted[k].label]--

			if sorted[k].value == sorted[k+1].value {
				continue
			}

			nLeft, nRight := float64(k+1), n-float64(k+1)
			if int(nLeft) < dt.minSamplesLeaf || int(nRight) < dt.minSamplesLeaf {
				continue
			}

			weighted := (nLeft*dt.impurity(leftCounts, nLeft) + nRight*dt.impurity(rightCounts, nRight)) / n
			if g := parentImpurity - weighted; g > bestGain {
				bestGain = g
				bestFeature = f
				bestThreshold = (sorted[k].value + sorted[k+1].value) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// candidateFeatures returns the feature indices considered for a split.
func (dt *DecisionTreeClassifier) candidateFeatures(cols int) []int {
	features := make([]int, cols)
	for i := range features {
		features[i] = i
	}
	if dt.maxFeatures <= 0 || dt.maxFeatures >= cols {
		return features
	}
	for i := cols - 1; i > 0; i-- {
		j := dt.rng.Intn(i + 1)
		features[i], features[j] = features[j], features[i]
	}
	return features[:dt.maxFeatures]
}

func (dt *DecisionTreeClassifier) impurity(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	switch dt.criterion {
	case "entropy":
		e := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / total
				e -= p * math.Log2(p)
			}
		}
		return e
	default: // gini
		g := 1.0
		for _, c := range counts {
			p := c / total
			g -= p * p
		}
		return g
	}
}

func (dt *DecisionTreeClassifier) countClasses(labels, indices []int) []float64 {
	counts := make([]float64, dt.nClasses_)
	for _, i := range indices {
		counts[labels[i]]++
	}
	return counts
}

func (dt *DecisionTreeClassifier) isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func (dt *DecisionTreeClassifier) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}
	dt.classes_ = make([]int, 0, len(classMap))
	for class := range classMap {
		dt.classes_ = append(dt.classes_, class)
	}
	sort.Ints(dt.classes_)
	dt.nClasses_ = len(dt.classes_)
}

func (dt *DecisionTreeClassifier) classIndex(label int) int {
	for i, c := range dt.classes_ {
		if c == label {
			return i
		}
	}
	return 0
}

func (dt *DecisionTreeClassifier) normalizeImportances() {
	total := 0.0
	for _, imp := range dt.importances {
		total += imp
	}
	// A tree with no splits has zero total decrease; SafeDivide leaves the
	// importances at zero instead of producing NaN.
	for i := range dt.importances {
		dt.importances[i] = errors.SafeDivide(dt.importances[i], total)
	}
}

// PredictProba returns per-class probability estimates derived from the
// class frequencies at the leaf each sample lands in.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	nFeatures, _ := dt.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", nFeatures, cols, 1)
	}

	proba := mat.NewDense(rows, dt.nClasses_, nil)
	for i := 0; i < rows; i++ {
		node := dt.root
		for !node.isLeaf {
			if X.At(i, node.feature) <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		total := 0.0
		for _, c := range node.counts {
			total += c
		}
		for p, c := range node.counts {
			proba.Set(i, p, c/total)
		}
	}
	return proba, nil
}

// Predict returns the predicted class label for each row of X.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best, bestProb := 0, proba.At(i, 0)
		for p := 1; p < dt.nClasses_; p++ {
			if proba.At(i, p) > bestProb {
				best, bestProb = p, proba.At(i, p)
			}
		}
		predictions.Set(i, 0, float64(dt.classes_[best]))
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := dt.Predict(X)
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
func (dt *DecisionTreeClassifier) Classes() []int {
	classes := make([]int, len(dt.classes_))
	copy(classes, dt.classes_)
	return classes
}

// GetFeatureImportances returns the normalized impurity-decrease importance
// of each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, len(dt.importances))
	copy(out, dt.importances)
	return out
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	return nodeDepth(dt.root)
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return countLeaves(dt.root)
}

// GetParams returns the model's hyperparameters (scikit-learn compatible).
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
	}
}

// SetParams sets the model's hyperparameters (scikit-learn compatible).
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	if v, ok := params["criterion"].(string); ok {
		dt.criterion = v
	}
	if v, ok := params["max_depth"].(int); ok {
		dt.maxDepth = v
	}
	if v, ok := params["min_samples_split"].(int); ok {
		dt.minSamplesSplit = v
	}
	if v, ok := params["min_samples_leaf"].(int); ok {
		dt.minSamplesLeaf = v
	}
	if v, ok := params["max_features"].(int); ok {
		dt.maxFeatures = v
	}
	return nil
}

// IsFitted returns whether the model has been fitted.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

func nodeDepth(n *treeNode) int {
	if n == nil || n.isLeaf {
		return 0
	}
	left, right := nodeDepth(n.left), nodeDepth(n.right)
	if left > right {
		return left + 1
	}
	return right + 1
}

func countLeaves(n *treeNode) int {
	if n == nil {
		return 0
	}
	if n.isLeaf {
		return 1
	}
	return countLeaves(n.left) + countLeaves(n.right)
}
