package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if int(yTrue.AtVec(i)) == int(yPred.AtVec(i)) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Precision は陽性クラスの適合率 TP/(TP+FP) を計算する。
// 陽性と予測されたサンプルが一つもない場合はUndefinedMetricWarningを発行して0を返す。
func Precision(yTrue, yPred *mat.VecDense, posLabel int) (float64, error) {
	tp, fp, _, err := binaryCounts(yTrue, yPred, posLabel, "Precision")
	if err != nil {
		return 0, err
	}
	if tp+fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted positives", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fp), nil
}

// Recall は陽性クラスの再現率 TP/(TP+FN) を計算する。
// 正解に陽性クラスが一つもない場合はUndefinedMetricWarningを発行して0を返す。
func Recall(yTrue, yPred *mat.VecDense, posLabel int) (float64, error) {
	tp, _, fn, err := binaryCounts(yTrue, yPred, posLabel, "Recall")
	if err != nil {
		return 0, err
	}
	if tp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true positives in yTrue", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fn), nil
}

// F1Score は適合率と再現率の調和平均を計算する。
// 適合率と再現率のどちらかが0の場合、F1は0になる。
func F1Score(yTrue, yPred *mat.VecDense, posLabel int) (float64, error) {
	precision, err := Precision(yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}
	recall, err := Recall(yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}
	if precision+recall == 0 {
		return 0, nil
	}
	return 2 * precision * recall / (precision + recall), nil
}

// ConfusionMatrix は混同行列を計算する。
// 戻り値のlabelsは昇順のクラスラベル、countsは counts[i][j] = ラベルlabels[i]の
// サンプルがlabels[j]と予測された数。
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (labels []int, counts [][]int, err error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}

	seen := map[int]bool{}
	for i := 0; i < n; i++ {
		seen[int(yTrue.AtVec(i))] = true
		seen[int(yPred.AtVec(i))] = true
	}
	labels = make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts = make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := 0; i < n; i++ {
		counts[index[int(yTrue.AtVec(i))]][index[int(yPred.AtVec(i))]]++
	}
	return labels, counts, nil
}

// PRCurve is a precision-recall curve. Points are ordered by decreasing
// threshold, so recall is non-decreasing along the slices.
type PRCurve struct {
	Precision  []float64
	Recall     []float64
	Thresholds []float64
}

// PrecisionRecallCurve computes precision-recall pairs at every distinct
// score threshold, from the most to the least confident prediction.
func PrecisionRecallCurve(yTrue, scores *mat.VecDense, posLabel int) (*PRCurve, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("PrecisionRecallCurve", "empty vector")
	}
	if scores.Len() != n {
		return nil, errors.NewDimensionError("PrecisionRecallCurve", n, scores.Len(), 0)
	}

	totalPos := 0
	for i := 0; i < n; i++ {
		if int(yTrue.AtVec(i)) == posLabel {
			totalPos++
		}
	}
	if totalPos == 0 {
		return nil, errors.NewValueError("PrecisionRecallCurve", "yTrue contains no positive samples")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores.AtVec(order[a]) > scores.AtVec(order[b])
	})

	curve := &PRCurve{}
	tp, fp := 0, 0
	for k := 0; k < n; k++ {
		i := order[k]
		if int(yTrue.AtVec(i)) == posLabel {
			tp++
		} else {
			fp++
		}
		// 同スコアのサンプルは同じ閾値点にまとめる
		if k+1 < n && scores.AtVec(order[k+1]) == scores.AtVec(i) {
			continue
		}
		curve.Precision = append(curve.Precision, float64(tp)/float64(tp+fp))
		curve.Recall = append(curve.Recall, float64(tp)/float64(totalPos))
		curve.Thresholds = append(curve.Thresholds, scores.AtVec(i))
	}
	return curve, nil
}

// AUC returns the area under the precision-recall curve, computed as the
// step-wise sum Σ (R_k − R_{k−1}) · P_k (average precision).
func (c *PRCurve) AUC() float64 {
	area := 0.0
	prevRecall := 0.0
	for k := range c.Recall {
		area += (c.Recall[k] - prevRecall) * c.Precision[k]
		prevRecall = c.Recall[k]
	}
	return area
}

// binaryCounts は二値分類の TP/FP/FN を数える
func binaryCounts(yTrue, yPred *mat.VecDense, posLabel int, op string) (tp, fp, fn int, err error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, 0, 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, 0, 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	for i := 0; i < n; i++ {
		truePos := int(yTrue.AtVec(i)) == posLabel
		predPos := int(yPred.AtVec(i)) == posLabel
		switch {
		case truePos && predPos:
			tp++
		case !truePos && predPos:
			fp++
		case truePos && !predPos:
			fn++
		}
	}
	return tp, fp, fn, nil
}
