package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// FlagOutliers flags the lowest-scoring fraction of samples as outliers.
// Scores are typically per-point log-likelihoods from a density model.
// Exactly ceil(fraction * N) samples are flagged regardless of the score
// distribution; ties are broken by sample index so the result is
// deterministic.
func FlagOutliers(scores []float64, fraction float64) ([]bool, error) {
	n := len(scores)
	if n == 0 {
		return nil, errors.NewValueError("FlagOutliers", "empty scores")
	}
	if fraction <= 0 || fraction >= 1 {
		return nil, errors.NewValidationError("fraction", "must be in (0, 1)", fraction)
	}

	k := int(math.Ceil(fraction * float64(n)))

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	flags := make([]bool, n)
	for _, i := range order[:k] {
		flags[i] = true
	}
	return flags, nil
}
