package fitting

import (
	"fmt"
	"math"

	"gogrowth/domain/plate"
)

// SeriesWeights derives fitting weights from the replicate standard
// deviations: w_t = 1/std_t. Any timepoint without a finite std disables
// weighting entirely (matching the original single-replicate behavior);
// non-finite or zero weights inside an otherwise usable set are substituted
// with the maximum finite weight so they cannot poison the objective.
// The returned warnings are surfaced on the fit, never raised.
func SeriesWeights(s *plate.AggregatedSeries) (weights []float64, warnings []string) {
	if !s.HasReplicateStd() {
		return nil, []string{"missing replicate standard deviation, fitting unweighted"}
	}

	weights = make([]float64, s.Len())
	maxFinite := 0.0
	substituted := 0
	for i, sd := range s.Std {
		w := 1 / sd
		weights[i] = w
		if w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w) && w > maxFinite {
			maxFinite = w
		}
	}
	if maxFinite == 0 {
		return nil, []string{"no finite weights derivable from replicate std, fitting unweighted"}
	}
	for i, w := range weights {
		if w <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			weights[i] = maxFinite
			substituted++
		}
	}
	if substituted > 0 {
		warnings = append(warnings, fmt.Sprintf("substituted %d non-finite weights with max finite weight", substituted))
	}
	return weights, warnings
}
