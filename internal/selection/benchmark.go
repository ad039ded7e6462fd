package selection

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"gogrowth/domain/core"
	"gogrowth/internal/fitting"
)

// DefaultBICMargin is the evidence margin a growth model must beat the
// linear baseline by. 6 corresponds to "strong evidence" on the usual BIC
// scale.
const DefaultBICMargin = 6

// Benchmark fits a straight line to the same series as a floor baseline and
// checks that the growth model beats it by a meaningful BIC margin:
// fit.BIC + margin < linear BIC. A growth model that cannot clear a straight
// line is not describing growth.
func Benchmark(fit *fitting.ModelFit, margin float64) (bool, error) {
	if fit == nil || fit.Series == nil || fit.Series.Len() == 0 {
		return false, core.ErrEmptySeries
	}
	series := fit.Series

	// same weighting as the growth fits, squared for the regression form
	weights, _ := fitting.SeriesWeights(series)
	var sq []float64
	if weights != nil {
		sq = make([]float64, len(weights))
		for i, w := range weights {
			sq[i] = w * w
		}
	}

	alpha, beta := stat.LinearRegression(series.Time, series.Mean, sq, false)

	chisqr := 0.0
	for i, t := range series.Time {
		r := series.Mean[i] - (alpha + beta*t)
		if weights != nil {
			r *= weights[i]
		}
		chisqr += r * r
	}
	if chisqr <= 0 || math.IsNaN(chisqr) {
		return false, core.NewDegenerateFitError("linear baseline produced chisqr %g", chisqr)
	}

	n := float64(series.Len())
	const k = 2 // intercept and slope
	linearBIC := n*math.Log(chisqr/n) + k*math.Log(n)
	return fit.BIC+margin < linearBIC, nil
}
