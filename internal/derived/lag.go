// Package derived computes biological summary statistics from a fitted
// growth model: lag duration, maximum growth rates, and replicate-well
// influence measures. Nothing here mutates a fit in place.
package derived

import (
	"log"
	"math"
	"math/rand/v2"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/diff/fd"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/internal/fitting"
	"gogrowth/internal/sampling"
)

// gridPoints is the resolution of the time grids used for numerical
// derivative searches
const gridPoints = 256

// FindLag estimates the lag duration with the standard geometric
// construction: restrict the fitted curve to its post-inflection domain
// (y > K/e), find the steepest point there, and intersect the tangent line
// at that point with the initial population size y0.
//
// Convention: a fit whose variant carries no lag parameters (or whose lag
// parameters sit at the no-lag boundary) has a lag of 0 by definition.
func FindLag(fit *fitting.ModelFit) (float64, error) {
	if fit == nil || fit.Series == nil || fit.Series.Len() == 0 {
		return 0, core.ErrEmptySeries
	}
	if noLag(fit.Params) {
		return 0, nil
	}
	return lagFromParams(fit.Params, fit.Series.MaxTime())
}

func noLag(p growth.Params) bool {
	return math.IsInf(p.Q0, 1) || math.IsInf(p.V, 1)
}

// lagFromParams runs the tangent construction for an arbitrary parameter
// set over the time horizon [0, maxTime]
func lagFromParams(p growth.Params, maxTime float64) (float64, error) {
	threshold := p.K / math.E

	var bestSlope, bestT, bestY float64
	found := false
	for i := 0; i < gridPoints; i++ {
		t := maxTime * float64(i) / float64(gridPoints-1)
		y := p.Eval(t)
		if y <= threshold {
			continue
		}
		slope := fd.Derivative(p.Eval, t, nil)
		if !found || slope > bestSlope {
			found = true
			bestSlope, bestT, bestY = slope, t, y
		}
	}
	if !found {
		return 0, core.NewDegenerateFitError("fitted curve never exceeds K/e over [0, %g], no post-inflection domain", maxTime)
	}
	if bestSlope <= 0 {
		return 0, core.NewDegenerateFitError("non-positive maximum slope %g in tangent construction", bestSlope)
	}

	// tangent y = bestY + bestSlope·(t − bestT) meets y0 at the lag time
	intercept := bestY - bestSlope*bestT
	return (p.Y0 - intercept) / bestSlope, nil
}

// FindLagCI estimates a two-sided bootstrap confidence interval of width ci
// for the lag duration: nsamples parameter vectors are drawn from the fit
// covariance (bounds-rejected), the lag recomputed for each, and the
// interval read off the percentiles of the surviving values.
func FindLagCI(fit *fitting.ModelFit, nsamples int, ci float64, src rand.Source) (low, high float64, err error) {
	if ci <= 0 || ci >= 1 {
		return 0, 0, core.NewInvalidInputError("confidence level must be in (0, 1)")
	}
	if fit == nil || fit.Series == nil {
		return 0, 0, core.ErrEmptySeries
	}

	params, err := sampling.SampleParams(fit, nsamples, src)
	if err != nil {
		return 0, 0, err
	}

	maxTime := fit.Series.MaxTime()
	lags := make([]float64, 0, len(params))
	discarded := 0
	for _, p := range params {
		lam, err := lagFromParams(p, maxTime)
		if err != nil || math.IsNaN(lam) || math.IsInf(lam, 0) || lam < 0 {
			discarded++
			continue
		}
		lags = append(lags, lam)
	}
	if discarded > 0 {
		log.Printf("[Derived] discarded %d of %d bootstrap lag values (non-finite or negative)", discarded, len(params))
	}
	if len(lags) == 0 {
		return 0, 0, core.NewDegenerateFitError("no finite bootstrap lag values survived")
	}

	low, err = stats.Percentile(lags, (1-ci)/2*100)
	if err != nil {
		return 0, 0, err
	}
	high, err = stats.Percentile(lags, (1+ci)/2*100)
	if err != nil {
		return 0, 0, err
	}
	return low, high, nil
}
