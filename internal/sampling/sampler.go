// Package sampling draws constrained parameter vectors from a fit's
// covariance matrix for parametric bootstrap procedures.
package sampling

import (
	"log"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distmv"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/internal/fitting"
)

// rejection budget per requested sample; samples landing outside the
// declared bounds are dropped, never clamped
const attemptsPerSample = 100

// SampleParams draws up to n parameter sets from a multivariate normal
// centered on the fit's best values with the fit covariance, keeping only
// draws inside every free parameter's declared bounds. Fewer than n
// surviving samples is surfaced as a warning, not an error; the caller
// decides whether the remainder is enough.
func SampleParams(fit *fitting.ModelFit, n int, src rand.Source) ([]growth.Params, error) {
	if fit == nil {
		return nil, core.NewInvalidInputError("no fit to sample from")
	}
	if fit.Covar == nil {
		return nil, core.NewDegenerateFitError("fit has no covariance matrix, cannot sample parameters")
	}
	if n <= 0 {
		return nil, core.NewInvalidInputError("sample count must be positive")
	}

	mean := fit.FreeValues()
	normal, ok := distmv.NewNormal(mean, fit.Covar, src)
	if !ok {
		return nil, core.NewDegenerateFitError("fit covariance matrix is not positive definite")
	}

	samples := make([]growth.Params, 0, n)
	draw := make([]float64, len(mean))
	for attempts := 0; len(samples) < n && attempts < n*attemptsPerSample; attempts++ {
		normal.Rand(draw)
		if !inBounds(fit, draw) {
			continue
		}
		p, err := paramsFromDraw(fit, draw)
		if err != nil {
			return nil, err
		}
		samples = append(samples, p)
	}

	if len(samples) < n {
		log.Printf("[Sampling] bounds rejection truncated bootstrap to %d of %d samples", len(samples), n)
	}
	if len(samples) == 0 {
		return nil, core.NewDegenerateFitError("all parameter samples fell outside bounds")
	}
	return samples, nil
}

func inBounds(fit *fitting.ModelFit, draw []float64) bool {
	for i, name := range fit.FreeNames {
		spec, ok := fit.SpecByName(name)
		if !ok {
			return false
		}
		if draw[i] < spec.Min || draw[i] > spec.Max {
			return false
		}
	}
	return true
}

// paramsFromDraw rebuilds a full parameter set from a sampled free vector,
// reapplying the variant's structural boundaries (nu=1, v=r, no-lag).
func paramsFromDraw(fit *fitting.ModelFit, draw []float64) (growth.Params, error) {
	values := make(map[string]float64, len(fit.Specs))
	for _, spec := range fit.Specs {
		v, err := fit.Params.Get(spec.Name)
		if err != nil {
			return growth.Params{}, err
		}
		values[spec.Name] = v
	}
	for i, name := range fit.FreeNames {
		values[name] = draw[i]
	}
	return growth.ParamsFromValues(fit.Variant, values)
}
