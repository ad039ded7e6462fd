package fitting

import (
	"gonum.org/v1/gonum/mat"

	"gogrowth/domain/growth"
	"gogrowth/domain/plate"
)

// ModelFit is the immutable result of fitting one model variant to an
// aggregated series. Routines that explore alternate parameter values
// (bootstrap, leave-one-out refits) work on copies; a fit is never mutated
// after the engine returns it.
type ModelFit struct {
	Variant growth.Variant
	Params  growth.Params

	// Specs are the parameter specs the fit was run with (initial guesses,
	// bounds, vary flags). The sampler reads bounds from here.
	Specs []growth.ParamSpec

	// FreeNames lists varied parameters in covariance row order.
	FreeNames []string

	// Covar is the free-parameter covariance matrix; nil when the solver
	// could not estimate one.
	Covar *mat.SymDense

	Chisqr float64
	NData  int
	NVarys int
	BIC    float64
	AIC    float64

	// Series is the read-only fitting target this fit was produced from.
	Series *plate.AggregatedSeries

	// Warnings records non-fatal numeric issues encountered during the fit.
	Warnings []string
}

// Eval evaluates the fitted curve at time t
func (f *ModelFit) Eval(t float64) float64 {
	return f.Params.Eval(t)
}

// FreeValues returns the best-fit values of the free parameters in
// FreeNames order
func (f *ModelFit) FreeValues() []float64 {
	vals := make([]float64, len(f.FreeNames))
	for i, name := range f.FreeNames {
		v, _ := f.Params.Get(name)
		vals[i] = v
	}
	return vals
}

// SpecByName looks up a parameter spec
func (f *ModelFit) SpecByName(name string) (growth.ParamSpec, bool) {
	for _, s := range f.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return growth.ParamSpec{}, false
}

// Clone deep-copies the fit so exploratory refits can substitute parameters
// without touching the original
func (f *ModelFit) Clone() *ModelFit {
	c := *f
	c.Specs = append([]growth.ParamSpec(nil), f.Specs...)
	c.FreeNames = append([]string(nil), f.FreeNames...)
	c.Warnings = append([]string(nil), f.Warnings...)
	if f.Covar != nil {
		n := f.Covar.SymmetricDim()
		cov := mat.NewSymDense(n, nil)
		cov.CopySym(f.Covar)
		c.Covar = cov
	}
	return &c
}
