// Package fitting drives constrained nonlinear least-squares fitting of the
// five nested Baranyi-Roberts model variants against an aggregated
// growth-curve series.
package fitting

import (
	"context"
	"log"
	"math"
	"sort"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/domain/plate"
	"gogrowth/ports"
)

// FitOptions tunes one FitModel call. The zero value is the standard
// weighted fit with data-derived guesses.
type FitOptions struct {
	// Overrides replaces data-derived guesses or bounds per parameter.
	Overrides map[string]growth.Override

	// Frozen holds extra parameters constant at their guess value, on top
	// of each variant's own nesting constraints.
	Frozen map[string]bool

	// Unweighted skips replicate-std weighting even when available.
	Unweighted bool

	// AnalyticJac supplies the closed-form Jacobian where one is
	// implemented (currently the logistic variant); everything else
	// differentiates numerically.
	AnalyticJac bool
}

// Engine runs the nested-model fitting cascade through an external solver
type Engine struct {
	solver ports.Solver
}

// NewEngine creates a fitting engine
func NewEngine(solver ports.Solver) *Engine {
	return &Engine{solver: solver}
}

// FitModel fits the five nested variants in the fixed order
// BR6 → BR5 → BR4 → Richards → Logistic and returns the fits ranked
// ascending by BIC. This is the primary entry point of the core.
func (e *Engine) FitModel(ctx context.Context, series *plate.AggregatedSeries, opts FitOptions) ([]*ModelFit, error) {
	if series == nil || series.Len() == 0 {
		return nil, core.ErrEmptySeries
	}
	for i := range series.Time {
		if math.IsNaN(series.Time[i]) || math.IsNaN(series.Mean[i]) {
			return nil, core.NewInvalidInputError("series contains NaN values")
		}
	}

	guess, err := growth.GuessParams(series)
	if err != nil {
		return nil, err
	}

	var weights []float64
	var weightWarnings []string
	if !opts.Unweighted {
		weights, weightWarnings = SeriesWeights(series)
		for _, w := range weightWarnings {
			log.Printf("[Fitting] %s", w)
		}
	}

	fits := make([]*ModelFit, 0, 5)
	for _, variant := range growth.FitOrder() {
		fit, err := e.fitVariant(ctx, series, variant, guess, weights, opts)
		if err != nil {
			return nil, err
		}
		fit.Warnings = append(fit.Warnings, weightWarnings...)
		fits = append(fits, fit)
	}

	sort.SliceStable(fits, func(i, j int) bool { return fits[i].BIC < fits[j].BIC })
	return fits, nil
}

// FitVariant fits a single model variant. Used by leave-one-out refits that
// only need the already-selected variant.
func (e *Engine) FitVariant(ctx context.Context, series *plate.AggregatedSeries, variant growth.Variant, opts FitOptions) (*ModelFit, error) {
	if series == nil || series.Len() == 0 {
		return nil, core.ErrEmptySeries
	}
	guess, err := growth.GuessParams(series)
	if err != nil {
		return nil, err
	}
	var weights []float64
	if !opts.Unweighted {
		weights, _ = SeriesWeights(series)
	}
	return e.fitVariant(ctx, series, variant, guess, weights, opts)
}

func (e *Engine) fitVariant(ctx context.Context, series *plate.AggregatedSeries, variant growth.Variant, guess growth.Params, weights []float64, opts FitOptions) (*ModelFit, error) {
	specs, err := growth.SpecsFor(variant, guess, opts.Overrides, opts.Frozen)
	if err != nil {
		return nil, err
	}

	eval := func(t float64, values map[string]float64) float64 {
		p, _ := growth.ParamsFromValues(variant, values)
		return p.Eval(t)
	}

	problem := ports.SolveProblem{
		Specs:   specs,
		Eval:    eval,
		Time:    series.Time,
		Data:    series.Mean,
		Weights: weights,
	}
	if opts.AnalyticJac && variant == growth.VariantLogistic {
		problem.Jac = logisticJacobian
	}

	result, err := e.solver.Solve(ctx, problem)
	if err != nil {
		return nil, err
	}
	if err := checkFixedInvariant(specs, result.Values); err != nil {
		return nil, err
	}
	if result.Chisqr <= 0 || math.IsNaN(result.Chisqr) {
		return nil, core.NewDegenerateFitError("variant %s produced chisqr %g", variant, result.Chisqr)
	}

	params, err := growth.ParamsFromValues(variant, result.Values)
	if err != nil {
		return nil, err
	}

	n := float64(result.NData)
	k := float64(result.NVarys)
	logRed := n * math.Log(result.Chisqr/n)
	return &ModelFit{
		Variant:   variant,
		Params:    params,
		Specs:     specs,
		FreeNames: result.FreeNames,
		Covar:     result.Covar,
		Chisqr:    result.Chisqr,
		NData:     result.NData,
		NVarys:    result.NVarys,
		BIC:       logRed + k*math.Log(n),
		AIC:       logRed + 2*k,
		Series:    series,
	}, nil
}

// checkFixedInvariant asserts that the solver held every non-varying
// parameter at its nesting boundary value. A violation is a solver or
// constraint bug, not a data problem, and is fatal.
func checkFixedInvariant(specs []growth.ParamSpec, values map[string]float64) error {
	for _, spec := range specs {
		if spec.Vary {
			continue
		}
		if values[spec.Name] != spec.Guess {
			return core.NewDegenerateFitError("fixed parameter %s moved from %g to %g", spec.Name, spec.Guess, values[spec.Name])
		}
	}
	return nil
}

// logisticJacobian gives the closed-form partials of the logistic curve with
// respect to y0, K and r. The richer variants fall back to numeric
// differentiation.
func logisticJacobian(t float64, values map[string]float64) map[string]float64 {
	y0 := values[growth.ParamY0]
	K := values[growth.ParamK]
	r := values[growth.ParamR]

	e := math.Exp(-r * t)
	c := K/y0 - 1
	den := 1 + c*e
	den2 := den * den

	return map[string]float64{
		growth.ParamY0: K * e * (K / (y0 * y0)) / den2,
		growth.ParamK:  1/den - K*e/(y0*den2),
		growth.ParamR:  K * c * t * e / den2,
		growth.ParamNu: 0,
	}
}
