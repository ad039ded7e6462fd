// Package solver binds the external Levenberg-Marquardt least-squares
// routine to the core's constrained fitting contract. Box constraints use
// the MINPACK parameter transform: the optimizer walks an unconstrained
// internal space and every internal value maps back into the declared
// bounds, so the solver itself never sees a constraint.
package solver

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/ports"
)

// Settings tunes the underlying Levenberg-Marquardt iteration
type Settings struct {
	MaxIterations int
	Tau           float64
	Eps1          float64
	Eps2          float64
	ObjectiveTol  float64
}

// DefaultSettings returns the solver defaults used across the system
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 200,
		Tau:           1e-6,
		Eps1:          1e-8,
		Eps2:          1e-8,
		ObjectiveTol:  1e-16,
	}
}

// LevMar implements ports.Solver over github.com/maorshutman/lm
type LevMar struct {
	settings Settings
}

// NewLevMar creates a solver with default settings
func NewLevMar() *LevMar {
	return &LevMar{settings: DefaultSettings()}
}

// NewLevMarWithSettings creates a solver with explicit settings
func NewLevMarWithSettings(s Settings) *LevMar {
	return &LevMar{settings: s}
}

// Solve runs one constrained least-squares fit. Non-convergence is not an
// error: the caller receives whatever residual the iteration reached and
// ranks it against sibling fits. Only structural problems (malformed input,
// fewer points than free parameters) fail.
func (s *LevMar) Solve(ctx context.Context, p ports.SolveProblem) (*ports.SolveResult, error) {
	if err := validateProblem(p); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	free := make([]int, 0, len(p.Specs))
	for i, spec := range p.Specs {
		if spec.Vary {
			free = append(free, i)
		}
	}
	nData := len(p.Time)
	nVarys := len(free)
	if nData < nVarys {
		return nil, fmt.Errorf("%w: %d points for %d free parameters", core.ErrInsufficientData, nData, nVarys)
	}

	transforms := make([]boundTransform, nVarys)
	internal0 := make([]float64, nVarys)
	for j, idx := range free {
		transforms[j] = newBoundTransform(p.Specs[idx])
		internal0[j] = transforms[j].toInternal(p.Specs[idx].Guess)
	}

	// external reconstructs the full named parameter assignment from an
	// internal optimizer vector
	external := func(x []float64) map[string]float64 {
		values := make(map[string]float64, len(p.Specs))
		for _, spec := range p.Specs {
			values[spec.Name] = spec.Guess
		}
		for j, idx := range free {
			values[p.Specs[idx].Name] = transforms[j].toExternal(x[j])
		}
		return values
	}

	residual := func(dst, x []float64) {
		values := external(x)
		for i, t := range p.Time {
			r := p.Data[i] - p.Eval(t, values)
			if p.Weights != nil {
				r *= p.Weights[i]
			}
			dst[i] = r
		}
	}

	problem := lm.LMProblem{
		Dim:        nVarys,
		Size:       nData,
		Func:       residual,
		InitParams: internal0,
		Tau:        s.settings.Tau,
		Eps1:       s.settings.Eps1,
		Eps2:       s.settings.Eps2,
	}
	if p.Jac != nil {
		problem.Jac = analyticJacobian(p, free, transforms, external)
	} else {
		numJac := lm.NumJac{Func: residual}
		problem.Jac = numJac.Jac
	}

	results, err := lm.LM(problem, &lm.Settings{
		Iterations:   s.settings.MaxIterations,
		ObjectiveTol: s.settings.ObjectiveTol,
	})
	if err != nil {
		return nil, fmt.Errorf("levenberg-marquardt iteration failed: %w", err)
	}

	values := external(results.X)
	chisqr := 0.0
	res := make([]float64, nData)
	residual(res, results.X)
	for _, r := range res {
		chisqr += r * r
	}

	freeNames := make([]string, nVarys)
	freeValues := make([]float64, nVarys)
	for j, idx := range free {
		freeNames[j] = p.Specs[idx].Name
		freeValues[j] = values[freeNames[j]]
	}

	result := &ports.SolveResult{
		Values:    values,
		FreeNames: freeNames,
		Chisqr:    chisqr,
		NData:     nData,
		NVarys:    nVarys,
	}
	result.Covar = covariance(p, free, freeValues, chisqr)
	return result, nil
}

// covariance estimates the free-parameter covariance matrix from the
// weighted residual Jacobian at the solution, scaled by the reduced
// chi-square. Returns nil when the normal matrix is singular.
func covariance(p ports.SolveProblem, free []int, freeValues []float64, chisqr float64) *mat.SymDense {
	nData := len(p.Time)
	nVarys := len(free)

	residualExt := func(dst, x []float64) {
		values := make(map[string]float64, len(p.Specs))
		for _, spec := range p.Specs {
			values[spec.Name] = spec.Guess
		}
		for j, idx := range free {
			values[p.Specs[idx].Name] = x[j]
		}
		for i, t := range p.Time {
			r := p.Data[i] - p.Eval(t, values)
			if p.Weights != nil {
				r *= p.Weights[i]
			}
			dst[i] = r
		}
	}

	jac := mat.NewDense(nData, nVarys, nil)
	fd.Jacobian(jac, residualExt, freeValues, nil)

	var normal mat.Dense
	normal.Mul(jac.T(), jac)

	var inv mat.Dense
	if err := inv.Inverse(&normal); err != nil {
		log.Printf("[Solver] singular normal matrix, covariance unavailable: %v", err)
		return nil
	}

	redchi := chisqr
	if nData > nVarys {
		redchi = chisqr / float64(nData-nVarys)
	}
	cov := mat.NewSymDense(nVarys, nil)
	for i := 0; i < nVarys; i++ {
		for j := i; j < nVarys; j++ {
			cov.SetSym(i, j, redchi*(inv.At(i, j)+inv.At(j, i))/2)
		}
	}
	return cov
}

// analyticJacobian chains the caller's model partials through the bounds
// transform so the solver sees derivatives in internal space.
func analyticJacobian(p ports.SolveProblem, free []int, transforms []boundTransform, external func([]float64) map[string]float64) func(dst *mat.Dense, x []float64) {
	return func(dst *mat.Dense, x []float64) {
		values := external(x)
		for i, t := range p.Time {
			partials := p.Jac(t, values)
			w := 1.0
			if p.Weights != nil {
				w = p.Weights[i]
			}
			for j, idx := range free {
				name := p.Specs[idx].Name
				// residual = w·(data − f), so d res/d internal is the
				// negated model partial times the transform slope
				dst.Set(i, j, -w*partials[name]*transforms[j].slope(x[j]))
			}
		}
	}
}

func validateProblem(p ports.SolveProblem) error {
	if len(p.Time) == 0 || len(p.Data) == 0 {
		return core.NewInvalidInputError("solve problem has no data points")
	}
	if len(p.Time) != len(p.Data) {
		return core.NewInvalidInputError(fmt.Sprintf("time and data lengths differ: %d vs %d", len(p.Time), len(p.Data)))
	}
	if p.Weights != nil && len(p.Weights) != len(p.Time) {
		return core.NewInvalidInputError(fmt.Sprintf("weights length %d does not match %d data points", len(p.Weights), len(p.Time)))
	}
	if p.Eval == nil {
		return core.NewInvalidInputError("solve problem has no model function")
	}
	if len(p.Specs) == 0 {
		return core.NewInvalidInputError("solve problem has no parameter specs")
	}
	any := false
	for _, spec := range p.Specs {
		if spec.Vary {
			any = true
		}
		if spec.Min > spec.Max {
			return core.NewInvalidInputError(fmt.Sprintf("parameter %s has inverted bounds", spec.Name))
		}
	}
	if !any {
		return core.NewInvalidInputError("solve problem has no free parameters")
	}
	return nil
}

// boundTransform maps between the solver's unconstrained internal space and
// a parameter's bounded external space (MINPACK convention, as used by the
// original least-squares frontends).
type boundTransform struct {
	min, max       float64
	hasMin, hasMax bool
}

func newBoundTransform(spec growth.ParamSpec) boundTransform {
	return boundTransform{
		min:    spec.Min,
		max:    spec.Max,
		hasMin: !math.IsInf(spec.Min, -1),
		hasMax: !math.IsInf(spec.Max, 1),
	}
}

func (b boundTransform) toInternal(x float64) float64 {
	switch {
	case b.hasMin && b.hasMax:
		arg := 2*(x-b.min)/(b.max-b.min) - 1
		if arg < -1 {
			arg = -1
		} else if arg > 1 {
			arg = 1
		}
		return math.Asin(arg)
	case b.hasMin:
		d := x - b.min + 1
		if d < 1 {
			d = 1
		}
		return math.Sqrt(d*d - 1)
	case b.hasMax:
		d := b.max - x + 1
		if d < 1 {
			d = 1
		}
		return math.Sqrt(d*d - 1)
	}
	return x
}

func (b boundTransform) toExternal(i float64) float64 {
	switch {
	case b.hasMin && b.hasMax:
		return b.min + (math.Sin(i)+1)/2*(b.max-b.min)
	case b.hasMin:
		return b.min - 1 + math.Sqrt(i*i+1)
	case b.hasMax:
		return b.max + 1 - math.Sqrt(i*i+1)
	}
	return i
}

// slope is d external / d internal, used by the analytic Jacobian chain rule
func (b boundTransform) slope(i float64) float64 {
	switch {
	case b.hasMin && b.hasMax:
		return (b.max - b.min) / 2 * math.Cos(i)
	case b.hasMin:
		return i / math.Sqrt(i*i+1)
	case b.hasMax:
		return -i / math.Sqrt(i*i+1)
	}
	return 1
}
