package growth

import (
	"fmt"
	"math"

	"gogrowth/domain/core"
	"gogrowth/domain/plate"
)

// boundFloor keeps strictly-positive parameters away from exactly zero,
// where the growth functions degenerate.
const boundFloor = 1e-10

// ParamSpec describes one parameter handed to the solver: its initial guess,
// box bounds and whether the solver may vary it. A non-varying spec is held
// constant at its guess value, which is how the nesting constraints are
// realized.
type ParamSpec struct {
	Name  string
	Guess float64
	Min   float64
	Max   float64 // +Inf when unbounded above
	Vary  bool
}

// Override lets a caller replace the data-derived guess or bounds of a
// single parameter. Nil fields keep the defaults.
type Override struct {
	Guess *float64
	Min   *float64
	Max   *float64
}

// GuessParams derives initial parameter values from the aggregated series:
// K from the largest OD, y0 from the smallest, r from the steepest finite
// empirical slope scaled by 4/K, and fixed starting points for the shape and
// lag parameters.
func GuessParams(s *plate.AggregatedSeries) (Params, error) {
	if s == nil || s.Len() == 0 {
		return Params{}, core.ErrEmptySeries
	}
	kGuess := s.Mean[0]
	y0Guess := s.Mean[0]
	for _, od := range s.Mean {
		if od > kGuess {
			kGuess = od
		}
		if od < y0Guess {
			y0Guess = od
		}
	}
	if kGuess <= 0 {
		kGuess = boundFloor
	}
	if y0Guess <= 0 {
		y0Guess = boundFloor
	}

	maxSlope := math.Inf(-1)
	for _, g := range gradient(s.Time, s.Mean) {
		if !math.IsInf(g, 0) && !math.IsNaN(g) && g > maxSlope {
			maxSlope = g
		}
	}
	rGuess := 4 * maxSlope / kGuess
	if math.IsInf(rGuess, 0) || math.IsNaN(rGuess) || rGuess <= 0 {
		rGuess = 1
	}

	return Params{
		Y0: y0Guess,
		K:  kGuess,
		R:  rGuess,
		Nu: 1,
		Q0: 0.1,
		V:  1,
	}, nil
}

// gradient computes the empirical derivative dOD/dt with central differences
// on the interior and one-sided differences at the edges. Repeated
// timestamps yield ±Inf entries, which the caller excludes.
func gradient(t, y []float64) []float64 {
	n := len(t)
	g := make([]float64, n)
	if n == 1 {
		g[0] = 0
		return g
	}
	g[0] = (y[1] - y[0]) / (t[1] - t[0])
	g[n-1] = (y[n-1] - y[n-2]) / (t[n-1] - t[n-2])
	for i := 1; i < n-1; i++ {
		g[i] = (y[i+1] - y[i-1]) / (t[i+1] - t[i-1])
	}
	return g
}

// SpecsFor builds the solver parameter specs for a variant: the variant's
// free parameters plus its finite boundary constraints, with default bounds
// (y0, K, r, nu > ~0; q0 in (0,1]; v > 0), caller overrides applied, and an
// optional extra frozen set held at the guess value.
func SpecsFor(variant Variant, guess Params, overrides map[string]Override, frozen map[string]bool) ([]ParamSpec, error) {
	if !variant.Valid() {
		return nil, core.NewUnknownModelError(0)
	}

	specs := make([]ParamSpec, 0, 6)
	for _, name := range variant.FreeParams() {
		val, err := guess.Get(name)
		if err != nil {
			return nil, err
		}
		spec := ParamSpec{Name: name, Guess: val, Min: boundFloor, Max: math.Inf(1), Vary: !frozen[name]}
		if name == ParamQ0 {
			spec.Max = 1
		}
		specs = append(specs, spec)
	}
	for name, val := range variant.FixedParams() {
		specs = append(specs, ParamSpec{Name: name, Guess: val, Min: boundFloor, Max: math.Inf(1), Vary: false})
	}

	for i := range specs {
		ov, ok := overrides[specs[i].Name]
		if !ok {
			continue
		}
		if ov.Guess != nil {
			specs[i].Guess = *ov.Guess
		}
		if ov.Min != nil {
			specs[i].Min = *ov.Min
		}
		if ov.Max != nil {
			specs[i].Max = *ov.Max
		}
	}

	for _, spec := range specs {
		if spec.Min <= 0 {
			// all family parameters are strictly positive; v = 0 in
			// particular divides by zero in the lag integral
			return nil, core.NewInvalidInputError(fmt.Sprintf("parameter %s requires a strictly positive lower bound, got %g", spec.Name, spec.Min))
		}
		if spec.Guess < spec.Min || spec.Guess > spec.Max {
			return nil, core.NewInvalidInputError(fmt.Sprintf("guess %g for parameter %s outside bounds [%g, %g]", spec.Guess, spec.Name, spec.Min, spec.Max))
		}
	}
	return specs, nil
}

// FreeNames returns the names of the specs the solver may vary, in spec order.
func FreeNames(specs []ParamSpec) []string {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		if spec.Vary {
			names = append(names, spec.Name)
		}
	}
	return names
}
