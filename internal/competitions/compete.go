// Package competitions simulates head-to-head growth of two fitted strains
// in a shared culture and derives competitive fitness from the trajectories.
package competitions

import (
	"math"

	"gogrowth/domain/core"
	"gogrowth/internal/fitting"
)

// Trajectories holds the simulated two-strain competition: a common time
// grid and per-strain population sizes.
type Trajectories struct {
	Time []float64
	Y    [][2]float64
}

// Compete integrates the coupled Baranyi-Roberts ODE for two fitted strains
// sharing one culture, each strain feeling the combined population against
// its own carrying capacity:
//
//	dy_i/dt = r_i·alpha_i(t)·y_i·(1 − ((y_1+y_2)/K_i)^nu_i)
//
// Both strains start at half their fitted initial size, as in a 1:1
// competition inoculum. Fixed-step fourth-order Runge-Kutta over [0, hours].
func Compete(fit1, fit2 *fitting.ModelFit, hours float64, steps int) (*Trajectories, error) {
	if fit1 == nil || fit2 == nil {
		return nil, core.NewInvalidInputError("competition requires two fits")
	}
	if hours <= 0 || steps < 2 {
		return nil, core.NewInvalidInputError("competition requires a positive horizon and at least two steps")
	}

	p1, p2 := fit1.Params, fit2.Params
	rhs := func(t float64, y [2]float64) [2]float64 {
		total := y[0] + y[1]
		return [2]float64{
			p1.R * adjustment(t, p1.Q0, p1.V) * y[0] * (1 - math.Pow(total/p1.K, p1.Nu)),
			p2.R * adjustment(t, p2.Q0, p2.V) * y[1] * (1 - math.Pow(total/p2.K, p2.Nu)),
		}
	}

	h := hours / float64(steps-1)
	out := &Trajectories{
		Time: make([]float64, steps),
		Y:    make([][2]float64, steps),
	}
	y := [2]float64{p1.Y0 / 2, p2.Y0 / 2}
	out.Y[0] = y
	for i := 1; i < steps; i++ {
		t := float64(i-1) * h
		k1 := rhs(t, y)
		k2 := rhs(t+h/2, add(y, scale(k1, h/2)))
		k3 := rhs(t+h/2, add(y, scale(k2, h/2)))
		k4 := rhs(t+h, add(y, scale(k3, h)))
		y = add(y, scale(add(add(k1, scale(k2, 2)), add(scale(k3, 2), k4)), h/6))
		out.Time[i] = float64(i) * h
		out.Y[i] = y
	}
	return out, nil
}

func adjustment(t, q0, v float64) float64 {
	if math.IsInf(q0, 1) || math.IsInf(v, 1) {
		return 1
	}
	return q0 / (q0 + math.Exp(-v*t))
}

func add(a, b [2]float64) [2]float64   { return [2]float64{a[0] + b[0], a[1] + b[1]} }
func scale(a [2]float64, s float64) [2]float64 { return [2]float64{a[0] * s, a[1] * s} }

// FitnessLTEE computes the relative (Malthusian) fitness of the assay strain
// against the reference strain over a competition trajectory:
// w = ln(y_a(T)/y_a(0)) / ln(y_r(T)/y_r(0)).
func FitnessLTEE(traj *Trajectories, assay, ref int) (float64, error) {
	if traj == nil || len(traj.Y) < 2 {
		return 0, core.NewInvalidInputError("fitness requires a competition trajectory")
	}
	if assay < 0 || assay > 1 || ref < 0 || ref > 1 || assay == ref {
		return 0, core.NewInvalidInputError("assay and ref must be distinct strain indices 0 or 1")
	}
	first, last := traj.Y[0], traj.Y[len(traj.Y)-1]
	if first[assay] <= 0 || first[ref] <= 0 || last[assay] <= 0 || last[ref] <= 0 {
		return 0, core.NewDegenerateFitError("non-positive population sizes in competition trajectory")
	}
	den := math.Log(last[ref] / first[ref])
	if den == 0 {
		return 0, core.NewDegenerateFitError("reference strain did not grow, fitness undefined")
	}
	return math.Log(last[assay]/first[assay]) / den, nil
}
