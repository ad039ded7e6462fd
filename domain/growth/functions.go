package growth

import (
	"math"
)

// Closed-form growth curves of the Baranyi-Roberts family. All functions are
// pure: time and parameters in, population size out.
//
// Nesting: BaranyiRoberts ⊇ Richards (q0,v → +Inf) ⊇ Logistic (nu = 1).

// Logistic evaluates the standard logistic growth model,
// y(t) = K / (1 + (K/y0 - 1)·e^(-r·t)).
func Logistic(t, y0, r, K float64) float64 {
	return Richards(t, y0, r, K, 1)
}

// Richards evaluates the generalized logistic model, which allows the
// inflection point to sit anywhere along the curve:
// y(t) = K / [1 - (1 - (K/y0)^nu)·e^(-r·nu·t)]^(1/nu).
func Richards(t, y0, r, K, nu float64) float64 {
	return K / math.Pow(1-(1-math.Pow(K/y0, nu))*math.Exp(-r*nu*t), 1/nu)
}

// BaranyiRoberts evaluates the Richards model with a physiological lag phase:
// the time argument of the exponent is replaced by the lag-adjustment
// integral A(t).
func BaranyiRoberts(t, y0, r, K, nu, q0, v float64) float64 {
	return Richards(LagIntegral(t, q0, v), y0, r, K, nu)
}

// LagIntegral computes A(t) = t + (1/v)·ln((e^(-v·t) + q0) / (1 + q0)),
// the integral of the Baranyi-Roberts adjustment function alpha(t).
// As q0 → +Inf or v → +Inf, A(t) → t and the lag phase vanishes; this
// degeneracy is what nests Richards inside Baranyi-Roberts. v must be
// strictly positive; v = 0 is rejected at the parameter-bounds level.
func LagIntegral(t, q0, v float64) float64 {
	if math.IsInf(q0, 1) || math.IsInf(v, 1) {
		return t
	}
	return t + math.Log((math.Exp(-v*t)+q0)/(1+q0))/v
}

// Adjustment computes alpha(t) = q0 / (q0 + e^(-v·t)), the instantaneous
// physiological adjustment state. 1 when the model carries no lag.
func Adjustment(t, q0, v float64) float64 {
	if math.IsInf(q0, 1) || math.IsInf(v, 1) {
		return 1
	}
	return q0 / (q0 + math.Exp(-v*t))
}

// Rate evaluates the model ODE right-hand side
// dy/dt = r·alpha(t)·y·(1 - (y/K)^nu) at a given population size.
func Rate(t, y, r, K, nu, q0, v float64) float64 {
	return r * Adjustment(t, q0, v) * y * (1 - math.Pow(y/K, nu))
}
