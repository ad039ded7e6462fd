package growth

import (
	"math"

	"gogrowth/domain/core"
)

// Variant tags one member of the nested Baranyi-Roberts model family.
// Each variant is the full six-parameter model with some parameters fixed at
// the boundary value that collapses it into the simpler model:
//
//	BR6      ⊇ BR5      (nu fixed = 1)
//	BR5      ⊇ BR4      (v additionally tied to r)
//	BR6      ⊇ Richards (q0, v fixed = +Inf: no lag)
//	Richards ⊇ Logistic (nu fixed = 1)
type Variant string

const (
	VariantBR6      Variant = "baranyi_roberts6"
	VariantBR5      Variant = "baranyi_roberts5"
	VariantBR4      Variant = "baranyi_roberts4"
	VariantRichards Variant = "richards"
	VariantLogistic Variant = "logistic"
)

// Parameter names, in canonical vector order.
const (
	ParamY0 = "y0"
	ParamK  = "K"
	ParamR  = "r"
	ParamNu = "nu"
	ParamQ0 = "q0"
	ParamV  = "v"
)

// FitOrder is the exact sequence the fitting engine runs, widest model first.
func FitOrder() []Variant {
	return []Variant{VariantBR6, VariantBR5, VariantBR4, VariantRichards, VariantLogistic}
}

// Name returns the variant's display name
func (v Variant) Name() string {
	switch v {
	case VariantBR6:
		return "Baranyi-Roberts"
	case VariantBR5:
		return "Baranyi-Roberts nu=1"
	case VariantBR4:
		return "Baranyi-Roberts nu=1 v=r"
	case VariantRichards:
		return "Richards"
	case VariantLogistic:
		return "Logistic"
	}
	return string(v)
}

// NumVarys returns the number of free parameters of the variant
func (v Variant) NumVarys() int {
	switch v {
	case VariantBR6:
		return 6
	case VariantBR5:
		return 5
	case VariantBR4, VariantRichards:
		return 4
	case VariantLogistic:
		return 3
	}
	return 0
}

// HasLagPhase reports whether the variant carries free lag parameters
func (v Variant) HasLagPhase() bool {
	return v == VariantBR6 || v == VariantBR5 || v == VariantBR4
}

// FreeParams lists the variant's free parameter names in canonical order
func (v Variant) FreeParams() []string {
	switch v {
	case VariantBR6:
		return []string{ParamY0, ParamK, ParamR, ParamNu, ParamQ0, ParamV}
	case VariantBR5:
		return []string{ParamY0, ParamK, ParamR, ParamQ0, ParamV}
	case VariantBR4:
		return []string{ParamY0, ParamK, ParamR, ParamQ0}
	case VariantRichards:
		return []string{ParamY0, ParamK, ParamR, ParamNu}
	case VariantLogistic:
		return []string{ParamY0, ParamK, ParamR}
	}
	return nil
}

// FixedParams returns the variant's finite boundary constraints (name → value).
// The no-lag boundary (q0, v = +Inf) and the BR4 tie v = r are structural:
// those parameters never enter the solver vector at all.
func (v Variant) FixedParams() map[string]float64 {
	switch v {
	case VariantBR5, VariantBR4, VariantLogistic:
		return map[string]float64{ParamNu: 1}
	}
	return map[string]float64{}
}

// Valid reports whether the tag names a known variant
func (v Variant) Valid() bool {
	switch v {
	case VariantBR6, VariantBR5, VariantBR4, VariantRichards, VariantLogistic:
		return true
	}
	return false
}

// Params holds a concrete parameter assignment for the full six-parameter
// model. No-lag variants set Q0 and V to +Inf.
type Params struct {
	Y0 float64 `json:"y0"`
	K  float64 `json:"K"`
	R  float64 `json:"r"`
	Nu float64 `json:"nu"`
	Q0 float64 `json:"q0"`
	V  float64 `json:"v"`
}

// Eval evaluates the growth curve at time t
func (p Params) Eval(t float64) float64 {
	return BaranyiRoberts(t, p.Y0, p.R, p.K, p.Nu, p.Q0, p.V)
}

// Rate evaluates dy/dt at time t and population size y
func (p Params) Rate(t, y float64) float64 {
	return Rate(t, y, p.R, p.K, p.Nu, p.Q0, p.V)
}

// Lag returns the analytic lag duration ln(1 + 1/q0)/v, or 0 when the
// parameters carry no lag phase
func (p Params) Lag() float64 {
	if math.IsInf(p.Q0, 1) || math.IsInf(p.V, 1) {
		return 0
	}
	return math.Log(1+1/p.Q0) / p.V
}

// Get returns a named parameter value
func (p Params) Get(name string) (float64, error) {
	switch name {
	case ParamY0:
		return p.Y0, nil
	case ParamK:
		return p.K, nil
	case ParamR:
		return p.R, nil
	case ParamNu:
		return p.Nu, nil
	case ParamQ0:
		return p.Q0, nil
	case ParamV:
		return p.V, nil
	}
	return 0, core.NewInvalidInputError("unknown parameter " + name)
}

// ParamsFromValues assembles a full parameter set for a variant from the
// values of its solver vector (free plus finite-fixed parameters), applying
// the variant's structural boundaries.
func ParamsFromValues(v Variant, values map[string]float64) (Params, error) {
	if !v.Valid() {
		return Params{}, core.NewUnknownModelError(0)
	}
	p := Params{Nu: 1, Q0: math.Inf(1), V: math.Inf(1)}
	for name, val := range values {
		switch name {
		case ParamY0:
			p.Y0 = val
		case ParamK:
			p.K = val
		case ParamR:
			p.R = val
		case ParamNu:
			p.Nu = val
		case ParamQ0:
			p.Q0 = val
		case ParamV:
			p.V = val
		default:
			return Params{}, core.NewInvalidInputError("unknown parameter " + name)
		}
	}
	if v == VariantBR4 {
		p.V = p.R
	}
	if !v.HasLagPhase() {
		p.Q0 = math.Inf(1)
		p.V = math.Inf(1)
	}
	return p, nil
}
